// Package traffic implements the traffic recorder: buffered, batched
// persistence of downstream and upstream request/response summaries,
// following the same non-blocking drop-on-overflow shape as the request
// logger.
package traffic

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nulpointcorp/llm-gateway/internal/protocol"
)

const (
	channelBuffer = 10_000
	batchSize     = 200
	flushInterval = time.Second
)

// DownstreamEvent is one completed client-facing request.
type DownstreamEvent struct {
	TraceID     string
	Provider    string
	ProviderID  int64
	Operation   protocol.Operation
	Model       string
	UserID      string
	KeyID       string
	Method      string
	Path        string
	Query       string
	ReqHeaders  protocol.Headers
	ReqBody     []byte
	RespStatus  int
	RespHeaders protocol.Headers
	RespBody    []byte
	IsStream    bool
	CreatedAt   time.Time
}

// UpstreamEvent is one attempt made against a provider while serving a
// downstream request.
type UpstreamEvent struct {
	TraceID      string
	Provider     string
	CredentialID int64
	AttemptNo    int
	Model        string
	Usage        protocol.Usage
	RespStatus   int
	CreatedAt    time.Time
}

// Sink persists batches of events. A Sink implementation should treat
// errors as fully its own concern — Recorder never retries a failed batch.
type Sink interface {
	InsertDownstream(ctx context.Context, events []DownstreamEvent) error
	InsertUpstream(ctx context.Context, events []UpstreamEvent) error
}

// Recorder buffers traffic events on internal channels and flushes them to
// a Sink in batches from a background goroutine, so recording never blocks
// the request hot path. Entries are dropped and counted once the buffer is
// full.
type Recorder struct {
	sink Sink
	log  *slog.Logger

	downCh chan DownstreamEvent
	upCh   chan UpstreamEvent
	done   chan struct{}
	wg     sync.WaitGroup

	droppedDownstream int64
	droppedUpstream   int64

	baseCtx context.Context
}

// New constructs a Recorder writing to sink. baseCtx is used for the
// background flush loop's outgoing calls and should outlive the process,
// not any single request.
func New(baseCtx context.Context, sink Sink, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	r := &Recorder{
		sink:    sink,
		log:     log,
		downCh:  make(chan DownstreamEvent, channelBuffer),
		upCh:    make(chan UpstreamEvent, channelBuffer),
		done:    make(chan struct{}),
		baseCtx: baseCtx,
	}
	r.wg.Add(2)
	go r.runDownstream()
	go r.runUpstream()
	return r
}

// RecordDownstream enqueues ev for persistence, dropping it if the buffer
// is full.
func (r *Recorder) RecordDownstream(ev DownstreamEvent) {
	select {
	case r.downCh <- ev:
	default:
		atomic.AddInt64(&r.droppedDownstream, 1)
	}
}

// RecordUpstream enqueues ev for persistence, dropping it if the buffer is
// full.
func (r *Recorder) RecordUpstream(ev UpstreamEvent) {
	select {
	case r.upCh <- ev:
	default:
		atomic.AddInt64(&r.droppedUpstream, 1)
	}
}

func (r *Recorder) DroppedDownstream() int64 { return atomic.LoadInt64(&r.droppedDownstream) }
func (r *Recorder) DroppedUpstream() int64   { return atomic.LoadInt64(&r.droppedUpstream) }

// Close stops the background flush loops after draining any buffered
// events.
func (r *Recorder) Close() error {
	close(r.done)
	r.wg.Wait()
	return nil
}

func (r *Recorder) runDownstream() {
	defer r.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]DownstreamEvent, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.sink.InsertDownstream(r.baseCtx, batch); err != nil {
			r.log.Error("traffic: downstream batch insert failed", slog.String("error", err.Error()))
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev := <-r.downCh:
			batch = append(batch, ev)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-r.done:
			for {
				select {
				case ev := <-r.downCh:
					batch = append(batch, ev)
					if len(batch) >= batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

func (r *Recorder) runUpstream() {
	defer r.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]UpstreamEvent, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.sink.InsertUpstream(r.baseCtx, batch); err != nil {
			r.log.Error("traffic: upstream batch insert failed", slog.String("error", err.Error()))
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev := <-r.upCh:
			batch = append(batch, ev)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-r.done:
			for {
				select {
				case ev := <-r.upCh:
					batch = append(batch, ev)
					if len(batch) >= batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}
