package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	chdriver "github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// TerminalEventSink prints one JSON line per event to stderr, keeping stdout
// free for any streaming response bodies. It never returns an error to the
// caller — a marshal failure degrades to a one-line error record instead.
type TerminalEventSink struct{}

func NewTerminalEventSink() *TerminalEventSink { return &TerminalEventSink{} }

func (TerminalEventSink) Write(ev Event) {
	line, err := json.Marshal(ev)
	if err != nil {
		fmt.Fprintf(os.Stderr, `{"kind":"event_serialize_error","error":%q}`+"\n", err)
		return
	}
	fmt.Fprintln(os.Stderr, string(line))
}

// ClickHouseSink batches events into a buffered channel and flushes them to
// a ClickHouse table on an interval, mirroring the batching shape of the
// request logger. append_event is best-effort: insert errors are logged and
// dropped, never surfaced to the emitter.
type ClickHouseSink struct {
	conn  chdriver.Conn
	table string
	log   *slog.Logger

	ch   chan Event
	done chan struct{}
}

// NewClickHouseSink opens a connection via addr/opts and starts the
// background batch-insert loop. Call Close to drain and stop it.
func NewClickHouseSink(ctx context.Context, opts *clickhouse.Options, table string, log *slog.Logger) (*ClickHouseSink, error) {
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("events: open clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("events: ping clickhouse: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	s := &ClickHouseSink{
		conn:  conn,
		table: table,
		log:   log,
		ch:    make(chan Event, 10_000),
		done:  make(chan struct{}),
	}
	go s.run(ctx)
	return s, nil
}

func (s *ClickHouseSink) Write(ev Event) {
	select {
	case s.ch <- ev:
	default:
		s.log.Warn("events: clickhouse sink buffer full, dropping event")
	}
}

func (s *ClickHouseSink) Close() {
	close(s.done)
}

func (s *ClickHouseSink) run(ctx context.Context) {
	const batchSize = 200
	batch := make([]Event, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.insertBatch(ctx, batch); err != nil {
			s.log.Error("events: clickhouse batch insert failed", slog.String("error", err.Error()))
		}
		batch = batch[:0]
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev := <-s.ch:
			batch = append(batch, ev)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.done:
			for {
				select {
				case ev := <-s.ch:
					batch = append(batch, ev)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (s *ClickHouseSink) insertBatch(ctx context.Context, events []Event) error {
	b, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s (kind, payload)", s.table))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if err := b.Append(string(ev.Kind), string(payload)); err != nil {
			return fmt.Errorf("append row: %w", err)
		}
	}
	return b.Send()
}
