package traffic

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeSink struct {
	mu         sync.Mutex
	downstream []DownstreamEvent
	upstream   []UpstreamEvent
	failNext   bool
}

func (f *fakeSink) InsertDownstream(_ context.Context, events []DownstreamEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downstream = append(f.downstream, events...)
	return nil
}

func (f *fakeSink) InsertUpstream(_ context.Context, events []UpstreamEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upstream = append(f.upstream, events...)
	return nil
}

func (f *fakeSink) downstreamCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.downstream)
}

func (f *fakeSink) upstreamCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upstream)
}

func TestRecorderFlushesOnClose(t *testing.T) {
	sink := &fakeSink{}
	r := New(context.Background(), sink, nil)

	r.RecordDownstream(DownstreamEvent{TraceID: "t1", RespStatus: 200})
	r.RecordUpstream(UpstreamEvent{TraceID: "t1", AttemptNo: 1, RespStatus: 200})

	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if sink.downstreamCount() != 1 {
		t.Fatalf("expected 1 downstream event flushed, got %d", sink.downstreamCount())
	}
	if sink.upstreamCount() != 1 {
		t.Fatalf("expected 1 upstream event flushed, got %d", sink.upstreamCount())
	}
}

func TestRecorderDropsOnOverflow(t *testing.T) {
	sink := &fakeSink{}
	r := New(context.Background(), sink, nil)
	defer r.Close()

	// Fill well past the buffer without ever letting the flush loop drain
	// it, by recording faster than the ticker can run meaningfully — use a
	// count far beyond channelBuffer to force drops deterministically.
	for i := 0; i < channelBuffer*2; i++ {
		r.RecordDownstream(DownstreamEvent{TraceID: "overflow"})
	}

	if r.DroppedDownstream() == 0 {
		t.Fatal("expected some downstream events to be dropped under overflow")
	}
}

func TestRecorderBatchesAtBatchSize(t *testing.T) {
	sink := &fakeSink{}
	r := New(context.Background(), sink, nil)
	defer r.Close()

	for i := 0; i < batchSize+5; i++ {
		r.RecordDownstream(DownstreamEvent{TraceID: "b"})
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if sink.downstreamCount() >= batchSize {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected at least a full batch to flush, got %d", sink.downstreamCount())
}
