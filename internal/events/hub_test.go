package events

import (
	"sync"
	"testing"
	"time"

	"github.com/nulpointcorp/llm-gateway/internal/credential"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Write(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestHubBroadcastsToSubscribers(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(4)
	defer cancel()

	h.Emit(Event{Kind: KindUnavailableEnd, UnavailableEnd: &UnavailableEnd{CredentialID: 1}})

	select {
	case ev := <-ch:
		if ev.Kind != KindUnavailableEnd {
			t.Fatalf("unexpected kind %v", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestHubDropsOnFullSubscriberChannel(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe(1)
	defer cancel()

	h.Emit(Event{Kind: KindUnavailableEnd})
	h.Emit(Event{Kind: KindUnavailableEnd})

	if h.DroppedBroadcasts() == 0 {
		t.Fatal("expected at least one dropped broadcast")
	}
}

func TestHubFansOutToSinks(t *testing.T) {
	h := NewHub()
	sink := &recordingSink{}
	h.AddSink(sink)

	h.Emit(Event{Kind: KindDownstream, Downstream: &Downstream{TraceID: "t1"}})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if sink.count() == 1 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("expected sink to receive the event")
}

func TestHubSatisfiesCredentialEmitter(t *testing.T) {
	h := NewHub()
	sink := &recordingSink{}
	h.AddSink(sink)

	var em credential.Emitter = h
	em.EmitUnavailableStart(1, credential.ReasonRateLimit, time.Now().Add(time.Minute))
	em.EmitUnavailableEnd(1)
	em.EmitModelUnavailableStart(1, "m", credential.ReasonModelDisallow, time.Now().Add(time.Minute))
	em.EmitModelUnavailableEnd(1, "m")

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if sink.count() == 4 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected 4 events delivered to sink, got %d", sink.count())
}

func TestHubSinkPanicDoesNotCrashEmit(t *testing.T) {
	h := NewHub()
	h.AddSink(panicSink{})
	h.Emit(Event{Kind: KindUnavailableEnd})
	time.Sleep(10 * time.Millisecond)
}

type panicSink struct{}

func (panicSink) Write(Event) { panic("boom") }
