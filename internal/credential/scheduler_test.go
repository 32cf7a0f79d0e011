package credential

import (
	"container/heap"
	"context"
	"testing"
	"time"
)

func TestSchedHeapOrdersByDeadline(t *testing.T) {
	h := &schedHeap{}
	heap.Init(h)

	base := time.Now()
	heap.Push(h, &schedItem{deadline: base.Add(3 * time.Second)})
	heap.Push(h, &schedItem{deadline: base.Add(1 * time.Second)})
	heap.Push(h, &schedItem{deadline: base.Add(2 * time.Second)})

	var order []time.Duration
	for h.Len() > 0 {
		item := heap.Pop(h).(*schedItem)
		order = append(order, item.deadline.Sub(base))
	}

	for i := 1; i < len(order); i++ {
		if order[i] < order[i-1] {
			t.Fatalf("heap popped out of order: %v", order)
		}
	}
}

func TestScheduleModelRecoversIndependentlyOfCredential(t *testing.T) {
	em := &recordingEmitter{}
	pool := NewPool(em)
	sched := NewScheduler(pool)
	pool.AttachScheduler(sched)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	pool.Insert(Credential{ID: 7, Provider: "p", Enabled: true})
	pool.MarkModelUnavailable(7, "m1", 20*time.Millisecond, ReasonModelDisallow)

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if c, ok := pool.Select("p", "m1"); ok && c.ID == 7 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected model scope to recover and credential 7 to become selectable again")
}
