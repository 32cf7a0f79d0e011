package credential

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingEmitter struct {
	mu    sync.Mutex
	ends  []int64
	starts []int64
}

func (r *recordingEmitter) EmitUnavailableStart(id int64, _ UnavailableReason, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, id)
}
func (r *recordingEmitter) EmitUnavailableEnd(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ends = append(r.ends, id)
}
func (r *recordingEmitter) EmitModelUnavailableStart(int64, string, UnavailableReason, time.Time) {}
func (r *recordingEmitter) EmitModelUnavailableEnd(int64, string)                                 {}

func (r *recordingEmitter) endCount(id int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.ends {
		if e == id {
			n++
		}
	}
	return n
}

func newTestPool(t *testing.T) (*Pool, *recordingEmitter, context.CancelFunc) {
	t.Helper()
	em := &recordingEmitter{}
	pool := NewPool(em)
	sched := NewScheduler(pool)
	pool.AttachScheduler(sched)

	ctx, cancel := context.WithCancel(context.Background())
	go sched.Run(ctx)
	return pool, em, cancel
}

func TestSelectNeverReturnsUnavailable(t *testing.T) {
	pool, _, cancel := newTestPool(t)
	defer cancel()

	pool.Insert(Credential{ID: 1, Provider: "p", Enabled: true})
	pool.Insert(Credential{ID: 2, Provider: "p", Enabled: true})
	pool.MarkUnavailable(1, time.Minute, ReasonRateLimit)

	for i := 0; i < 10; i++ {
		c, ok := pool.Select("p", "")
		if !ok {
			t.Fatal("expected a credential")
		}
		if c.ID == 1 {
			t.Fatal("selected an unavailable credential")
		}
	}
}

func TestSelectNeverReturnsDisallowedModel(t *testing.T) {
	pool, _, cancel := newTestPool(t)
	defer cancel()

	pool.Insert(Credential{ID: 1, Provider: "p", Enabled: true})
	pool.Insert(Credential{ID: 2, Provider: "p", Enabled: true})
	pool.MarkModelUnavailable(1, "gamma", time.Minute, ReasonModelDisallow)

	for i := 0; i < 10; i++ {
		c, ok := pool.Select("p", "gamma")
		if !ok || c.ID != 2 {
			t.Fatalf("expected credential 2 for model gamma, got %#v ok=%v", c, ok)
		}
	}
	// un-scoped model selection may still return 1.
	c, ok := pool.Select("p", "delta")
	if !ok {
		t.Fatal("expected a credential for unrelated model")
	}
	_ = c
}

func TestUnavailabilityRecovers(t *testing.T) {
	pool, em, cancel := newTestPool(t)
	defer cancel()

	pool.Insert(Credential{ID: 1, Provider: "p", Enabled: true})
	pool.MarkUnavailable(1, 20*time.Millisecond, ReasonTimeout)

	st, _ := pool.State(1)
	if st.Active {
		t.Fatal("expected credential to be unavailable immediately")
	}

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		st, _ = pool.State(1)
		if st.Active {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !st.Active {
		t.Fatal("expected credential to recover")
	}
	if em.endCount(1) != 1 {
		t.Fatalf("expected exactly one UnavailableEnd, got %d", em.endCount(1))
	}
}

func TestStaleQueueGuardSupersedesEarlierDeadline(t *testing.T) {
	pool, em, cancel := newTestPool(t)
	defer cancel()

	pool.Insert(Credential{ID: 1, Provider: "p", Enabled: true})
	pool.MarkUnavailable(1, 30*time.Millisecond, ReasonRateLimit)
	pool.MarkUnavailable(1, 200*time.Millisecond, ReasonRateLimit)

	time.Sleep(60 * time.Millisecond)
	st, _ := pool.State(1)
	if st.Active {
		t.Fatal("expected credential still unavailable at the superseded deadline")
	}

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		st, _ = pool.State(1)
		if st.Active {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !st.Active {
		t.Fatal("expected credential to eventually recover")
	}
	if em.endCount(1) != 1 {
		t.Fatalf("expected exactly one UnavailableEnd despite two marks, got %d", em.endCount(1))
	}
}

func TestMarkDeadExcludesEveryModelIndefinitely(t *testing.T) {
	pool, _, cancel := newTestPool(t)
	defer cancel()

	pool.Insert(Credential{ID: 1, Provider: "p", Enabled: true})
	pool.Insert(Credential{ID: 2, Provider: "p", Enabled: true})
	pool.MarkDead(1, ReasonAuthInvalid)

	for i := 0; i < 10; i++ {
		c, ok := pool.Select("p", "any-model")
		if !ok || c.ID != 2 {
			t.Fatalf("expected credential 2 once 1 is dead, got %#v ok=%v", c, ok)
		}
	}
}

func TestClearDisallowRestoresEligibility(t *testing.T) {
	pool, _, cancel := newTestPool(t)
	defer cancel()

	pool.Insert(Credential{ID: 1, Provider: "p", Enabled: true})
	pool.MarkDead(1, ReasonAuthInvalid)
	pool.ClearDisallow(1)

	c, ok := pool.Select("p", "")
	if !ok || c.ID != 1 {
		t.Fatalf("expected credential 1 restored after ClearDisallow, got %#v ok=%v", c, ok)
	}
}

func TestLevelForSeverityMapping(t *testing.T) {
	cases := map[UnavailableReason]DisallowLevel{
		ReasonRateLimit:     DisallowCooldown,
		ReasonTimeout:       DisallowCooldown,
		ReasonModelDisallow: DisallowCooldown,
		ReasonUpstream5xx:   DisallowTransient,
		ReasonAuthInvalid:   DisallowTransient,
	}
	for reason, want := range cases {
		if got := levelFor(reason); got != want {
			t.Fatalf("levelFor(%v) = %v, want %v", reason, got, want)
		}
	}
}

func TestMarkModelUnavailableCarriesSeverityLevel(t *testing.T) {
	pool, _, cancel := newTestPool(t)
	defer cancel()

	pool.Insert(Credential{ID: 1, Provider: "p", Enabled: true})
	pool.MarkModelUnavailable(1, "gamma", time.Minute, ReasonUpstream5xx)

	e := pool.byID[1]
	entry, ok := e.disallows[ModelScope("gamma")]
	if !ok || entry.Level != DisallowTransient {
		t.Fatalf("expected transient disallow entry, got %#v ok=%v", entry, ok)
	}
}
