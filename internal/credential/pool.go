package credential

import (
	"sync"
	"sync/atomic"
	"time"
)

// Emitter receives pool lifecycle notifications. The events package supplies
// a Hub-backed implementation; pool tests use a no-op or recording stub.
type Emitter interface {
	EmitUnavailableStart(id int64, reason UnavailableReason, until time.Time)
	EmitUnavailableEnd(id int64)
	EmitModelUnavailableStart(id int64, model string, reason UnavailableReason, until time.Time)
	EmitModelUnavailableEnd(id int64, model string)
}

type noopEmitter struct{}

func (noopEmitter) EmitUnavailableStart(int64, UnavailableReason, time.Time)       {}
func (noopEmitter) EmitUnavailableEnd(int64)                                      {}
func (noopEmitter) EmitModelUnavailableStart(int64, string, UnavailableReason, time.Time) {}
func (noopEmitter) EmitModelUnavailableEnd(int64, string)                         {}

type entry struct {
	cred      Credential
	state     State
	disallows map[Scope]Entry
}

// Pool holds every credential for every provider family and tracks their
// eligibility for selection. Reads (Select) take the read lock; mutations
// take the write lock — multiple concurrent requests can select in
// parallel, serialized only against state changes (SPEC_FULL.md §5).
type Pool struct {
	mu       sync.RWMutex
	byID     map[int64]*entry
	byProv   map[string][]int64
	cursor   map[string]*uint64
	emitter  Emitter
	sched    *Scheduler
}

// NewPool constructs an empty pool. emitter may be nil to discard events.
// No recovery is scheduled until a Scheduler is attached via AttachScheduler.
func NewPool(emitter Emitter) *Pool {
	if emitter == nil {
		emitter = noopEmitter{}
	}
	return &Pool{
		byID:    make(map[int64]*entry),
		byProv:  make(map[string][]int64),
		cursor:  make(map[string]*uint64),
		emitter: emitter,
	}
}

// AttachScheduler wires the unavailability scheduler this pool's
// mark-unavailable calls enqueue recovery deadlines on.
func (p *Pool) AttachScheduler(s *Scheduler) {
	p.sched = s
}

// Insert registers a credential as Active. Re-inserting an existing id is
// idempotent and does not reset an existing Unavailable state.
func (p *Pool) Insert(c Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byID[c.ID]; exists {
		return
	}
	p.byID[c.ID] = &entry{cred: c, state: State{Active: true}, disallows: map[Scope]Entry{}}
	p.byProv[c.Provider] = append(p.byProv[c.Provider], c.ID)
	if _, ok := p.cursor[c.Provider]; !ok {
		var cursor uint64
		p.cursor[c.Provider] = &cursor
	}
}

// Select returns the next eligible credential for provider via round-robin,
// skipping unavailable or disallowed entries. model may be empty to mean
// "any model" — only the all-models disallow scope is then consulted.
func (p *Pool) Select(provider, model string) (Credential, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := p.byProv[provider]
	if len(ids) == 0 {
		return Credential{}, false
	}
	cursor := p.cursor[provider]
	now := time.Now()

	for i := 0; i < len(ids); i++ {
		idx := int((atomic.AddUint64(cursor, 1) - 1) % uint64(len(ids)))
		id := ids[idx]
		e := p.byID[id]
		if e == nil || !e.cred.Enabled {
			continue
		}
		if p.eligibleLocked(e, model, now) {
			return e.cred, true
		}
	}
	return Credential{}, false
}

func (p *Pool) eligibleLocked(e *entry, model string, now time.Time) bool {
	if !e.state.Active {
		return false
	}
	if d, ok := e.disallows[AllModelsScope()]; ok && d.IsActive(now) {
		return false
	}
	if model != "" {
		if d, ok := e.disallows[ModelScope(model)]; ok && d.IsActive(now) {
			return false
		}
	}
	return true
}

// State returns the current state of id.
func (p *Pool) State(id int64) (State, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.byID[id]
	if !ok {
		return State{}, false
	}
	return e.state, true
}

// MarkUnavailable transitions id to Unavailable for the given duration and
// enqueues its recovery on the scheduler. A later call with a longer
// duration supersedes an earlier one; the earlier heap entry becomes stale
// and is ignored on pop (see Scheduler).
func (p *Pool) MarkUnavailable(id int64, d time.Duration, reason UnavailableReason) {
	until := time.Now().Add(d)

	p.mu.Lock()
	e, ok := p.byID[id]
	if !ok {
		p.mu.Unlock()
		return
	}
	e.state = State{Active: false, Until: until, Reason: reason}
	p.mu.Unlock()

	p.emitter.EmitUnavailableStart(id, reason, until)
	if p.sched != nil {
		p.sched.ScheduleCredential(id, until)
	}
}

// MarkModelUnavailable disallows id for model until the given duration
// elapses, without affecting the credential's overall Active state.
func (p *Pool) MarkModelUnavailable(id int64, model string, d time.Duration, reason UnavailableReason) {
	until := time.Now().Add(d)

	p.mu.Lock()
	e, ok := p.byID[id]
	if !ok {
		p.mu.Unlock()
		return
	}
	e.disallows[ModelScope(model)] = Entry{Level: levelFor(reason), Until: until, Reason: reason, UpdatedAt: time.Now()}
	p.mu.Unlock()

	p.emitter.EmitModelUnavailableStart(id, model, reason, until)
	if p.sched != nil {
		p.sched.ScheduleModel(id, model, until)
	}
}

// MarkDead disallows id across all models indefinitely, for credentials an
// operator or startup validation has ruled permanently invalid (shape
// mismatch, revoked key). Unlike MarkUnavailable/MarkModelUnavailable this
// entry carries no Until deadline and is never scheduled for recovery — only
// a later call to ClearDisallow removes it.
func (p *Pool) MarkDead(id int64, reason UnavailableReason) {
	p.mu.Lock()
	e, ok := p.byID[id]
	if !ok {
		p.mu.Unlock()
		return
	}
	e.disallows[AllModelsScope()] = Entry{Level: DisallowDead, Reason: reason, UpdatedAt: time.Now()}
	p.mu.Unlock()

	p.emitter.EmitModelUnavailableStart(id, "", reason, time.Time{})
}

// ClearDisallow removes an AllModelsScope disallow mark, e.g. once an
// operator rotates a credential previously marked MarkDead.
func (p *Pool) ClearDisallow(id int64) {
	p.mu.Lock()
	e, ok := p.byID[id]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(e.disallows, AllModelsScope())
	p.mu.Unlock()

	p.emitter.EmitModelUnavailableEnd(id, "")
}

// recoverCredential is invoked by the scheduler once id's deadline has
// passed. It re-checks the live state (the stale-entry guard) before
// resetting to Active, so a superseded deadline never clobbers a newer mark.
func (p *Pool) recoverCredential(id int64, deadline time.Time) {
	p.mu.Lock()
	e, ok := p.byID[id]
	if !ok || e.state.Active || e.state.Until.After(deadline) {
		p.mu.Unlock()
		return
	}
	e.state = State{Active: true}
	p.mu.Unlock()

	p.emitter.EmitUnavailableEnd(id)
}

func (p *Pool) recoverModel(id int64, model string, deadline time.Time) {
	p.mu.Lock()
	e, ok := p.byID[id]
	if !ok {
		p.mu.Unlock()
		return
	}
	d, ok := e.disallows[ModelScope(model)]
	if !ok || d.Until.After(deadline) {
		p.mu.Unlock()
		return
	}
	delete(e.disallows, ModelScope(model))
	p.mu.Unlock()

	p.emitter.EmitModelUnavailableEnd(id, model)
}

// ReplaceSnapshot atomically swaps the credential set for provider. States of
// ids still present are preserved; removed ids drop their state entirely.
func (p *Pool) ReplaceSnapshot(provider string, creds []Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()

	keep := make(map[int64]bool, len(creds))
	for _, c := range creds {
		keep[c.ID] = true
		if _, exists := p.byID[c.ID]; !exists {
			p.byID[c.ID] = &entry{cred: c, state: State{Active: true}, disallows: map[Scope]Entry{}}
		}
	}
	var ids []int64
	for _, id := range p.byProv[provider] {
		if keep[id] {
			ids = append(ids, id)
		} else {
			delete(p.byID, id)
		}
	}
	for id := range keep {
		found := false
		for _, existing := range ids {
			if existing == id {
				found = true
				break
			}
		}
		if !found {
			ids = append(ids, id)
		}
	}
	p.byProv[provider] = ids
}
