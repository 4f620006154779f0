package tasks

import (
	"context"
	"slices"
	"sync"
	"time"

	xe "github.com/opst/yeastregulatorydb/pkg/errors"
)

// Memory is a Queue in process memory.
type Memory struct {
	mu    sync.Mutex
	now   func() time.Time
	seq   int64
	tasks map[int64]*Task
}

var _ Queue = &Memory{}

// NewMemory returns a Queue in memory. When now is nil, time.Now is used.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{now: now, tasks: map[int64]*Task{}}
}

func (m *Memory) Submit(_ context.Context, kind Kind, payload []byte) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq += 1
	now := m.now()
	t := &Task{
		ID:        m.seq,
		Kind:      kind,
		Payload:   slices.Clone(payload),
		Status:    Pending,
		RunAfter:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.tasks[t.ID] = t
	return *t, nil
}

func (m *Memory) claimable(t *Task, now time.Time) bool {
	switch t.Status {
	case Pending:
		return !now.Before(t.RunAfter)
	case Running:
		return t.LeaseUntil != nil && t.LeaseUntil.Before(now)
	}
	return false
}

func (m *Memory) claim(t *Task, now time.Time, lease time.Duration) Task {
	until := now.Add(lease)
	t.Status = Running
	t.Attempts += 1
	t.LeaseUntil = &until
	t.UpdatedAt = now
	return *t
}

func (m *Memory) Claim(_ context.Context, lease time.Duration) (Task, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var found *Task
	for _, t := range m.tasks {
		if m.claimable(t, now) && (found == nil || t.ID < found.ID) {
			found = t
		}
	}
	if found == nil {
		return Task{}, false, nil
	}
	return m.claim(found, now, lease), true, nil
}

func (m *Memory) ClaimByID(_ context.Context, id int64, lease time.Duration) (Task, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, false, xe.NotFound("task", id)
	}
	if !m.claimable(t, now) {
		return *t, false, nil
	}
	return m.claim(t, now, lease), true, nil
}

func (m *Memory) update(id int64, fn func(*Task)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return xe.NotFound("task", id)
	}
	fn(t)
	t.LeaseUntil = nil
	t.UpdatedAt = m.now()
	return nil
}

func (m *Memory) Succeed(_ context.Context, id int64, result []byte) error {
	return m.update(id, func(t *Task) {
		t.Status = Succeeded
		t.Result = slices.Clone(result)
	})
}

func (m *Memory) Retry(_ context.Context, id int64, cause string, runAfter time.Time) error {
	return m.update(id, func(t *Task) {
		t.Status = Pending
		t.LastError = cause
		t.RunAfter = runAfter
	})
}

func (m *Memory) Fail(_ context.Context, id int64, cause string) error {
	return m.update(id, func(t *Task) {
		t.Status = Failed
		t.LastError = cause
	})
}

func (m *Memory) Get(_ context.Context, id int64) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, xe.NotFound("task", id)
	}
	return *t, nil
}
