package repositories

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/swap"
)

var ErrFormNotFound = errors.New("form not found")

// FormRepository stores in-progress forms. Update is the only way to mutate a stored form:
// fn runs against the current state and edits to the same form never interleave.
type FormRepository interface {
	Create(ctx context.Context, form swap.Form) error
	FindByID(ctx context.Context, id uuid.UUID) (swap.Form, error)
	// Update applies fn to the stored form and persists the result. An error from fn discards the change.
	Update(ctx context.Context, id uuid.UUID, fn func(*swap.Form) error) (swap.Form, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type memoryEntry struct {
	form      swap.Form
	expiresAt time.Time
}

// FormRepositoryMemory keeps forms in process memory; used when no Redis address is configured.
type FormRepositoryMemory struct {
	mu    sync.Mutex
	forms map[uuid.UUID]memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewFormRepositoryMemory(ttl time.Duration) FormRepository {
	return newFormRepositoryMemory(ttl, time.Now)
}

func newFormRepositoryMemory(ttl time.Duration, now func() time.Time) *FormRepositoryMemory {
	return &FormRepositoryMemory{forms: make(map[uuid.UUID]memoryEntry), ttl: ttl, now: now}
}

func (r *FormRepositoryMemory) Create(_ context.Context, form swap.Form) error {
	if form.ID == uuid.Nil {
		return errors.New("form id cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forms[form.ID] = memoryEntry{form: form, expiresAt: r.expiry()}
	return nil
}

func (r *FormRepositoryMemory) FindByID(_ context.Context, id uuid.UUID) (swap.Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.load(id)
	if !ok {
		return swap.Form{}, ErrFormNotFound
	}
	return entry.form, nil
}

func (r *FormRepositoryMemory) Update(_ context.Context, id uuid.UUID, fn func(*swap.Form) error) (swap.Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.load(id)
	if !ok {
		return swap.Form{}, ErrFormNotFound
	}
	form := entry.form
	if err := fn(&form); err != nil {
		return entry.form, err
	}
	r.forms[id] = memoryEntry{form: form, expiresAt: r.expiry()}
	return form, nil
}

func (r *FormRepositoryMemory) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.load(id); !ok {
		return ErrFormNotFound
	}
	delete(r.forms, id)
	return nil
}

// load must be called with mu held; it drops the entry when expired.
func (r *FormRepositoryMemory) load(id uuid.UUID) (memoryEntry, bool) {
	entry, ok := r.forms[id]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !r.now().Before(entry.expiresAt) {
		delete(r.forms, id)
		return memoryEntry{}, false
	}
	return entry, true
}

func (r *FormRepositoryMemory) expiry() time.Time {
	if r.ttl <= 0 {
		return time.Time{}
	}
	return r.now().Add(r.ttl)
}
