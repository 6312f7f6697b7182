// Package memory is an in-process implementation of the repository
// interfaces. It backs the server's "memory" storage mode and the service
// and job tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/repository"
)

type txKey struct{}

// state is shared by every repository of one Store. A transaction holds mu
// for its whole duration.
type state struct {
	mu                 sync.Mutex
	orders             map[uuid.UUID]*domain.Order
	proofs             map[uuid.UUID]domain.Proof
	notifications      []domain.Notification
	nextNotificationID int64
	undo               *undoLog
}

// undoLog keeps the value each key had before the running transaction first
// wrote it. Stored orders are replaced, never mutated in place, so keeping
// the old pointer is enough.
type undoLog struct {
	orders   map[uuid.UUID]*domain.Order // nil: the key did not exist
	proofs   map[uuid.UUID]*domain.Proof
	read     map[int]bool // notification index -> IsRead before the write
	notesLen int
	nextID   int64
}

func (s *state) begin() {
	s.undo = &undoLog{
		orders:   make(map[uuid.UUID]*domain.Order),
		proofs:   make(map[uuid.UUID]*domain.Proof),
		read:     make(map[int]bool),
		notesLen: len(s.notifications),
		nextID:   s.nextNotificationID,
	}
}

func (s *state) touchOrder(id uuid.UUID) {
	if s.undo == nil {
		return
	}
	if _, seen := s.undo.orders[id]; !seen {
		s.undo.orders[id] = s.orders[id]
	}
}

func (s *state) touchProof(id uuid.UUID) {
	if s.undo == nil {
		return
	}
	if _, seen := s.undo.proofs[id]; seen {
		return
	}
	if p, ok := s.proofs[id]; ok {
		s.undo.proofs[id] = &p
	} else {
		s.undo.proofs[id] = nil
	}
}

// touchNotification records the read flag of an existing row. Rows appended
// inside the transaction are dropped by truncation instead.
func (s *state) touchNotification(i int) {
	if s.undo == nil || i >= s.undo.notesLen {
		return
	}
	if _, seen := s.undo.read[i]; !seen {
		s.undo.read[i] = s.notifications[i].IsRead
	}
}

func (s *state) rollback() {
	u := s.undo
	for id, o := range u.orders {
		if o == nil {
			delete(s.orders, id)
		} else {
			s.orders[id] = o
		}
	}
	for id, p := range u.proofs {
		if p == nil {
			delete(s.proofs, id)
		} else {
			s.proofs[id] = *p
		}
	}
	s.notifications = s.notifications[:u.notesLen]
	for i, was := range u.read {
		s.notifications[i].IsRead = was
	}
	s.nextNotificationID = u.nextID
}

func (s *state) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*state)
	return ok && owner == s
}

// do runs fn under the store lock unless ctx already owns it
func (s *state) do(ctx context.Context, fn func() error) error {
	if s.inTx(ctx) {
		return fn()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

type Store struct {
	state *state
	repository.Transactor
	repository.OrderRepository
	repository.DisputeRepository
	repository.ProofRepository
	repository.NotificationRepository
}

func NewStore() *Store {
	s := &state{
		orders: make(map[uuid.UUID]*domain.Order),
		proofs: make(map[uuid.UUID]domain.Proof),
	}
	return &Store{
		state:                  s,
		Transactor:             &transactor{s: s},
		OrderRepository:        &orderRepository{s: s},
		DisputeRepository:      &disputeRepository{s: s},
		ProofRepository:        &proofRepository{s: s},
		NotificationRepository: &notificationRepository{s: s},
	}
}

// AddProof registers evidence metadata without going through a transaction
func (st *Store) AddProof(p domain.Proof) {
	st.state.mu.Lock()
	defer st.state.mu.Unlock()
	st.state.proofs[p.ID] = p
}

type transactor struct {
	s *state
}

// InTx serializes transactions on the store lock. On error or panic every
// write made inside fn is undone.
func (t *transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if t.s.inTx(ctx) {
		return fn(ctx)
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	t.s.begin()
	defer func() {
		if p := recover(); p != nil {
			t.s.rollback()
			t.s.undo = nil
			panic(p)
		}
		if err != nil {
			t.s.rollback()
		}
		t.s.undo = nil
	}()

	return fn(context.WithValue(ctx, txKey{}, t.s))
}
