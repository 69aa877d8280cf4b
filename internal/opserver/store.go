package opserver

import (
	"sync"

	"github.com/google/uuid"
)

// Spec describes an operation to simulate.
type Spec struct {
	// ID is a client-chosen identifier. When empty a random one is
	// generated.
	ID string

	// PollsUntilDone is how many status checks return "running" before
	// the operation turns terminal. Zero means terminal on first check.
	PollsUntilDone int

	// FinalState is the terminal state reported once PollsUntilDone is
	// exhausted: "succeeded", "failed", or "cancelled".
	// Defaults to "succeeded".
	FinalState string

	// RetryAfterSeconds, when positive, is returned as a Retry-After
	// header on every running status response.
	RetryAfterSeconds int
}

// Op is the stored record of a simulated operation.
type Op struct {
	// ID is the operation's unique identifier.
	ID string

	// Status is the operation's current state string.
	Status string

	// Polls is how many status checks have been observed so far.
	Polls int

	// Spec is the simulation recipe the operation was created with.
	Spec Spec
}

// Store is a thread-safe in-memory registry of simulated operations.
//
// Each Observe call counts as one status check and advances the
// operation toward its terminal state, so tests can assert exactly how
// many polls a client performed.
type Store struct {
	mu  sync.Mutex
	ops map[string]*Op
}

// NewStore creates an empty [Store]. The store is immediately ready for
// use; no cleanup is required when done.
func NewStore() *Store {
	return &Store{
		ops: make(map[string]*Op),
	}
}

// Create registers a new operation from a spec and returns a snapshot of
// its record.
func (s *Store) Create(spec Spec) Op {
	if spec.FinalState == "" {
		spec.FinalState = "succeeded"
	}
	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}

	op := &Op{
		ID:     spec.ID,
		Status: "running",
		Spec:   spec,
	}
	if spec.PollsUntilDone <= 0 {
		op.Status = spec.FinalState
	}

	s.mu.Lock()
	s.ops[op.ID] = op
	s.mu.Unlock()

	return *op
}

// Observe records one status check against an operation, advancing it
// toward its terminal state, and returns a snapshot of the record.
// The second return value is false if no operation has that ID.
func (s *Store) Observe(id string) (Op, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.ops[id]
	if !ok {
		return Op{}, false
	}

	op.Polls++
	if op.Status == "running" && op.Polls >= op.Spec.PollsUntilDone {
		op.Status = op.Spec.FinalState
	}

	return *op, true
}

// Get returns a snapshot of an operation without advancing it.
func (s *Store) Get(id string) (Op, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.ops[id]
	if !ok {
		return Op{}, false
	}
	return *op, true
}

// Snapshot returns copies of all stored operations.
// Order is not guaranteed.
func (s *Store) Snapshot() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()

	ops := make([]Op, 0, len(s.ops))
	for _, op := range s.ops {
		ops = append(ops, *op)
	}
	return ops
}
