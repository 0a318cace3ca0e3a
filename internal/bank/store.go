package bank

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jihwankim/dst-sim/pkg/determinism"
)

// persistPath is the single log file the store flushes every mutation
// to, the sample service's "persistence file format" (spec §1) —
// deliberately minimal, one "<id> <amount>" line per account, rewritten
// in full on every mutation rather than diffed, matching a toy service's
// scope.
const persistPath = "/bank/accounts.log"

// Store is the bank's in-memory state, flushed to the run's virtual
// filesystem (determinism.FS) after every mutation so a Bounce'd server
// (spec §4.6) can recover its accounts instead of starting empty —
// exercising the FS facade spec §3.1 lists as an optional component.
type Store struct {
	fs *determinism.FS

	mu       sync.Mutex
	accounts map[string]int64
	order    []string // insertion order, for List's deterministic iteration
}

func NewStore(fs *determinism.FS) *Store {
	s := &Store{fs: fs, accounts: make(map[string]int64)}
	s.restore()
	return s
}

func (s *Store) restore() {
	data, err := s.fs.Read(persistPath)
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		e, err := ParseEntity(line)
		if err != nil {
			continue
		}
		if _, exists := s.accounts[e.ID]; !exists {
			s.order = append(s.order, e.ID)
		}
		s.accounts[e.ID] = e.Amount
	}
}

func (s *Store) flushLocked() {
	var b strings.Builder
	for _, id := range s.order {
		fmt.Fprintf(&b, "%s %d\n", id, s.accounts[id])
	}
	s.fs.Write(persistPath, []byte(b.String()))
}

// Create opens a new account with the given amount and returns its entity.
func (s *Store) Create(amount int64) Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.accounts[id] = amount
	s.order = append(s.order, id)
	s.flushLocked()
	return Entity{ID: id, Amount: amount}
}

// Get returns the account with id, or ok=false if it does not exist.
func (s *Store) Get(id string) (Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	amount, ok := s.accounts[id]
	if !ok {
		return Entity{}, false
	}
	return Entity{ID: id, Amount: amount}, true
}

// List returns every account in creation order.
func (s *Store) List() []Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, Entity{ID: id, Amount: s.accounts[id]})
	}
	return out
}

// Void cancels an existing account outright, removing it from the
// ledger so later Get/List/Balance calls no longer see it. Reports
// false if id does not exist.
func (s *Store) Void(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return false
	}
	delete(s.accounts, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.flushLocked()
	return true
}

// Balance sums every account's amount. Advisory per spec §9-c: the
// banker scenario's GetBalance action checks only that the reply is "$"
// followed by a parseable decimal, never the total itself.
func (s *Store) Balance() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, v := range s.accounts {
		total += v
	}
	return total
}
