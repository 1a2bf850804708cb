package stake

import (
	"context"
	"sync"
	"time"

	"example.com/pact/internal/domain"
)

// InMemoryStore keeps ledgers in memory for local development and tests.
// Per-user mutexes give the same isolation contract as the Postgres store's
// row locks: same-user transactions serialize, different users don't block.
type InMemoryStore struct {
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	ledgers map[string]domain.StakeLedger
	events  map[string][]domain.StakeEvent
}

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		locks:   make(map[string]*sync.Mutex),
		ledgers: make(map[string]domain.StakeLedger),
		events:  make(map[string][]domain.StakeEvent),
	}
}

func (s *InMemoryStore) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

type memoryTx struct {
	ledger    domain.StakeLedger
	setLedger *domain.StakeLedger
	appended  []domain.StakeEvent
}

func (t *memoryTx) Ledger() domain.StakeLedger { return t.ledger }

func (t *memoryTx) SetLedger(l domain.StakeLedger) { t.setLedger = &l }

func (t *memoryTx) AppendEvent(e domain.StakeEvent) { t.appended = append(t.appended, e) }

// Transact implements Store with all-or-nothing semantics: staged writes are
// applied only when fn returns nil.
func (s *InMemoryStore) Transact(ctx context.Context, userID string, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	tx := &memoryTx{ledger: s.currentLedger(userID)}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.setLedger != nil {
		s.ledgers[userID] = *tx.setLedger
	} else if _, ok := s.ledgers[userID]; !ok {
		// First touch without a balance write still materialises the seed row.
		s.ledgers[userID] = tx.ledger
	}
	s.events[userID] = append(s.events[userID], tx.appended...)
	return nil
}

func (s *InMemoryStore) currentLedger(userID string) domain.StakeLedger {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ledger, ok := s.ledgers[userID]; ok {
		return ledger
	}
	return domain.StakeLedger{
		UserID:         userID,
		CurrentBalance: domain.StakeSeedBalance,
		UpdatedAt:      time.Now().UTC(),
	}
}

// Ledger returns the user's row, seeded for first-touch users.
func (s *InMemoryStore) Ledger(_ context.Context, userID string) (*domain.StakeLedger, error) {
	ledger := s.currentLedger(userID)
	return &ledger, nil
}

// RecentEvents returns up to limit events, newest first.
func (s *InMemoryStore) RecentEvents(_ context.Context, userID string, limit int) ([]domain.StakeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.events[userID]
	out := make([]domain.StakeEvent, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}
