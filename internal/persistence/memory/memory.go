// Package memory provides in-memory stores for local development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"example.com/pact/internal/domain"
)

// ContractRepository keeps contracts in a map guarded by one mutex. The
// mutex also makes ResolveActive an atomic compare-and-set, matching the
// Postgres implementation's guarantee.
type ContractRepository struct {
	mu        sync.RWMutex
	contracts map[string]domain.Contract
}

// NewContractRepository constructs an empty repository.
func NewContractRepository() *ContractRepository {
	return &ContractRepository{contracts: make(map[string]domain.Contract)}
}

// Create stores the contract.
func (r *ContractRepository) Create(_ context.Context, contract domain.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.contracts[contract.ID]; exists {
		return fmt.Errorf("contract %s already exists", contract.ID)
	}
	r.contracts[contract.ID] = contract
	return nil
}

// Get returns the contract or ErrContractNotFound.
func (r *ContractRepository) Get(_ context.Context, id string) (*domain.Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if contract, ok := r.contracts[id]; ok {
		clone := contract
		return &clone, nil
	}
	return nil, domain.ErrContractNotFound
}

// ListActive returns all Active contracts.
func (r *ContractRepository) ListActive(_ context.Context) ([]domain.Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Contract
	for _, contract := range r.contracts {
		if contract.Status == domain.ContractStatusActive {
			out = append(out, contract)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ResolveActive flips Active to a terminal status; false when already resolved.
func (r *ContractRepository) ResolveActive(_ context.Context, id string, status domain.ContractStatus, reapedAt *time.Time) (bool, error) {
	if !status.Terminal() {
		return false, fmt.Errorf("%w: cannot resolve to %s", domain.ErrContractTerminal, status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	contract, ok := r.contracts[id]
	if !ok {
		return false, domain.ErrContractNotFound
	}
	if contract.Status != domain.ContractStatusActive {
		return false, nil
	}
	contract.Status = status
	if reapedAt != nil {
		contract.ReapedAt = reapedAt
	}
	r.contracts[id] = contract
	return true, nil
}

// FeedRepository keeps public feed entries in memory.
type FeedRepository struct {
	mu      sync.RWMutex
	entries []domain.FeedEntry
}

// NewFeedRepository constructs an empty feed.
func NewFeedRepository() *FeedRepository {
	return &FeedRepository{}
}

// Append adds a feed entry.
func (r *FeedRepository) Append(_ context.Context, entry domain.FeedEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

// Recent returns up to limit entries, newest first.
func (r *FeedRepository) Recent(_ context.Context, limit int) ([]domain.FeedEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.FeedEntry, 0, limit)
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}

// StatsRepository keeps per-user counters in memory.
type StatsRepository struct {
	mu    sync.Mutex
	stats map[string]*domain.UserStats
}

// NewStatsRepository constructs an empty stats store.
func NewStatsRepository() *StatsRepository {
	return &StatsRepository{stats: make(map[string]*domain.UserStats)}
}

func (r *StatsRepository) row(userID string) *domain.UserStats {
	if s, ok := r.stats[userID]; ok {
		return s
	}
	s := &domain.UserStats{UserID: userID}
	r.stats[userID] = s
	return s
}

// IncrementSigned bumps the signed-contract counter.
func (r *StatsRepository) IncrementSigned(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.row(userID).ContractsSigned++
	return nil
}

// IncrementCompleted bumps the completed-contract counter.
func (r *StatsRepository) IncrementCompleted(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.row(userID).ContractsCompleted++
	return nil
}

// IncrementFailed bumps the failed-contract counter.
func (r *StatsRepository) IncrementFailed(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.row(userID).ContractsFailed++
	return nil
}

// Leaderboard returns the top users by completed contracts.
func (r *StatsRepository) Leaderboard(_ context.Context, limit int) ([]domain.UserStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.UserStats, 0, len(r.stats))
	for _, s := range r.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ContractsCompleted != out[j].ContractsCompleted {
			return out[i].ContractsCompleted > out[j].ContractsCompleted
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
