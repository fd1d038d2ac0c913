// Package memory provides an in-memory store for tests and development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/krisflyer/loyalty-engine/loyalty"
)

// Store implements loyalty.MemberStore, loyalty.CatalogStore, and
// loyalty.TransactionLog with mutex-guarded maps. Update runs its
// mutation under the write lock, so per-record read-modify-write is
// atomic the same way the SQLite store's transactions make it.
type Store struct {
	mu           sync.RWMutex
	members      map[loyalty.MemberID]*loyalty.Member
	items        map[loyalty.ItemID]loyalty.ShopItem
	transactions map[loyalty.MemberID][]loyalty.Transaction

	now func() time.Time
}

func New() *Store {
	return &Store{
		members:      make(map[loyalty.MemberID]*loyalty.Member),
		items:        make(map[loyalty.ItemID]loyalty.ShopItem),
		transactions: make(map[loyalty.MemberID][]loyalty.Transaction),
		now:          time.Now,
	}
}

// WithClock pins the creation timestamp for lazily created members.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// =============================================================================
// MEMBER STORE
// =============================================================================

func (s *Store) Get(_ context.Context, id loyalty.MemberID) (*loyalty.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	if !ok {
		return nil, nil
	}
	return cloneMember(m), nil
}

func (s *Store) GetOrCreate(_ context.Context, id loyalty.MemberID) (*loyalty.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMember(s.getOrCreateLocked(id)), nil
}

func (s *Store) Update(_ context.Context, id loyalty.MemberID, fn func(*loyalty.Member) error) (*loyalty.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Mutate a copy so a failed fn leaves the stored record untouched.
	current := s.getOrCreateLocked(id)
	updated := cloneMember(current)
	if err := fn(updated); err != nil {
		return nil, err
	}
	s.members[id] = updated
	return cloneMember(updated), nil
}

func (s *Store) List(_ context.Context) ([]*loyalty.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*loyalty.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, cloneMember(m))
	}
	return out, nil
}

func (s *Store) getOrCreateLocked(id loyalty.MemberID) *loyalty.Member {
	if m, ok := s.members[id]; ok {
		return m
	}
	m := loyalty.NewMember(id, s.now())
	s.members[id] = m
	return m
}

func cloneMember(m *loyalty.Member) *loyalty.Member {
	out := *m
	out.Inventory = make(map[loyalty.ItemID]int64, len(m.Inventory))
	for k, v := range m.Inventory {
		out.Inventory[k] = v
	}
	return &out
}

// =============================================================================
// CATALOG STORE
// =============================================================================

func (s *Store) GetItem(_ context.Context, id loyalty.ItemID) (*loyalty.ShopItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *Store) InsertItem(_ context.Context, item loyalty.ShopItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[item.ID]; exists {
		return loyalty.ErrDuplicateItem
	}
	s.items[item.ID] = item
	return nil
}

func (s *Store) ListItems(_ context.Context) ([]loyalty.ShopItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]loyalty.ShopItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// TRANSACTION LOG
// =============================================================================

func (s *Store) AppendTransaction(_ context.Context, tx loyalty.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[tx.MemberID] = append(s.transactions[tx.MemberID], tx)
	return nil
}

func (s *Store) Transactions(_ context.Context, id loyalty.MemberID) ([]loyalty.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txs := s.transactions[id]
	out := make([]loyalty.Transaction, len(txs))
	// Newest first.
	for i, tx := range txs {
		out[len(txs)-1-i] = tx
	}
	return out, nil
}

// Compile-time interface checks.
var (
	_ loyalty.MemberStore    = (*Store)(nil)
	_ loyalty.CatalogStore   = (*Store)(nil)
	_ loyalty.TransactionLog = (*Store)(nil)
)
