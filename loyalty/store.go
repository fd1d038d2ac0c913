/*
store.go - Persistence interfaces for accounts, catalog, and audit log

PURPOSE:
  Defines the boundary between the engine and durable storage. The
  engine never rewrites a whole document: every balance change goes
  through a per-record atomic read-modify-write, so two concurrent
  mutations to different members can never clobber each other.

KEY INTERFACES:
  MemberStore:    Account records, lazy creation, atomic RMW updates
  CatalogStore:   Shop items, insert-only (duplicates rejected)
  TransactionLog: Append-only audit trail of balance mutations

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store (SQL transactions per update)
  - store/memory: In-memory store for tests and development
*/
package loyalty

import (
	"context"
	"time"
)

// =============================================================================
// MEMBER STORE
// =============================================================================

// MemberStore persists accounts. Missing-member reads return (nil, nil);
// GetOrCreate and Update create accounts lazily with zero defaults and
// persist them immediately.
type MemberStore interface {
	// Get returns the account, or (nil, nil) when it does not exist.
	Get(ctx context.Context, id MemberID) (*Member, error)

	// GetOrCreate returns the account, creating and persisting a zeroed
	// record on first access.
	GetOrCreate(ctx context.Context, id MemberID) (*Member, error)

	// Update applies fn to the account under a per-record atomic
	// read-modify-write and persists the result before returning. The
	// account is created lazily if absent. If fn returns an error the
	// record is left untouched.
	Update(ctx context.Context, id MemberID, fn func(*Member) error) (*Member, error)

	// List returns every account, in no particular order.
	List(ctx context.Context) ([]*Member, error)
}

// =============================================================================
// CATALOG STORE
// =============================================================================

// CatalogStore persists shop items. Insert-only: reusing an id fails
// with ErrDuplicateItem. There is no remove or edit operation.
type CatalogStore interface {
	// GetItem returns the item, or (nil, nil) when absent.
	GetItem(ctx context.Context, id ItemID) (*ShopItem, error)

	// InsertItem adds a new item. Fails with ErrDuplicateItem if the id
	// is taken.
	InsertItem(ctx context.Context, item ShopItem) error

	// ListItems returns the catalog ordered by id.
	ListItems(ctx context.Context) ([]ShopItem, error)
}

// =============================================================================
// TRANSACTION LOG
// =============================================================================

// TransactionLog is the append-only audit trail. No update, no delete.
type TransactionLog interface {
	// AppendTransaction records one mutation.
	AppendTransaction(ctx context.Context, tx Transaction) error

	// Transactions returns a member's mutations, newest first.
	Transactions(ctx context.Context, id MemberID) ([]Transaction, error)
}

// =============================================================================
// CACHE - Optional read-side cache (leaderboard)
// =============================================================================

// Cache is a minimal byte cache. Any Get error is treated as a miss, so
// implementations are free to use their own not-found sentinels and a
// broken cache never fails a read path.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// =============================================================================
// COLLABORATORS - External side effects, fire-and-forget
// =============================================================================

// TierChangeListener is invoked after a successful mutation whose tier
// changed, to synchronize external roles or groups. Failures are logged
// and never roll back the mutation.
type TierChangeListener interface {
	TierChanged(ctx context.Context, id MemberID, oldTier, newTier Tier) error
}

// Notifier delivers best-effort direct notifications to members.
// Failures are logged and never surface to the caller.
type Notifier interface {
	MilesAwarded(ctx context.Context, id MemberID, result MutationResult, reason string) error
}
