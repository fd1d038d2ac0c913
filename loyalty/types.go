/*
Package loyalty provides the KrisFlyer mileage and tier-progression engine.

PURPOSE:
  This package contains the core domain types and algorithms for the
  loyalty program: the static tier table, the mileage calculator, the
  progress calculator, the ledger mutator, and the rewards shop.
  Everything that renders, transports, or persists lives elsewhere.

KEY CONCEPTS IN THIS FILE (types.go):
  - Member: A mutable account record (balance, lifetime miles, inventory)
  - Tier: A named balance bracket with display metadata and a multiplier
  - ShopItem: A purchasable catalog entry
  - Transaction: An append-only audit record of a balance mutation

DESIGN PRINCIPLES:
  1. Integer miles: Balances are int64; fractional math happens only
     inside the calculator, via decimal.Decimal, and is rounded at the edge
  2. Denormalized tier: Member.TierName is a cache; every balance mutation
     recomputes it through the tier table
  3. Lifetime miles are monotone: only positive deltas ever increase them,
     nothing decreases them

SEE ALSO:
  - tiers.go: Tier table, resolver, progress calculator
  - mileage.go: Cabin-class mileage calculator
  - program.go: Ledger mutator and shop purchase engine
*/
package loyalty

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// MemberID is the opaque external identity key for an account.
type MemberID string

// ItemID identifies a shop catalog entry.
type ItemID string

// =============================================================================
// MEMBER - Mutable account record, one per external identity
// =============================================================================

// Member is a loyalty account. Accounts are created lazily on first
// access with zero balances and are never deleted.
type Member struct {
	ID               MemberID
	Miles            int64 // spendable balance; may go negative via Remove/Set
	LifetimeMiles    int64 // cumulative positive deltas, never decremented
	FlightsCompleted int64
	TierName         string // recomputed on every balance mutation
	JoinDate         time.Time
	Inventory        map[ItemID]int64 // item id -> purchased quantity
}

// NewMember returns a zeroed account for id with JoinDate set to now.
func NewMember(id MemberID, now time.Time) *Member {
	return &Member{
		ID:        id,
		TierName:  DefaultTiers().Lowest().Name,
		JoinDate:  now,
		Inventory: make(map[ItemID]int64),
	}
}

// =============================================================================
// TIER - Static tier definition
// =============================================================================

// Tier is one bracket of the tier table. MinMiles is inclusive; the
// bracket extends to the next tier's MinMiles (the last tier is
// unbounded). Multiplier is informational display metadata and is never
// applied automatically to awarded miles.
type Tier struct {
	Name       string
	MinMiles   int64
	MaxMiles   int64 // 0 on the last tier; see Unbounded
	Unbounded  bool
	Multiplier decimal.Decimal

	// Presentation metadata, opaque to the engine.
	RoleName     string
	DisplayColor string
	DisplayEmoji string
	Benefits     string
}

// =============================================================================
// SHOP ITEM - Admin-managed catalog entry
// =============================================================================

type ItemKind string

const (
	// ItemConsumable is the only kind in use. There is no consumption or
	// expiry logic beyond incrementing the inventory count.
	ItemConsumable ItemKind = "consumable"
)

// ShopItem is a purchasable reward.
type ShopItem struct {
	ID          ItemID
	Name        string
	Description string
	Emoji       string
	Cost        int64 // miles, positive
	Kind        ItemKind
}

// =============================================================================
// TRANSACTION - Append-only audit record
// =============================================================================

type TransactionType string

const (
	TxAward    TransactionType = "award"    // positive admin delta
	TxRemove   TransactionType = "remove"   // negative admin delta
	TxSet      TransactionType = "set"      // direct balance assignment
	TxPurchase TransactionType = "purchase" // shop debit
)

// Transaction records one balance mutation. The log is append-only;
// corrections are made with compensating entries, never edits.
type Transaction struct {
	ID        string
	MemberID  MemberID
	Type      TransactionType
	Delta     int64 // signed; for TxSet, the difference from the old balance
	Balance   int64 // balance after the mutation
	Reason    string
	ItemID    ItemID // set for TxPurchase
	Actor     string // who performed the mutation
	CreatedAt time.Time
}
