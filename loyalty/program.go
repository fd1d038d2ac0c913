/*
program.go - Ledger mutator, shop purchase engine, and leaderboard

PURPOSE:
  Program is the orchestration layer of the engine. It owns the tier
  table, talks to the stores, and implements the mutating operations:
  award, remove, set, purchase, and catalog administration. Reads
  (account, leaderboard, inventory, history) live here too.

TIER POLICY:
  Award/Remove/Set recompute the cached tier after the balance change.
  Purchase does NOT: tier reflects earning history, not spendable
  balance, so a shop debit never demotes a member.

SIDE EFFECTS:
  After a mutation whose tier changed, the TierChangeListener fires;
  awards also notify the member. Both are fire-and-forget: failures are
  logged and never roll back the persisted mutation.

SEE ALSO:
  - store.go: Persistence and collaborator interfaces
  - tiers.go: Resolution and progress
*/
package loyalty

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LeaderboardPageSize is the number of entries per leaderboard page.
const LeaderboardPageSize = 10

// leaderboardCacheKey holds the full sorted listing; pages are sliced
// from it after load.
const (
	leaderboardCacheKey = "krisflyer:leaderboard"
	leaderboardCacheTTL = 30 * time.Second
)

// =============================================================================
// PROGRAM
// =============================================================================

// Program wires the engine's stores and collaborators together.
type Program struct {
	logger  *zap.Logger
	tiers   *TierTable
	members MemberStore
	catalog CatalogStore
	txlog   TransactionLog

	cache    Cache              // optional
	listener TierChangeListener // optional
	notifier Notifier           // optional

	now func() time.Time
}

// Option configures optional Program collaborators.
type Option func(*Program)

// WithCache enables the leaderboard cache.
func WithCache(c Cache) Option { return func(p *Program) { p.cache = c } }

// WithTierChangeListener registers the external role-sync collaborator.
func WithTierChangeListener(l TierChangeListener) Option {
	return func(p *Program) { p.listener = l }
}

// WithNotifier registers the best-effort member notifier.
func WithNotifier(n Notifier) Option { return func(p *Program) { p.notifier = n } }

// WithClock overrides the time source. Tests use this to pin JoinDate
// and transaction timestamps.
func WithClock(now func() time.Time) Option { return func(p *Program) { p.now = now } }

// NewProgram creates the engine over the given stores.
func NewProgram(logger *zap.Logger, members MemberStore, catalog CatalogStore, txlog TransactionLog, opts ...Option) *Program {
	p := &Program{
		logger:  logger,
		tiers:   DefaultTiers(),
		members: members,
		catalog: catalog,
		txlog:   txlog,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Tiers exposes the static tier table.
func (p *Program) Tiers() *TierTable { return p.tiers }

// =============================================================================
// ACCOUNT READS
// =============================================================================

// AccountView is a member joined with its freshly resolved tier and
// progress.
type AccountView struct {
	Member   *Member
	Tier     Tier
	Progress Progress
}

// Account returns the member's account, creating it on first access.
func (p *Program) Account(ctx context.Context, id MemberID) (AccountView, error) {
	m, err := p.members.GetOrCreate(ctx, id)
	if err != nil {
		return AccountView{}, fmt.Errorf("load account %s: %w", id, err)
	}
	return AccountView{
		Member:   m,
		Tier:     p.tiers.Resolve(m.Miles),
		Progress: p.tiers.ProgressFor(m.Miles),
	}, nil
}

// =============================================================================
// LEDGER MUTATOR - Award / Remove / Set
// =============================================================================

// MutationResult reports a balance mutation and its tier effect.
type MutationResult struct {
	Member      *Member
	OldMiles    int64
	NewMiles    int64
	OldTier     Tier
	NewTier     Tier
	TierChanged bool
}

// Award credits miles, grows lifetime miles, and optionally counts a
// completed flight. Delta must be positive.
func (p *Program) Award(ctx context.Context, actor string, id MemberID, miles int64, reason string, flightCompleted bool) (MutationResult, error) {
	if miles <= 0 {
		return MutationResult{}, fmt.Errorf("%w: award requires a positive amount", ErrInvalidArgument)
	}
	res, err := p.mutate(ctx, id, func(m *Member) {
		if flightCompleted {
			m.FlightsCompleted++
		}
		m.Miles += miles
		m.LifetimeMiles += miles
	})
	if err != nil {
		return MutationResult{}, err
	}
	if err := p.record(ctx, Transaction{
		MemberID: id, Type: TxAward, Delta: miles, Balance: res.NewMiles,
		Reason: reason, Actor: actor,
	}); err != nil {
		return MutationResult{}, err
	}
	p.afterMutation(ctx, id, res)
	p.notifyAward(ctx, id, res, reason)
	return res, nil
}

// Remove debits miles. Lifetime miles only grow on positive deltas, so
// they are untouched; the balance is not floored and may go negative.
func (p *Program) Remove(ctx context.Context, actor string, id MemberID, miles int64, reason string) (MutationResult, error) {
	if miles <= 0 {
		return MutationResult{}, fmt.Errorf("%w: remove requires a positive amount", ErrInvalidArgument)
	}
	res, err := p.mutate(ctx, id, func(m *Member) {
		m.Miles -= miles
	})
	if err != nil {
		return MutationResult{}, err
	}
	if err := p.record(ctx, Transaction{
		MemberID: id, Type: TxRemove, Delta: -miles, Balance: res.NewMiles,
		Reason: reason, Actor: actor,
	}); err != nil {
		return MutationResult{}, err
	}
	p.afterMutation(ctx, id, res)
	return res, nil
}

// Set assigns the balance directly, leaving lifetime miles and flight
// count untouched.
func (p *Program) Set(ctx context.Context, actor string, id MemberID, miles int64) (MutationResult, error) {
	res, err := p.mutate(ctx, id, func(m *Member) {
		m.Miles = miles
	})
	if err != nil {
		return MutationResult{}, err
	}
	if err := p.record(ctx, Transaction{
		MemberID: id, Type: TxSet, Delta: res.NewMiles - res.OldMiles, Balance: res.NewMiles,
		Actor: actor,
	}); err != nil {
		return MutationResult{}, err
	}
	p.afterMutation(ctx, id, res)
	return res, nil
}

// mutate runs fn under the store's per-record RMW, recomputes the cached
// tier name, and reports the before/after tiers.
func (p *Program) mutate(ctx context.Context, id MemberID, fn func(*Member)) (MutationResult, error) {
	var res MutationResult
	m, err := p.members.Update(ctx, id, func(m *Member) error {
		res.OldMiles = m.Miles
		res.OldTier = p.tiers.Resolve(m.Miles)
		fn(m)
		res.NewMiles = m.Miles
		res.NewTier = p.tiers.Resolve(m.Miles)
		m.TierName = res.NewTier.Name
		return nil
	})
	if err != nil {
		return MutationResult{}, fmt.Errorf("mutate %s: %w", id, err)
	}
	res.Member = m
	res.TierChanged = res.OldTier.Name != res.NewTier.Name
	return res, nil
}

// =============================================================================
// SHOP - Purchase engine and catalog administration
// =============================================================================

// PurchaseResult reports a successful purchase.
type PurchaseResult struct {
	Member     *Member
	Item       ShopItem
	NewBalance int64
	Quantity   int64 // inventory count for the item after the purchase
}

// Purchase debits the item cost and credits the inventory count. The
// tier is not recomputed: spending miles never demotes.
func (p *Program) Purchase(ctx context.Context, id MemberID, itemID ItemID) (PurchaseResult, error) {
	item, err := p.catalog.GetItem(ctx, itemID)
	if err != nil {
		return PurchaseResult{}, fmt.Errorf("load item %s: %w", itemID, err)
	}
	if item == nil {
		return PurchaseResult{}, &ItemNotFoundError{ItemID: itemID}
	}

	var quantity int64
	m, err := p.members.Update(ctx, id, func(m *Member) error {
		if m.Miles < item.Cost {
			return &InsufficientBalanceError{
				MemberID:  id,
				ItemID:    itemID,
				Cost:      item.Cost,
				Balance:   m.Miles,
				Shortfall: item.Cost - m.Miles,
			}
		}
		m.Miles -= item.Cost
		if m.Inventory == nil {
			m.Inventory = make(map[ItemID]int64)
		}
		m.Inventory[itemID]++
		quantity = m.Inventory[itemID]
		return nil
	})
	if err != nil {
		return PurchaseResult{}, err
	}
	if err := p.record(ctx, Transaction{
		MemberID: id, Type: TxPurchase, Delta: -item.Cost, Balance: m.Miles,
		ItemID: itemID, Actor: string(id),
	}); err != nil {
		return PurchaseResult{}, err
	}
	p.invalidateLeaderboard(ctx)
	return PurchaseResult{Member: m, Item: *item, NewBalance: m.Miles, Quantity: quantity}, nil
}

// AddItem registers a new catalog entry. Duplicate ids are rejected.
func (p *Program) AddItem(ctx context.Context, item ShopItem) error {
	if item.ID == "" || item.Name == "" {
		return fmt.Errorf("%w: item id and name are required", ErrInvalidArgument)
	}
	if item.Cost <= 0 {
		return fmt.Errorf("%w: item cost must be positive", ErrInvalidArgument)
	}
	if item.Kind == "" {
		item.Kind = ItemConsumable
	}
	if item.Emoji == "" {
		item.Emoji = "🎁"
	}
	if err := p.catalog.InsertItem(ctx, item); err != nil {
		return err
	}
	return nil
}

// Catalog lists the shop.
func (p *Program) Catalog(ctx context.Context) ([]ShopItem, error) {
	return p.catalog.ListItems(ctx)
}

// InventoryEntry joins an owned quantity with its catalog item. Item is
// nil when the catalog entry has since disappeared.
type InventoryEntry struct {
	ItemID   ItemID
	Quantity int64
	Item     *ShopItem
}

// Inventory returns the member's purchases joined with the catalog,
// ordered by item id.
func (p *Program) Inventory(ctx context.Context, id MemberID) ([]InventoryEntry, error) {
	m, err := p.members.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := make([]ItemID, 0, len(m.Inventory))
	for itemID := range m.Inventory {
		ids = append(ids, itemID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	entries := make([]InventoryEntry, 0, len(ids))
	for _, itemID := range ids {
		item, err := p.catalog.GetItem(ctx, itemID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, InventoryEntry{ItemID: itemID, Quantity: m.Inventory[itemID], Item: item})
	}
	return entries, nil
}

// DefaultCatalog returns the items the shop is seeded with.
func DefaultCatalog() []ShopItem {
	return []ShopItem{
		{ID: "companion-ticket", Name: "Companion Ticket", Description: "Bring a companion on award travel", Cost: 25_000, Emoji: "👥", Kind: ItemConsumable},
		{ID: "extra-baggage", Name: "Extra Baggage Allowance", Description: "Additional 10kg baggage allowance", Cost: 6_000, Emoji: "🧳", Kind: ItemConsumable},
		{ID: "lounge-pass", Name: "SilverKris Lounge Pass", Description: "Single-use lounge access pass", Cost: 5_000, Emoji: "🎫", Kind: ItemConsumable},
		{ID: "priority-boarding", Name: "Priority Boarding Pass", Description: "Priority boarding for your next 5 flights", Cost: 8_000, Emoji: "🎟️", Kind: ItemConsumable},
		{ID: "upgrade-voucher", Name: "Upgrade Voucher", Description: "One-way cabin upgrade certificate", Cost: 15_000, Emoji: "🛫", Kind: ItemConsumable},
	}
}

// SeedCatalog inserts the default items into an empty catalog. A catalog
// with any items at all is left alone.
func (p *Program) SeedCatalog(ctx context.Context) error {
	items, err := p.catalog.ListItems(ctx)
	if err != nil {
		return err
	}
	if len(items) > 0 {
		return nil
	}
	for _, item := range DefaultCatalog() {
		if err := p.catalog.InsertItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// LEADERBOARD
// =============================================================================

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank             int      `json:"rank"`
	MemberID         MemberID `json:"member_id"`
	Miles            int64    `json:"miles"`
	FlightsCompleted int64    `json:"flights_completed"`
	TierName         string   `json:"tier_name"`
	TierEmoji        string   `json:"tier_emoji"`
}

// LeaderboardPage is one page of the ranking.
type LeaderboardPage struct {
	Page         int
	TotalPages   int
	TotalMembers int
	Entries      []LeaderboardEntry
}

// Leaderboard ranks all members by spendable miles, descending, ten per
// page. Pages out of range come back empty. The full sorted listing is
// cached briefly and invalidated on every balance mutation.
func (p *Program) Leaderboard(ctx context.Context, page int) (LeaderboardPage, error) {
	if page < 1 {
		page = 1
	}

	entries, err := p.rankedEntries(ctx)
	if err != nil {
		return LeaderboardPage{}, err
	}

	total := len(entries)
	totalPages := (total + LeaderboardPageSize - 1) / LeaderboardPageSize
	start := (page - 1) * LeaderboardPageSize
	end := start + LeaderboardPageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return LeaderboardPage{
		Page:         page,
		TotalPages:   totalPages,
		TotalMembers: total,
		Entries:      entries[start:end],
	}, nil
}

func (p *Program) rankedEntries(ctx context.Context) ([]LeaderboardEntry, error) {
	if p.cache != nil {
		if raw, err := p.cache.Get(ctx, leaderboardCacheKey); err == nil {
			var cached []LeaderboardEntry
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
	}

	members, err := p.members.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Miles != members[j].Miles {
			return members[i].Miles > members[j].Miles
		}
		return members[i].ID < members[j].ID // stable order across reloads
	})

	entries := make([]LeaderboardEntry, len(members))
	for i, m := range members {
		tier := p.tiers.Resolve(m.Miles)
		entries[i] = LeaderboardEntry{
			Rank:             i + 1,
			MemberID:         m.ID,
			Miles:            m.Miles,
			FlightsCompleted: m.FlightsCompleted,
			TierName:         tier.Name,
			TierEmoji:        tier.DisplayEmoji,
		}
	}

	if p.cache != nil {
		if raw, err := json.Marshal(entries); err == nil {
			if err := p.cache.Set(ctx, leaderboardCacheKey, raw, leaderboardCacheTTL); err != nil {
				p.logger.Warn("leaderboard cache set failed", zap.Error(err))
			}
		}
	}
	return entries, nil
}

func (p *Program) invalidateLeaderboard(ctx context.Context) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Delete(ctx, leaderboardCacheKey); err != nil {
		p.logger.Warn("leaderboard cache invalidation failed", zap.Error(err))
	}
}

// =============================================================================
// HISTORY
// =============================================================================

// History returns a member's audit trail, newest first. Unlike account
// reads it does not create the member.
func (p *Program) History(ctx context.Context, id MemberID) ([]Transaction, error) {
	m, err := p.members.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMemberNotFound
	}
	return p.txlog.Transactions(ctx, id)
}

// =============================================================================
// INTERNAL - Audit, cache, collaborators
// =============================================================================

func (p *Program) record(ctx context.Context, tx Transaction) error {
	tx.ID = uuid.NewString()
	tx.CreatedAt = p.now()
	if err := p.txlog.AppendTransaction(ctx, tx); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

// afterMutation handles the side effects common to award/remove/set:
// cache invalidation and external role sync. Collaborator failures are
// logged and never undo the persisted mutation.
func (p *Program) afterMutation(ctx context.Context, id MemberID, res MutationResult) {
	p.invalidateLeaderboard(ctx)
	if res.TierChanged && p.listener != nil {
		if err := p.listener.TierChanged(ctx, id, res.OldTier, res.NewTier); err != nil {
			p.logger.Warn("tier change sync failed",
				zap.String("member", string(id)),
				zap.String("new_tier", res.NewTier.Name),
				zap.Error(err))
		}
	}
}

func (p *Program) notifyAward(ctx context.Context, id MemberID, res MutationResult, reason string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.MilesAwarded(ctx, id, res, reason); err != nil {
		p.logger.Warn("member notification failed",
			zap.String("member", string(id)),
			zap.Error(err))
	}
}
