/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the engine types
  from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
*/
package api

import (
	"time"

	"github.com/krisflyer/loyalty-engine/loyalty"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// AccountDTO is an account joined with its resolved tier and progress.
type AccountDTO struct {
	ID               string       `json:"id"`
	Miles            int64        `json:"miles"`
	LifetimeMiles    int64        `json:"lifetime_miles"`
	FlightsCompleted int64        `json:"flights_completed"`
	JoinDate         string       `json:"join_date"`
	Tier             TierDTO      `json:"tier"`
	Progress         *ProgressDTO `json:"progress,omitempty"` // nil at max tier
	MaxTier          bool         `json:"max_tier"`
}

// TierDTO is one tier table row.
type TierDTO struct {
	Name       string `json:"name"`
	MinMiles   int64  `json:"min_miles"`
	MaxMiles   *int64 `json:"max_miles,omitempty"` // nil on the unbounded tier
	Multiplier string `json:"multiplier"`
	RoleName   string `json:"role_name"`
	Color      string `json:"color"`
	Emoji      string `json:"emoji"`
	Benefits   string `json:"benefits"`
}

// ProgressDTO reports distance to the next tier.
type ProgressDTO struct {
	NextTier    string `json:"next_tier"`
	Percent     int64  `json:"percent"`
	MilesNeeded int64  `json:"miles_needed"`
	Bar         string `json:"bar"`
}

// ShopItemDTO is one catalog entry.
type ShopItemDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Emoji       string `json:"emoji"`
	Cost        int64  `json:"cost"`
	Kind        string `json:"kind"`
}

// InventoryEntryDTO is one owned item.
type InventoryEntryDTO struct {
	ItemID   string       `json:"item_id"`
	Quantity int64        `json:"quantity"`
	Item     *ShopItemDTO `json:"item,omitempty"`
}

// TransactionDTO is one audit trail row.
type TransactionDTO struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Delta     int64  `json:"delta"`
	Balance   int64  `json:"balance"`
	Reason    string `json:"reason,omitempty"`
	ItemID    string `json:"item_id,omitempty"`
	Actor     string `json:"actor,omitempty"`
	CreatedAt string `json:"created_at"`
}

// MutationDTO reports a balance mutation and its tier effect.
type MutationDTO struct {
	MemberID    string `json:"member_id"`
	OldMiles    int64  `json:"old_miles"`
	NewMiles    int64  `json:"new_miles"`
	OldTier     string `json:"old_tier"`
	NewTier     string `json:"new_tier"`
	TierChanged bool   `json:"tier_changed"`
}

// PurchaseDTO reports a successful purchase.
type PurchaseDTO struct {
	MemberID   string      `json:"member_id"`
	Item       ShopItemDTO `json:"item"`
	NewBalance int64       `json:"new_balance"`
	Quantity   int64       `json:"quantity"`
}

// CalculationDTO is the mileage calculator breakdown.
type CalculationDTO struct {
	BaseMiles       int64  `json:"base_miles"`
	Cabin           string `json:"cabin"`
	Bonus           bool   `json:"bonus"`
	CabinMultiplier string `json:"cabin_multiplier"`
	BonusMultiplier string `json:"bonus_multiplier"`
	TotalMultiplier string `json:"total_multiplier"`
	EarnedMiles     int64  `json:"earned_miles"`
}

// LeaderboardDTO is one page of the ranking.
type LeaderboardDTO struct {
	Page         int                        `json:"page"`
	TotalPages   int                        `json:"total_pages"`
	TotalMembers int                        `json:"total_members"`
	Entries      []loyalty.LeaderboardEntry `json:"entries"`
}

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// MutationRequest drives the admin award/remove/set routes.
type MutationRequest struct {
	MemberID         string `json:"member_id"`
	Miles            int64  `json:"miles"`
	Reason           string `json:"reason,omitempty"`
	FlightCompletion bool   `json:"flight_completion,omitempty"`
}

// PurchaseRequest names the item to buy.
type PurchaseRequest struct {
	ItemID string `json:"item_id"`
}

// AddItemRequest creates a catalog entry.
type AddItemRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Cost        int64  `json:"cost"`
	Description string `json:"description"`
	Emoji       string `json:"emoji,omitempty"`
}

// CommandRequest is the body of the generic dispatch endpoint.
type CommandRequest struct {
	Options map[string]string `json:"options,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toTierDTO(t loyalty.Tier) TierDTO {
	dto := TierDTO{
		Name:       t.Name,
		MinMiles:   t.MinMiles,
		Multiplier: t.Multiplier.String(),
		RoleName:   t.RoleName,
		Color:      t.DisplayColor,
		Emoji:      t.DisplayEmoji,
		Benefits:   t.Benefits,
	}
	if !t.Unbounded {
		max := t.MaxMiles
		dto.MaxMiles = &max
	}
	return dto
}

func toAccountDTO(view loyalty.AccountView) AccountDTO {
	m := view.Member
	dto := AccountDTO{
		ID:               string(m.ID),
		Miles:            m.Miles,
		LifetimeMiles:    m.LifetimeMiles,
		FlightsCompleted: m.FlightsCompleted,
		JoinDate:         m.JoinDate.Format(time.RFC3339),
		Tier:             toTierDTO(view.Tier),
		MaxTier:          view.Progress.MaxTier,
	}
	if !view.Progress.MaxTier {
		dto.Progress = &ProgressDTO{
			NextTier:    view.Progress.Next.Name,
			Percent:     view.Progress.Percent,
			MilesNeeded: view.Progress.MilesNeeded,
			Bar:         loyalty.ProgressBar(view.Progress.Percent, loyalty.DefaultBarLength),
		}
	}
	return dto
}

func toShopItemDTO(item loyalty.ShopItem) ShopItemDTO {
	return ShopItemDTO{
		ID:          string(item.ID),
		Name:        item.Name,
		Description: item.Description,
		Emoji:       item.Emoji,
		Cost:        item.Cost,
		Kind:        string(item.Kind),
	}
}

func toMutationDTO(id loyalty.MemberID, res loyalty.MutationResult) MutationDTO {
	return MutationDTO{
		MemberID:    string(id),
		OldMiles:    res.OldMiles,
		NewMiles:    res.NewMiles,
		OldTier:     res.OldTier.Name,
		NewTier:     res.NewTier.Name,
		TierChanged: res.TierChanged,
	}
}
