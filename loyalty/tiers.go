/*
tiers.go - Tier table, tier resolver, and progress calculator

PURPOSE:
  The tier table is a static ordered list of balance brackets. The
  resolver maps any integer balance to exactly one tier; the progress
  calculator derives percent-to-next-tier and a textual progress bar.

INVARIANTS:
  1. Tiers are ordered ascending by MinMiles and partition the
     non-negative integers: ranges are half-open [min, next.min) with
     the last tier unbounded. Exactly one tier matches any balance.
  2. Resolution is total: negative balances fall back to the lowest
     tier. No error path exists.
  3. Progress always resolves the tier fresh from the balance; it never
     trusts the denormalized Member.TierName.

SEE ALSO:
  - types.go: Tier definition
  - program.go: Mutations that recompute the cached tier name
*/
package loyalty

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TIER TABLE
// =============================================================================

// TierTable is an ordered list of tiers, ascending by MinMiles.
type TierTable struct {
	tiers []Tier
}

// NewTierTable builds a table from tiers already ordered by MinMiles.
func NewTierTable(tiers []Tier) *TierTable {
	return &TierTable{tiers: tiers}
}

// DefaultTiers returns the KrisFlyer program tiers.
func DefaultTiers() *TierTable {
	return NewTierTable([]Tier{
		{
			Name:         "KrisFlyer",
			MinMiles:     0,
			MaxMiles:     25_000,
			Multiplier:   decimal.NewFromFloat(1.0),
			RoleName:     "KrisFlyer Member",
			DisplayColor: "#00205B",
			DisplayEmoji: "✈️",
			Benefits:     "Standard accrual • Award redemption • Priority waitlist",
		},
		{
			Name:         "Elite Silver",
			MinMiles:     25_000,
			MaxMiles:     50_000,
			Multiplier:   decimal.NewFromFloat(1.25),
			RoleName:     "KrisFlyer Elite Silver",
			DisplayColor: "#C0C0C0",
			DisplayEmoji: "🥈",
			Benefits:     "KrisFlyer benefits • 25% bonus miles • Priority check-in • Extra baggage",
		},
		{
			Name:         "Elite Gold",
			MinMiles:     50_000,
			MaxMiles:     100_000,
			Multiplier:   decimal.NewFromFloat(1.5),
			RoleName:     "KrisFlyer Elite Gold",
			DisplayColor: "#D4AF37",
			DisplayEmoji: "🥇",
			Benefits:     "Elite Silver benefits • 50% bonus miles • Lounge access • Priority boarding",
		},
		{
			Name:         "PPS Club",
			MinMiles:     100_000,
			Unbounded:    true,
			Multiplier:   decimal.NewFromFloat(2.0),
			RoleName:     "KrisFlyer PPS Club",
			DisplayColor: "#D4AF37",
			DisplayEmoji: "👑",
			Benefits:     "Elite Gold benefits • 100% bonus miles • Guaranteed award seats • Dedicated hotline",
		},
	})
}

// All returns the tiers in ascending order.
func (t *TierTable) All() []Tier {
	out := make([]Tier, len(t.tiers))
	copy(out, t.tiers)
	return out
}

// Lowest returns the first tier.
func (t *TierTable) Lowest() Tier { return t.tiers[0] }

// Highest returns the last (unbounded) tier.
func (t *TierTable) Highest() Tier { return t.tiers[len(t.tiers)-1] }

// ByName looks a tier up by its display name, case-insensitive.
func (t *TierTable) ByName(name string) (Tier, bool) {
	for _, tier := range t.tiers {
		if strings.EqualFold(tier.Name, name) {
			return tier, true
		}
	}
	return Tier{}, false
}

// =============================================================================
// TIER RESOLVER
// =============================================================================

// Resolve returns the tier whose bracket contains miles. Brackets are
// half-open [min, next.min); the last tier is unbounded above. Balances
// below the lowest floor (negative) resolve to the lowest tier, so
// resolution is total.
func (t *TierTable) Resolve(miles int64) Tier {
	for i := len(t.tiers) - 1; i >= 0; i-- {
		if miles >= t.tiers[i].MinMiles {
			return t.tiers[i]
		}
	}
	return t.tiers[0]
}

// =============================================================================
// PROGRESS CALCULATOR
// =============================================================================

// Progress describes how far a balance is from the next tier.
type Progress struct {
	Current     Tier
	Next        Tier // zero value when MaxTier
	MaxTier     bool
	Percent     int64 // floor of 100 * (miles-cur.min)/(next.min-cur.min)
	MilesNeeded int64 // next.min - miles; 0 when MaxTier
}

// ProgressFor computes tier progress for a balance. The tier is resolved
// fresh from miles so a stale cached tier name can never skew the result.
func (t *TierTable) ProgressFor(miles int64) Progress {
	current := t.Resolve(miles)
	if current.Unbounded {
		return Progress{Current: current, MaxTier: true, Percent: 100}
	}

	var next Tier
	for i, tier := range t.tiers {
		if tier.Name == current.Name && i+1 < len(t.tiers) {
			next = t.tiers[i+1]
			break
		}
	}

	span := next.MinMiles - current.MinMiles
	into := miles - current.MinMiles
	if into < 0 {
		into = 0 // negative balances sit at the floor of the lowest tier
	}
	return Progress{
		Current:     current,
		Next:        next,
		Percent:     100 * into / span,
		MilesNeeded: next.MinMiles - miles,
	}
}

// =============================================================================
// PROGRESS BAR
// =============================================================================

const (
	// DefaultBarLength is the glyph count used by account renderings.
	DefaultBarLength = 20

	barFilled = "▰"
	barEmpty  = "▱"
)

// ProgressBar renders a fixed-width bar: round(length*percent/100) filled
// glyphs followed by the remainder empty.
func ProgressBar(percent int64, length int) string {
	if length <= 0 {
		length = DefaultBarLength
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int((int64(length)*percent + 50) / 100)
	return strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, length-filled)
}
