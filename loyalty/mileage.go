/*
mileage.go - Cabin-class mileage calculator

PURPOSE:
  Pure arithmetic: base miles x cabin-class factor x optional member
  bonus factor, rounded half-up to an integer. No side effects, no
  failure mode.

ROUNDING:
  decimal.Decimal keeps the factor math exact; Round(0) rounds half away
  from zero, which for non-negative inputs is exactly round-half-up.
  1000 x 1.25 x 1.25 = 1562.5 -> 1563.

UNKNOWN CABINS:
  An unrecognized cabin class earns the neutral 1.0 multiplier. This is
  a documented default branch, not an error.
*/
package loyalty

import "github.com/shopspring/decimal"

// =============================================================================
// CABIN CLASSES
// =============================================================================

// CabinClass is a fare cabin. The zero value is not a valid cabin and
// earns the neutral multiplier.
type CabinClass string

const (
	CabinEconomy        CabinClass = "Economy"
	CabinPremiumEconomy CabinClass = "Premium Economy"
	CabinBusiness       CabinClass = "Business"
	CabinFirst          CabinClass = "First"
	CabinSuites         CabinClass = "Suites"
)

// Cabins lists the known cabin classes in ascending fare order.
func Cabins() []CabinClass {
	return []CabinClass{CabinEconomy, CabinPremiumEconomy, CabinBusiness, CabinFirst, CabinSuites}
}

var cabinMultipliers = map[CabinClass]decimal.Decimal{
	CabinEconomy:        decimal.NewFromFloat(1.0),
	CabinPremiumEconomy: decimal.NewFromFloat(1.15),
	CabinBusiness:       decimal.NewFromFloat(1.25),
	CabinFirst:          decimal.NewFromFloat(1.5),
	CabinSuites:         decimal.NewFromFloat(1.75),
}

// memberBonusMultiplier is the fixed KrisFlyer bonus factor.
var memberBonusMultiplier = decimal.NewFromFloat(1.25)

// CabinMultiplier returns the earning factor for a cabin. Unknown cabins
// fall back to 1.0.
func CabinMultiplier(cabin CabinClass) decimal.Decimal {
	if m, ok := cabinMultipliers[cabin]; ok {
		return m
	}
	return decimal.NewFromInt(1)
}

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculation is the breakdown of one mileage computation.
type Calculation struct {
	BaseMiles       int64
	Cabin           CabinClass
	Bonus           bool
	CabinMultiplier decimal.Decimal
	BonusMultiplier decimal.Decimal
	TotalMultiplier decimal.Decimal
	EarnedMiles     int64
}

// CalculateMiles computes earned miles for a flight. Deterministic and
// monotone non-decreasing in baseMiles for a fixed cabin and bonus flag.
func CalculateMiles(baseMiles int64, cabin CabinClass, bonus bool) Calculation {
	cabinMult := CabinMultiplier(cabin)
	bonusMult := decimal.NewFromInt(1)
	if bonus {
		bonusMult = memberBonusMultiplier
	}
	total := cabinMult.Mul(bonusMult)
	earned := decimal.NewFromInt(baseMiles).Mul(total).Round(0).IntPart()

	return Calculation{
		BaseMiles:       baseMiles,
		Cabin:           cabin,
		Bonus:           bonus,
		CabinMultiplier: cabinMult,
		BonusMultiplier: bonusMult,
		TotalMultiplier: total,
		EarnedMiles:     earned,
	}
}
