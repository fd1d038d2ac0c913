package loyalty_test

import (
	"testing"

	"github.com/krisflyer/loyalty-engine/loyalty"
)

// =============================================================================
// CALCULATOR TESTS
// =============================================================================

func TestCalculateMiles_BusinessWithBonus_RoundsHalfUp(t *testing.T) {
	// GIVEN: 1000 base miles in Business with the member bonus
	// WHEN: 1000 x 1.25 x 1.25 = 1562.5
	// THEN: The half rounds up to 1563

	calc := loyalty.CalculateMiles(1000, loyalty.CabinBusiness, true)

	if calc.EarnedMiles != 1563 {
		t.Errorf("EarnedMiles = %d, want 1563", calc.EarnedMiles)
	}
	if calc.TotalMultiplier.String() != "1.5625" {
		t.Errorf("TotalMultiplier = %s, want 1.5625", calc.TotalMultiplier)
	}
}

func TestCalculateMiles_PerCabin(t *testing.T) {
	cases := []struct {
		cabin loyalty.CabinClass
		bonus bool
		want  int64
	}{
		{loyalty.CabinEconomy, false, 1000},
		{loyalty.CabinPremiumEconomy, false, 1150},
		{loyalty.CabinBusiness, false, 1250},
		{loyalty.CabinFirst, false, 1500},
		{loyalty.CabinSuites, false, 1750},
		{loyalty.CabinEconomy, true, 1250},
		{loyalty.CabinSuites, true, 2188}, // 2187.5 rounds up
	}
	for _, tc := range cases {
		calc := loyalty.CalculateMiles(1000, tc.cabin, tc.bonus)
		if calc.EarnedMiles != tc.want {
			t.Errorf("CalculateMiles(1000, %s, %v) = %d, want %d",
				tc.cabin, tc.bonus, calc.EarnedMiles, tc.want)
		}
	}
}

func TestCalculateMiles_UnknownCabin_NeutralMultiplier(t *testing.T) {
	// An unrecognized cabin earns base miles unchanged, not an error.
	calc := loyalty.CalculateMiles(500, loyalty.CabinClass("Cargo Hold"), false)
	if calc.EarnedMiles != 500 {
		t.Errorf("EarnedMiles = %d, want 500", calc.EarnedMiles)
	}
	if calc.CabinMultiplier.String() != "1" {
		t.Errorf("CabinMultiplier = %s, want 1", calc.CabinMultiplier)
	}
}

func TestCalculateMiles_ZeroBase(t *testing.T) {
	calc := loyalty.CalculateMiles(0, loyalty.CabinSuites, true)
	if calc.EarnedMiles != 0 {
		t.Errorf("EarnedMiles = %d, want 0", calc.EarnedMiles)
	}
}

func TestCalculateMiles_MonotoneInBaseMiles(t *testing.T) {
	// For a fixed cabin and bonus flag, more base miles never earns less.
	var prev int64 = -1
	for base := int64(0); base <= 2000; base += 37 {
		earned := loyalty.CalculateMiles(base, loyalty.CabinPremiumEconomy, true).EarnedMiles
		if earned < prev {
			t.Fatalf("earned miles decreased: base %d earned %d < %d", base, earned, prev)
		}
		prev = earned
	}
}
