/*
handlers.go - Per-command implementations

Each handler parses options, runs the engine operation, and renders an
embed-style reply. Admin handlers check the role gate first; a failed
check performs no mutation.
*/
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/krisflyer/loyalty-engine/loyalty"
)

// =============================================================================
// ACCOUNT AND BALANCE
// =============================================================================

func (d *Dispatcher) account(ctx context.Context, inv Invocation) (Reply, error) {
	// "krisflyer" is always the invoker's own account; "balance" may
	// name another member.
	id := inv.ActorID
	barLength := loyalty.DefaultBarLength
	if inv.Command == "balance" {
		id = target(inv, "member_id")
		barLength = 15
	}

	view, err := d.program.Account(ctx, id)
	if err != nil {
		return Reply{}, err
	}
	m, tier := view.Member, view.Tier

	reply := Reply{
		Title:       fmt.Sprintf("%s KrisFlyer Account", tier.DisplayEmoji),
		Description: fmt.Sprintf("Miles information for **%s**", displayName(inv, id)),
		Color:       tier.DisplayColor,
		Footer:      footerText,
		Fields: []Field{
			{Name: fmt.Sprintf("%s Current Tier", tier.DisplayEmoji), Value: fmt.Sprintf("**%s**\n%s", tier.Name, tier.Benefits)},
			{Name: "✈️ Total Miles", Value: formatMiles(m.Miles), Inline: true},
			{Name: "⭐ Lifetime Miles", Value: formatMiles(m.LifetimeMiles), Inline: true},
			{Name: "🛫 Flights Completed", Value: fmt.Sprintf("%d", m.FlightsCompleted), Inline: true},
			{Name: "📅 Member Since", Value: m.JoinDate.Format("2 January 2006"), Inline: true},
			{Name: "🔢 Tier Multiplier", Value: tier.Multiplier.String() + "x", Inline: true},
		},
	}
	reply.Fields = append(reply.Fields, progressField(view.Progress, barLength))
	return reply, nil
}

// =============================================================================
// LEADERBOARD
// =============================================================================

func (d *Dispatcher) leaderboard(ctx context.Context, inv Invocation) (Reply, error) {
	page := int(optIntDefault(inv, "page", 1))

	board, err := d.program.Leaderboard(ctx, page)
	if err != nil {
		return Reply{}, err
	}

	if board.TotalMembers == 0 {
		return Reply{
			Title:       "✈️ KrisFlyer Leaderboard",
			Description: "No members have joined KrisFlyer yet!",
			Color:       ColorPrimary,
			Footer:      "Fly with Singapore Airlines to earn miles!",
		}, nil
	}

	reply := Reply{
		Title:       "⭐ KrisFlyer Leaderboard",
		Description: fmt.Sprintf("Top members ranked by miles • Page %d/%d", board.Page, board.TotalPages),
		Color:       ColorPrimary,
		Footer:      fmt.Sprintf("Page %d of %d • Singapore Airlines", board.Page, board.TotalPages),
	}
	for _, e := range board.Entries {
		medal := fmt.Sprintf("**#%d**", e.Rank)
		switch e.Rank {
		case 1:
			medal = "🥇"
		case 2:
			medal = "🥈"
		case 3:
			medal = "🥉"
		}
		reply.Fields = append(reply.Fields, Field{
			Name: fmt.Sprintf("%s %s", medal, e.MemberID),
			Value: fmt.Sprintf("%s %s • **%s** miles • %d flights",
				e.TierEmoji, e.TierName, formatMiles(e.Miles), e.FlightsCompleted),
		})
	}
	return reply, nil
}

// =============================================================================
// TIERS
// =============================================================================

func (d *Dispatcher) tiers(_ context.Context) (Reply, error) {
	reply := Reply{
		Title: "🛫 KrisFlyer Membership Tiers",
		Description: "Earn miles by flying with Singapore Airlines and Star Alliance partners. " +
			"Unlock exclusive benefits as you climb through the tiers!\n\n" +
			"**Each tier provides a multiplier bonus on earned miles**",
		Color:  ColorPrimary,
		Footer: "Singapore Airlines • Fly the world's best airline",
	}
	for _, tier := range d.program.Tiers().All() {
		reply.Fields = append(reply.Fields, Field{
			Name: fmt.Sprintf("%s %s", tier.DisplayEmoji, tier.Name),
			Value: fmt.Sprintf("**Range:** %s\n**Multiplier:** %sx\n**Benefits:** %s\n**Role:** %s",
				tierRange(tier), tier.Multiplier.String(), tier.Benefits, tier.RoleName),
		})
	}
	return reply, nil
}

// =============================================================================
// SHOP AND INVENTORY
// =============================================================================

func (d *Dispatcher) shop(ctx context.Context) (Reply, error) {
	items, err := d.program.Catalog(ctx)
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{
		Title:       "✈️ KrisFlyer Rewards Shop",
		Description: "Redeem your miles for exclusive rewards and upgrades!",
		Color:       ColorPrimary,
		Footer:      "Use the buy command with an item ID to purchase • Singapore Airlines",
	}
	if len(items) == 0 {
		reply.Fields = append(reply.Fields, Field{
			Name: "No Items", Value: "The shop is currently empty. Check back later!",
		})
		return reply, nil
	}
	for _, item := range items {
		reply.Fields = append(reply.Fields, Field{
			Name: fmt.Sprintf("%s %s", item.Emoji, item.Name),
			Value: fmt.Sprintf("%s\n**Cost:** %s miles\n**ID:** `%s`",
				item.Description, formatMiles(item.Cost), item.ID),
		})
	}
	return reply, nil
}

func (d *Dispatcher) inventory(ctx context.Context, inv Invocation) (Reply, error) {
	entries, err := d.program.Inventory(ctx, inv.ActorID)
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{
		Title:       "🎒 Your Inventory",
		Description: "Items you've redeemed with your KrisFlyer miles",
		Color:       ColorPrimary,
		Footer:      footerText,
	}
	if len(entries) == 0 {
		reply.Fields = append(reply.Fields, Field{
			Name:  "Empty Inventory",
			Value: "You haven't purchased any items yet.\nVisit the shop to browse available rewards!",
		})
		return reply, nil
	}
	for _, e := range entries {
		if e.Item == nil {
			// Catalog entry has since disappeared; show the raw id.
			reply.Fields = append(reply.Fields, Field{
				Name:   fmt.Sprintf("🎁 %s", e.ItemID),
				Value:  fmt.Sprintf("**Quantity:** %d", e.Quantity),
				Inline: true,
			})
			continue
		}
		reply.Fields = append(reply.Fields, Field{
			Name:   fmt.Sprintf("%s %s", e.Item.Emoji, e.Item.Name),
			Value:  fmt.Sprintf("**Quantity:** %d\n%s", e.Quantity, e.Item.Description),
			Inline: true,
		})
	}
	return reply, nil
}

// =============================================================================
// CALCULATOR
// =============================================================================

func (d *Dispatcher) calculate(_ context.Context, inv Invocation) (Reply, error) {
	base, err := optInt(inv, "base_miles")
	if err != nil {
		return Reply{}, err
	}
	if base < 0 {
		return Reply{}, fmt.Errorf("%w: base_miles must be non-negative", loyalty.ErrInvalidArgument)
	}
	cabin := loyalty.CabinClass(optString(inv, "cabin"))
	bonus := optBool(inv, "bonus")

	calc := loyalty.CalculateMiles(base, cabin, bonus)

	bonusText := "No"
	if calc.Bonus {
		bonusText = "Yes (1.25x)"
	}
	reply := Reply{
		Title:       "🧮 Miles Calculator",
		Description: "Miles calculation for your flight",
		Color:       ColorSuccess,
		Footer:      "Singapore Airlines • Miles subject to booking class",
		Fields: []Field{
			{Name: "Base Miles", Value: formatMiles(calc.BaseMiles), Inline: true},
			{Name: "Cabin Class", Value: string(calc.Cabin), Inline: true},
			{Name: "KrisFlyer Bonus", Value: bonusText, Inline: true},
			{Name: "Cabin Multiplier", Value: calc.CabinMultiplier.String() + "x", Inline: true},
			{Name: "Total Multiplier", Value: calc.TotalMultiplier.String() + "x", Inline: true},
			{Name: "✈️ Total Miles Earned", Value: fmt.Sprintf("**%s** miles", formatMiles(calc.EarnedMiles)), Inline: true},
		},
	}
	if !knownCabin(cabin) {
		reply.Fields = append(reply.Fields, Field{
			Name:  "ℹ️ Cabin Classes",
			Value: fmt.Sprintf("Unrecognized cabin; the standard 1x rate was applied.\nKnown cabins: %s", cabinList()),
		})
	}
	return reply, nil
}

// knownCabin reports whether the cabin is in the earning table.
func knownCabin(cabin loyalty.CabinClass) bool {
	for _, c := range loyalty.Cabins() {
		if c == cabin {
			return true
		}
	}
	return false
}

// =============================================================================
// HISTORY
// =============================================================================

func (d *Dispatcher) history(ctx context.Context, inv Invocation) (Reply, error) {
	id := target(inv, "member_id")
	txs, err := d.program.History(ctx, id)
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{
		Title:       "📜 Mileage History",
		Description: fmt.Sprintf("Recent activity for **%s**", id),
		Color:       ColorPrimary,
		Footer:      footerText,
	}
	if len(txs) == 0 {
		reply.Fields = append(reply.Fields, Field{Name: "No Activity", Value: "No mileage activity recorded yet."})
		return reply, nil
	}
	const maxShown = 10
	for i, tx := range txs {
		if i == maxShown {
			break
		}
		value := fmt.Sprintf("%+d miles → balance %s", tx.Delta, formatMiles(tx.Balance))
		if tx.Reason != "" {
			value += "\n" + tx.Reason
		}
		if tx.ItemID != "" {
			value += fmt.Sprintf("\nItem: `%s`", tx.ItemID)
		}
		reply.Fields = append(reply.Fields, Field{
			Name:  fmt.Sprintf("%s • %s", tx.Type, tx.CreatedAt.Format(time.RFC822)),
			Value: value,
		})
	}
	return reply, nil
}

// =============================================================================
// PURCHASE
// =============================================================================

func (d *Dispatcher) buy(ctx context.Context, inv Invocation) (Reply, error) {
	itemID := optString(inv, "item_id")
	if itemID == "" {
		return Reply{}, fmt.Errorf("%w: option \"item_id\" is required", loyalty.ErrInvalidArgument)
	}

	res, err := d.program.Purchase(ctx, inv.ActorID, loyalty.ItemID(itemID))
	if err != nil {
		return Reply{}, err
	}

	return Reply{
		Title: "👍 Purchase Successful",
		Description: fmt.Sprintf("You purchased **%s** for **%s** miles.",
			res.Item.Name, formatMiles(res.Item.Cost)),
		Color:  ColorSuccess,
		Footer: footerText,
		Fields: []Field{
			{Name: "Remaining Balance", Value: formatMiles(res.NewBalance) + " miles", Inline: true},
			{Name: "Item", Value: fmt.Sprintf("%s %s", res.Item.Emoji, res.Item.Name), Inline: true},
		},
	}, nil
}

// =============================================================================
// ADMIN - Award / Remove / Set / AddItem
// =============================================================================

func (d *Dispatcher) awardMiles(ctx context.Context, inv Invocation) (Reply, error) {
	if err := d.requireAdmin(inv); err != nil {
		return Reply{}, err
	}
	id, err := requiredTarget(inv, "member_id")
	if err != nil {
		return Reply{}, err
	}
	miles, err := optInt(inv, "miles")
	if err != nil {
		return Reply{}, err
	}
	reason := optString(inv, "reason")
	flight := optBool(inv, "flight_completion")

	res, err := d.program.Award(ctx, actorName(inv), id, miles, reason, flight)
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{
		Title: "👍 Miles Awarded",
		Description: fmt.Sprintf("Successfully awarded **%s** miles to **%s**",
			formatMiles(miles), id),
		Color:  ColorSuccess,
		Footer: "Singapore Airlines • KrisFlyer",
		Fields: []Field{
			{Name: "Previous Balance", Value: formatMiles(res.OldMiles) + " miles", Inline: true},
			{Name: "New Balance", Value: formatMiles(res.NewMiles) + " miles", Inline: true},
			{Name: "Amount Added", Value: "+" + formatMiles(miles), Inline: true},
		},
	}
	if flight {
		flightReason := reason
		if flightReason == "" {
			flightReason = "Yes"
		}
		reply.Fields = append(reply.Fields,
			Field{Name: "🛫 Flight Completed", Value: flightReason, Inline: true},
			Field{Name: "📊 Total Flights", Value: fmt.Sprintf("%d", res.Member.FlightsCompleted), Inline: true})
	} else if reason != "" {
		reply.Fields = append(reply.Fields, Field{Name: "📝 Reason", Value: reason})
	}
	if res.TierChanged {
		reply.Color = res.NewTier.DisplayColor
		reply.Fields = append(reply.Fields, Field{
			Name: "⭐ Tier Upgrade!",
			Value: fmt.Sprintf("%s %s → %s %s",
				res.OldTier.DisplayEmoji, res.OldTier.Name, res.NewTier.DisplayEmoji, res.NewTier.Name),
		})
	}
	reply.Fields = append(reply.Fields, Field{Name: "👤 Awarded By", Value: actorName(inv)})
	return reply, nil
}

func (d *Dispatcher) removeMiles(ctx context.Context, inv Invocation) (Reply, error) {
	if err := d.requireAdmin(inv); err != nil {
		return Reply{}, err
	}
	id, err := requiredTarget(inv, "member_id")
	if err != nil {
		return Reply{}, err
	}
	miles, err := optInt(inv, "miles")
	if err != nil {
		return Reply{}, err
	}
	reason := optString(inv, "reason")

	res, err := d.program.Remove(ctx, actorName(inv), id, miles, reason)
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{
		Title:       "👎 Miles Removed",
		Description: fmt.Sprintf("Removed **%s** miles from **%s**", formatMiles(miles), id),
		Color:       ColorError,
		Footer:      "Singapore Airlines • KrisFlyer",
		Fields: []Field{
			{Name: "Previous Balance", Value: formatMiles(res.OldMiles) + " miles", Inline: true},
			{Name: "New Balance", Value: formatMiles(res.NewMiles) + " miles", Inline: true},
			{Name: "Amount Removed", Value: "-" + formatMiles(miles), Inline: true},
		},
	}
	if reason != "" {
		reply.Fields = append(reply.Fields, Field{Name: "📝 Reason", Value: reason})
	}
	if res.TierChanged {
		reply.Fields = append(reply.Fields, Field{
			Name: "⬇️ Tier Changed",
			Value: fmt.Sprintf("%s %s → %s %s",
				res.OldTier.DisplayEmoji, res.OldTier.Name, res.NewTier.DisplayEmoji, res.NewTier.Name),
		})
	}
	reply.Fields = append(reply.Fields, Field{Name: "👤 Removed By", Value: actorName(inv)})
	return reply, nil
}

func (d *Dispatcher) setMiles(ctx context.Context, inv Invocation) (Reply, error) {
	if err := d.requireAdmin(inv); err != nil {
		return Reply{}, err
	}
	id, err := requiredTarget(inv, "member_id")
	if err != nil {
		return Reply{}, err
	}
	miles, err := optInt(inv, "miles")
	if err != nil {
		return Reply{}, err
	}

	res, err := d.program.Set(ctx, actorName(inv), id, miles)
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{
		Title:       "👍 Miles Updated",
		Description: fmt.Sprintf("Set miles for **%s**", id),
		Color:       ColorSuccess,
		Fields: []Field{
			{Name: "Previous Balance", Value: formatMiles(res.OldMiles) + " miles", Inline: true},
			{Name: "New Balance", Value: formatMiles(res.NewMiles) + " miles", Inline: true},
		},
	}
	if res.TierChanged {
		reply.Fields = append(reply.Fields, Field{
			Name: "⭐ Tier Update",
			Value: fmt.Sprintf("%s %s → %s %s",
				res.OldTier.DisplayEmoji, res.OldTier.Name, res.NewTier.DisplayEmoji, res.NewTier.Name),
		})
	}
	return reply, nil
}

func (d *Dispatcher) addItem(ctx context.Context, inv Invocation) (Reply, error) {
	if err := d.requireAdmin(inv); err != nil {
		return Reply{}, err
	}
	cost, err := optInt(inv, "cost")
	if err != nil {
		return Reply{}, err
	}

	item := loyalty.ShopItem{
		ID:          loyalty.ItemID(optString(inv, "id")),
		Name:        optString(inv, "name"),
		Description: optString(inv, "description"),
		Emoji:       optString(inv, "emoji"),
		Cost:        cost,
	}
	if err := d.program.AddItem(ctx, item); err != nil {
		return Reply{}, err
	}

	return Reply{
		Title:       "👍 Item Added",
		Description: fmt.Sprintf("Successfully added **%s** to the shop!", item.Name),
		Color:       ColorSuccess,
		Fields: []Field{
			{Name: "ID", Value: string(item.ID), Inline: true},
			{Name: "Cost", Value: formatMiles(item.Cost) + " miles", Inline: true},
		},
	}, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func actorName(inv Invocation) string {
	if inv.ActorName != "" {
		return inv.ActorName
	}
	return string(inv.ActorID)
}

func displayName(inv Invocation, id loyalty.MemberID) string {
	if id == inv.ActorID && inv.ActorName != "" {
		return inv.ActorName
	}
	return string(id)
}
