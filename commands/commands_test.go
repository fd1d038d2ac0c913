package commands_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/krisflyer/loyalty-engine/commands"
	"github.com/krisflyer/loyalty-engine/loyalty"
	"github.com/krisflyer/loyalty-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestDispatcher(t *testing.T) (*commands.Dispatcher, *loyalty.Program) {
	t.Helper()
	store := memory.New()
	program := loyalty.NewProgram(zap.NewNop(), store, store, store)
	require.NoError(t, program.SeedCatalog(context.Background()))
	return commands.NewDispatcher(zap.NewNop(), program, ""), program
}

func adminInvocation(command string, options map[string]string) commands.Invocation {
	return commands.Invocation{
		Command:    command,
		ActorID:    "admin-1",
		ActorName:  "Ops",
		ActorRoles: []string{"Bot Management"},
		Options:    options,
	}
}

func memberInvocation(command string, options map[string]string) commands.Invocation {
	return commands.Invocation{
		Command:   command,
		ActorID:   "alice",
		ActorName: "Alice",
		Options:   options,
	}
}

func fieldValue(t *testing.T, reply commands.Reply, name string) string {
	t.Helper()
	for _, f := range reply.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	t.Fatalf("reply %q has no field %q; fields: %+v", reply.Title, name, reply.Fields)
	return ""
}

// =============================================================================
// AUTHORIZATION
// =============================================================================

func TestDispatch_AdminCommand_WithoutRole_Rejected(t *testing.T) {
	// GIVEN: A member without the admin role
	// WHEN: Running awardmiles
	// THEN: The command is rejected and no balance changes

	d, p := newTestDispatcher(t)
	ctx := context.Background()

	inv := memberInvocation("awardmiles", map[string]string{"member_id": "alice", "miles": "1000"})
	_, err := d.Dispatch(ctx, inv)
	require.ErrorIs(t, err, loyalty.ErrUnauthorized)

	view, accErr := p.Account(ctx, "alice")
	require.NoError(t, accErr)
	assert.Equal(t, int64(0), view.Member.Miles)

	reply, ok := commands.RejectionReply(err)
	require.True(t, ok)
	assert.True(t, reply.Ephemeral)
	assert.Contains(t, reply.Description, "Bot Management")
}

func TestDispatch_AdminRole_CaseInsensitive(t *testing.T) {
	d, _ := newTestDispatcher(t)

	inv := commands.Invocation{
		Command:    "setmiles",
		ActorID:    "admin-1",
		ActorRoles: []string{"bot management"},
		Options:    map[string]string{"member_id": "alice", "miles": "500"},
	}
	_, err := d.Dispatch(context.Background(), inv)
	assert.NoError(t, err)
}

func TestDispatch_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), memberInvocation("teleport", nil))
	assert.ErrorIs(t, err, commands.ErrUnknownCommand)
}

// =============================================================================
// ACCOUNT VIEWS
// =============================================================================

func TestDispatch_Krisflyer_ShowsOwnAccount(t *testing.T) {
	d, p := newTestDispatcher(t)
	ctx := context.Background()

	_, err := p.Award(ctx, "admin", "alice", 30_000, "", true)
	require.NoError(t, err)

	reply, err := d.Dispatch(ctx, memberInvocation("krisflyer", nil))
	require.NoError(t, err)

	assert.Contains(t, reply.Title, "KrisFlyer Account")
	assert.Contains(t, reply.Description, "Alice")
	assert.Equal(t, "#C0C0C0", reply.Color, "Elite Silver branding")
	assert.Equal(t, "30,000", fieldValue(t, reply, "✈️ Total Miles"))
	assert.Equal(t, "1.25x", fieldValue(t, reply, "🔢 Tier Multiplier"))

	progress := fieldValue(t, reply, "📊 Progress to Next Tier")
	assert.Contains(t, progress, "20%")
	assert.Contains(t, progress, "20,000")
	assert.Contains(t, progress, "Elite Gold")
	// The self view renders the 20-glyph bar.
	assert.Equal(t, 20, strings.Count(progress, "▰")+strings.Count(progress, "▱"))
}

func TestDispatch_Balance_OtherMember_ShortBar(t *testing.T) {
	d, p := newTestDispatcher(t)
	ctx := context.Background()

	_, err := p.Award(ctx, "admin", "bob", 10_000, "", false)
	require.NoError(t, err)

	reply, err := d.Dispatch(ctx, memberInvocation("balance", map[string]string{"member_id": "bob"}))
	require.NoError(t, err)

	assert.Contains(t, reply.Description, "bob")
	progress := fieldValue(t, reply, "📊 Progress to Next Tier")
	assert.Equal(t, 15, strings.Count(progress, "▰")+strings.Count(progress, "▱"))
}

func TestDispatch_Account_MaxTier(t *testing.T) {
	d, p := newTestDispatcher(t)
	ctx := context.Background()

	_, err := p.Award(ctx, "admin", "alice", 150_000, "", false)
	require.NoError(t, err)

	reply, err := d.Dispatch(ctx, memberInvocation("krisflyer", nil))
	require.NoError(t, err)
	assert.Equal(t, "Maximum tier achieved!", fieldValue(t, reply, "Achievement"))
}

// =============================================================================
// LEADERBOARD, TIERS, SHOP
// =============================================================================

func TestDispatch_Leaderboard_Medals(t *testing.T) {
	d, p := newTestDispatcher(t)
	ctx := context.Background()

	for id, miles := range map[loyalty.MemberID]int64{"a": 100, "b": 300, "c": 200, "e": 50} {
		_, err := p.Award(ctx, "admin", id, miles, "", false)
		require.NoError(t, err)
	}

	reply, err := d.Dispatch(ctx, memberInvocation("leaderboard", nil))
	require.NoError(t, err)

	require.Len(t, reply.Fields, 4)
	assert.Equal(t, "🥇 b", reply.Fields[0].Name)
	assert.Equal(t, "🥈 c", reply.Fields[1].Name)
	assert.Equal(t, "🥉 a", reply.Fields[2].Name)
	assert.Equal(t, "**#4** e", reply.Fields[3].Name)
}

func TestDispatch_Leaderboard_Empty(t *testing.T) {
	d, _ := newTestDispatcher(t)

	reply, err := d.Dispatch(context.Background(), memberInvocation("leaderboard", nil))
	require.NoError(t, err)
	assert.Contains(t, reply.Description, "No members")
}

func TestDispatch_Tiers_ListsAllFour(t *testing.T) {
	d, _ := newTestDispatcher(t)

	reply, err := d.Dispatch(context.Background(), memberInvocation("tiers", nil))
	require.NoError(t, err)

	require.Len(t, reply.Fields, 4)
	assert.Contains(t, reply.Fields[0].Value, "0 - 25,000 miles")
	assert.Contains(t, reply.Fields[3].Name, "PPS Club")
	assert.Contains(t, reply.Fields[3].Value, "100,000+ miles")
	assert.Contains(t, reply.Fields[3].Value, "2x")
}

func TestDispatch_Shop_ListsSeededItems(t *testing.T) {
	d, _ := newTestDispatcher(t)

	reply, err := d.Dispatch(context.Background(), memberInvocation("shop", nil))
	require.NoError(t, err)

	require.Len(t, reply.Fields, 5)
	// Seeded catalog is ordered by id; lounge-pass sits in the middle.
	assert.Contains(t, reply.Fields[2].Value, "`lounge-pass`")
	assert.Contains(t, reply.Fields[2].Value, "5,000 miles")
}

// =============================================================================
// CALCULATOR
// =============================================================================

func TestDispatch_Calculate_Breakdown(t *testing.T) {
	d, _ := newTestDispatcher(t)

	reply, err := d.Dispatch(context.Background(), memberInvocation("calculate", map[string]string{
		"base_miles": "1000",
		"cabin":      "Business",
		"bonus":      "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, "1,000", fieldValue(t, reply, "Base Miles"))
	assert.Equal(t, "1.25x", fieldValue(t, reply, "Cabin Multiplier"))
	assert.Equal(t, "1.5625x", fieldValue(t, reply, "Total Multiplier"))
	assert.Equal(t, "**1,563** miles", fieldValue(t, reply, "✈️ Total Miles Earned"))
}

func TestDispatch_Calculate_UnknownCabin(t *testing.T) {
	// GIVEN: A cabin class outside the earning table
	// WHEN: Calculating
	// THEN: The neutral 1x rate applies and the reply lists known cabins
	d, _ := newTestDispatcher(t)

	reply, err := d.Dispatch(context.Background(), memberInvocation("calculate", map[string]string{
		"base_miles": "1000",
		"cabin":      "Cargo Hold",
	}))
	require.NoError(t, err)

	assert.Equal(t, "1x", fieldValue(t, reply, "Cabin Multiplier"))
	assert.Equal(t, "**1,000** miles", fieldValue(t, reply, "✈️ Total Miles Earned"))
	help := fieldValue(t, reply, "ℹ️ Cabin Classes")
	assert.Contains(t, help, "Premium Economy")
	assert.Contains(t, help, "Suites")
}

func TestDispatch_Calculate_MissingBaseMiles(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), memberInvocation("calculate", nil))
	assert.ErrorIs(t, err, loyalty.ErrInvalidArgument)
}

func TestDispatch_Calculate_NegativeBaseMiles(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), memberInvocation("calculate", map[string]string{"base_miles": "-10"}))
	assert.ErrorIs(t, err, loyalty.ErrInvalidArgument)
}

// =============================================================================
// BUY AND HISTORY
// =============================================================================

func TestDispatch_Buy_Succeeds(t *testing.T) {
	d, p := newTestDispatcher(t)
	ctx := context.Background()

	_, err := p.Award(ctx, "admin", "alice", 10_000, "", false)
	require.NoError(t, err)

	reply, err := d.Dispatch(ctx, memberInvocation("buy", map[string]string{"item_id": "lounge-pass"}))
	require.NoError(t, err)

	assert.Contains(t, reply.Description, "SilverKris Lounge Pass")
	assert.Equal(t, "5,000 miles", fieldValue(t, reply, "Remaining Balance"))
}

func TestDispatch_Buy_InsufficientBalance_Rejection(t *testing.T) {
	d, p := newTestDispatcher(t)
	ctx := context.Background()

	_, err := p.Award(ctx, "admin", "alice", 2_000, "", false)
	require.NoError(t, err)

	_, err = d.Dispatch(ctx, memberInvocation("buy", map[string]string{"item_id": "lounge-pass"}))
	require.ErrorIs(t, err, loyalty.ErrInsufficientBalance)

	reply, ok := commands.RejectionReply(err)
	require.True(t, ok)
	assert.Contains(t, reply.Description, "3,000", "shortfall is exact")
	assert.True(t, reply.Ephemeral)
}

func TestDispatch_History_ShowsRecentActivity(t *testing.T) {
	d, p := newTestDispatcher(t)
	ctx := context.Background()

	_, err := p.Award(ctx, "admin", "alice", 10_000, "SIN-CDG", false)
	require.NoError(t, err)
	_, err = p.Purchase(ctx, "alice", "lounge-pass")
	require.NoError(t, err)

	reply, err := d.Dispatch(ctx, memberInvocation("history", nil))
	require.NoError(t, err)

	require.Len(t, reply.Fields, 2)
	assert.Contains(t, reply.Fields[0].Name, "purchase")
	assert.Contains(t, reply.Fields[0].Value, "`lounge-pass`")
	assert.Contains(t, reply.Fields[1].Value, "SIN-CDG")
}

// =============================================================================
// ADMIN COMMANDS
// =============================================================================

func TestDispatch_AwardMiles_TierUpgradeField(t *testing.T) {
	d, _ := newTestDispatcher(t)

	reply, err := d.Dispatch(context.Background(),
		adminInvocation("awardmiles", map[string]string{
			"member_id": "alice", "miles": "25000", "flight_completion": "true", "reason": "SIN-JFK",
		}))
	require.NoError(t, err)

	assert.Equal(t, "0 miles", fieldValue(t, reply, "Previous Balance"))
	assert.Equal(t, "25,000 miles", fieldValue(t, reply, "New Balance"))
	assert.Equal(t, "SIN-JFK", fieldValue(t, reply, "🛫 Flight Completed"))
	assert.Equal(t, "1", fieldValue(t, reply, "📊 Total Flights"))
	assert.Contains(t, fieldValue(t, reply, "⭐ Tier Upgrade!"), "Elite Silver")
	assert.Equal(t, "Ops", fieldValue(t, reply, "👤 Awarded By"))
}

func TestDispatch_RemoveMiles(t *testing.T) {
	d, p := newTestDispatcher(t)
	ctx := context.Background()

	_, err := p.Award(ctx, "admin", "alice", 5_000, "", false)
	require.NoError(t, err)

	reply, err := d.Dispatch(ctx, adminInvocation("removemiles", map[string]string{
		"member_id": "alice", "miles": "1500", "reason": "refund reversal",
	}))
	require.NoError(t, err)

	assert.Equal(t, "3,500 miles", fieldValue(t, reply, "New Balance"))
	assert.Equal(t, "refund reversal", fieldValue(t, reply, "📝 Reason"))
}

func TestDispatch_AwardMiles_MissingMember_Rejected(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(),
		adminInvocation("awardmiles", map[string]string{"miles": "100"}))
	assert.ErrorIs(t, err, loyalty.ErrInvalidArgument)
}

func TestDispatch_AddItem_ThenVisibleInShop(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	reply, err := d.Dispatch(ctx, adminInvocation("additem", map[string]string{
		"id": "spa-voucher", "name": "Spa Voucher", "cost": "2500", "description": "One spa session",
	}))
	require.NoError(t, err)
	assert.Equal(t, "2,500 miles", fieldValue(t, reply, "Cost"))

	shop, err := d.Dispatch(ctx, memberInvocation("shop", nil))
	require.NoError(t, err)
	assert.Len(t, shop.Fields, 6)
}

func TestDispatch_AddItem_Duplicate_Rejection(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, adminInvocation("additem", map[string]string{
		"id": "lounge-pass", "name": "Lounge Pass Again", "cost": "10",
	}))
	require.ErrorIs(t, err, loyalty.ErrDuplicateItem)

	reply, ok := commands.RejectionReply(err)
	require.True(t, ok)
	assert.Contains(t, reply.Title, "Duplicate")
}
