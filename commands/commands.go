/*
Package commands is the command-invocation boundary of the loyalty bot.

PURPOSE:
  Maps named commands with an options map onto engine operations,
  independent of transport. The HTTP API, tests, and any future chat
  gateway all funnel through Dispatch.

COMMANDS:
  krisflyer / balance   account + tier + progress        any
  leaderboard           ranked members, paginated        any
  tiers                 tier table dump                  any
  shop                  catalog dump                     any
  inventory             requester's purchases            any
  calculate             mileage calculator breakdown     any
  history               requester's audit trail          any
  buy                   shop purchase                    any
  awardmiles            ledger award                     admin
  removemiles           ledger remove                    admin
  setmiles              ledger set                       admin
  additem               catalog insert                   admin

AUTHORIZATION:
  Admin commands require the configured admin role among the invoker's
  roles (case-insensitive). The check runs before any mutation; a
  failure produces a rejection reply and no state change.

REPLIES:
  Replies are embed-style structures (title, description, color,
  fields, footer) that any chat gateway can render without tying the
  engine to a particular SDK.

SEE ALSO:
  - render.go: Reply construction and number formatting
  - api/: HTTP transport over this dispatcher
*/
package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/krisflyer/loyalty-engine/loyalty"
)

// DefaultAdminRole gates the mutating admin commands.
const DefaultAdminRole = "Bot Management"

// ErrUnknownCommand is returned for command names outside the table.
var ErrUnknownCommand = errors.New("unknown command")

// =============================================================================
// INVOCATION AND REPLY
// =============================================================================

// Invocation is one command call from the external event source. Options
// arrive as strings regardless of transport; handlers parse what they
// need.
type Invocation struct {
	Command    string
	ActorID    loyalty.MemberID
	ActorName  string
	ActorRoles []string
	Options    map[string]string
}

// Field is one titled value in a reply.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Reply is an embed-style response.
type Reply struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Color       string  `json:"color,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	Footer      string  `json:"footer,omitempty"`
	Ephemeral   bool    `json:"ephemeral,omitempty"`
}

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher routes invocations to the Program.
type Dispatcher struct {
	logger    *zap.Logger
	program   *loyalty.Program
	adminRole string
}

// NewDispatcher creates a dispatcher. An empty adminRole falls back to
// DefaultAdminRole.
func NewDispatcher(logger *zap.Logger, program *loyalty.Program, adminRole string) *Dispatcher {
	if adminRole == "" {
		adminRole = DefaultAdminRole
	}
	return &Dispatcher{logger: logger, program: program, adminRole: adminRole}
}

// Dispatch runs one command to completion, including any storage write.
// Client mistakes (bad arguments, missing items, insufficient balance,
// missing admin role) come back as loyalty client errors; transports
// render them with RejectionReply.
func (d *Dispatcher) Dispatch(ctx context.Context, inv Invocation) (Reply, error) {
	d.logger.Debug("dispatch",
		zap.String("command", inv.Command),
		zap.String("actor", string(inv.ActorID)))

	switch inv.Command {
	case "krisflyer", "balance":
		return d.account(ctx, inv)
	case "leaderboard":
		return d.leaderboard(ctx, inv)
	case "tiers":
		return d.tiers(ctx)
	case "shop":
		return d.shop(ctx)
	case "inventory":
		return d.inventory(ctx, inv)
	case "calculate":
		return d.calculate(ctx, inv)
	case "history":
		return d.history(ctx, inv)
	case "buy":
		return d.buy(ctx, inv)
	case "awardmiles":
		return d.awardMiles(ctx, inv)
	case "removemiles":
		return d.removeMiles(ctx, inv)
	case "setmiles":
		return d.setMiles(ctx, inv)
	case "additem":
		return d.addItem(ctx, inv)
	default:
		return Reply{}, fmt.Errorf("%w: %q", ErrUnknownCommand, inv.Command)
	}
}

// Authorize reports whether the invoker holds the admin role. Transports
// exposing mutations outside the command table run this check themselves.
func (d *Dispatcher) Authorize(inv Invocation) error {
	return d.requireAdmin(inv)
}

// requireAdmin enforces the role gate before any mutation.
func (d *Dispatcher) requireAdmin(inv Invocation) error {
	for _, role := range inv.ActorRoles {
		if strings.EqualFold(role, d.adminRole) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", loyalty.ErrUnauthorized, d.adminRole)
}

// =============================================================================
// OPTION PARSING
// =============================================================================

func optString(inv Invocation, key string) string {
	return strings.TrimSpace(inv.Options[key])
}

func optInt(inv Invocation, key string) (int64, error) {
	raw, ok := inv.Options[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, fmt.Errorf("%w: option %q is required", loyalty.ErrInvalidArgument, key)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: option %q must be an integer", loyalty.ErrInvalidArgument, key)
	}
	return n, nil
}

func optIntDefault(inv Invocation, key string, def int64) int64 {
	raw, ok := inv.Options[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return def
	}
	return n
}

func optBool(inv Invocation, key string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(inv.Options[key]))
	return err == nil && b
}

// target returns the member the command acts on: the named option when
// present, otherwise the invoker.
func target(inv Invocation, key string) loyalty.MemberID {
	if v := optString(inv, key); v != "" {
		return loyalty.MemberID(v)
	}
	return inv.ActorID
}

// requiredTarget is target without the self fallback, for admin
// commands that must name a member.
func requiredTarget(inv Invocation, key string) (loyalty.MemberID, error) {
	v := optString(inv, key)
	if v == "" {
		return "", fmt.Errorf("%w: option %q is required", loyalty.ErrInvalidArgument, key)
	}
	return loyalty.MemberID(v), nil
}
