/*
render.go - Reply construction and formatting

PURPOSE:
  Everything cosmetic: brand colors, thousands-separated miles, tier
  range strings, and the rejection replies transports show for client
  errors. Handlers build replies only through these helpers so the
  rendering stays uniform.
*/
package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/krisflyer/loyalty-engine/loyalty"
)

// Singapore Airlines brand colors.
const (
	ColorPrimary = "#00205B"
	ColorSuccess = "#00A651"
	ColorError   = "#E74C3C"
)

const footerText = "Singapore Airlines • A Star Alliance Member"

// formatMiles renders an integer with comma grouping: 1562500 -> "1,562,500".
func formatMiles(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := fmt.Sprintf("%d", n)
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return sign + b.String()
}

// cabinList renders the known cabin classes for calculator help text.
func cabinList() string {
	cabins := loyalty.Cabins()
	names := make([]string, len(cabins))
	for i, c := range cabins {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// tierRange renders a tier's bracket: "25,000 - 50,000 miles" or
// "100,000+ miles" for the unbounded top tier.
func tierRange(t loyalty.Tier) string {
	if t.Unbounded {
		return formatMiles(t.MinMiles) + "+ miles"
	}
	return formatMiles(t.MinMiles) + " - " + formatMiles(t.MaxMiles) + " miles"
}

// progressField renders the progress-to-next-tier block shared by the
// account and balance views.
func progressField(p loyalty.Progress, barLength int) Field {
	if p.MaxTier {
		return Field{
			Name:  "Achievement",
			Value: "Maximum tier achieved!",
		}
	}
	bar := loyalty.ProgressBar(p.Percent, barLength)
	return Field{
		Name: "📊 Progress to Next Tier",
		Value: fmt.Sprintf("`%s` %d%%\n**%s** miles until **%s %s**",
			bar, p.Percent, formatMiles(p.MilesNeeded), p.Next.DisplayEmoji, p.Next.Name),
	}
}

// RejectionReply renders a client error as the rejection response a
// caller sees. Non-client errors return ok=false and should surface as
// internal failures instead.
func RejectionReply(err error) (Reply, bool) {
	switch {
	case errors.Is(err, loyalty.ErrUnauthorized):
		return Reply{
			Title:       "👎 Access Denied",
			Description: fmt.Sprintf("You need the **%s** role to use this command.", roleFromErr(err)),
			Color:       ColorError,
			Footer:      footerText,
			Ephemeral:   true,
		}, true
	case errors.Is(err, loyalty.ErrInsufficientBalance):
		var short *loyalty.InsufficientBalanceError
		if errors.As(err, &short) {
			return Reply{
				Title: "👎 Insufficient Miles",
				Description: fmt.Sprintf("You need **%s** more miles to purchase this item.",
					formatMiles(short.Shortfall)),
				Color:     ColorError,
				Footer:    footerText,
				Ephemeral: true,
			}, true
		}
		return Reply{Title: "👎 Insufficient Miles", Color: ColorError, Ephemeral: true}, true
	case errors.Is(err, loyalty.ErrItemNotFound):
		return Reply{
			Title:       "👎 Item Not Found",
			Description: "That item no longer exists.",
			Color:       ColorError,
			Footer:      footerText,
			Ephemeral:   true,
		}, true
	case errors.Is(err, loyalty.ErrDuplicateItem):
		return Reply{
			Title:       "👎 Duplicate Item",
			Description: "An item with that ID already exists in the shop.",
			Color:       ColorError,
			Footer:      footerText,
			Ephemeral:   true,
		}, true
	case errors.Is(err, loyalty.ErrInvalidArgument), errors.Is(err, ErrUnknownCommand),
		errors.Is(err, loyalty.ErrMemberNotFound):
		return Reply{
			Title:       "👎 Invalid Request",
			Description: err.Error(),
			Color:       ColorError,
			Ephemeral:   true,
		}, true
	}
	return Reply{}, false
}

// roleFromErr recovers the role name appended to ErrUnauthorized.
func roleFromErr(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return DefaultAdminRole
}
