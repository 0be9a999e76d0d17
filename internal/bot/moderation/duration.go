package moderation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	day  = 24 * time.Hour
	week = 7 * day

	// MaxTimeout is Discord's upper bound for a member timeout.
	MaxTimeout = 28 * day

	// fallbackDuration is applied when a duration string cannot be parsed.
	fallbackDuration = time.Hour
)

// ParseDuration converts a compact duration string ("30m", "2h", "1d",
// "2w", "permanent") into a duration. Nil means permanent. Anything
// unparseable falls back to one hour.
func ParseDuration(raw string) *time.Duration {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "permanent" || lowered == "perm" {
		return nil
	}

	fallback := fallbackDuration
	if len(lowered) < 2 {
		return &fallback
	}

	value, err := strconv.Atoi(lowered[:len(lowered)-1])
	if err != nil || value < 0 {
		return &fallback
	}

	var unit time.Duration
	switch lowered[len(lowered)-1] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = day
	case 'w':
		unit = week
	default:
		return &fallback
	}

	d := time.Duration(value) * unit

	return &d
}

// FormatDuration renders a duration with its largest whole unit.
// Nil renders as "Permanent".
func FormatDuration(d *time.Duration) string {
	if d == nil {
		return "Permanent"
	}

	secs := int64(d.Seconds())
	switch {
	case secs < 60:
		return fmt.Sprintf("%d seconds", secs)
	case secs < 3600:
		return fmt.Sprintf("%d minutes", secs/60)
	case secs < 86400:
		return fmt.Sprintf("%d hours", secs/3600)
	case secs < 604800:
		return fmt.Sprintf("%d days", secs/86400)
	default:
		return fmt.Sprintf("%d weeks", secs/604800)
	}
}
