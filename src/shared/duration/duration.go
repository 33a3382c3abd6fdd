// Package duration implements the ban/cooldown duration grammar: a
// sequence of <amount><unit> elements (units s, min, h, d, w, m, q, y),
// the literal "0" for a null duration, the literal "inf" for an endless
// one, and an optional leading sign marking a relative delta. Month,
// quarter and year are calendar-naive on purpose (30, 120 and 365 days);
// changing that would silently change effective ban lengths.
package duration

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrCantParse is returned when a raw value doesn't match the grammar or
// none of the allowed duration types.
var ErrCantParse = errors.New("duration: cannot parse")

type Type int

const (
	TypeAbsolute Type = iota
	TypeRelative
)

const (
	Null     = "0"
	Infinite = "inf"
)

const elementUnits = "s|min|h|d|w|m|q|y"

var (
	cleanupRe  = regexp.MustCompile(`[^0-9a-z+\-]`)
	elementRe  = regexp.MustCompile(`(\d+)(` + elementUnits + `)`)
	absoluteRe = regexp.MustCompile(`^(\d+(?:` + elementUnits + `))+$`)
	relativeRe = regexp.MustCompile(`^[+\-](\d+(?:` + elementUnits + `))+$`)
	eitherRe   = regexp.MustCompile(`^[+\-]?(\d+(?:` + elementUnits + `))+$`)
)

// Normalize strips noise characters from a raw user-provided value and
// validates it against the grammar, restricted to the allowed types.
// "0" and "inf" are always accepted.
func Normalize(raw string, allowed ...Type) (string, error) {
	cleaned := cleanupRe.ReplaceAllString(strings.ToLower(raw), "")

	if IsNull(cleaned) || IsInfinite(cleaned) {
		return cleaned, nil
	}

	pattern := absoluteRe
	switch {
	case containsType(allowed, TypeAbsolute) && containsType(allowed, TypeRelative):
		pattern = eitherRe
	case containsType(allowed, TypeRelative):
		pattern = relativeRe
	}

	if !pattern.MatchString(cleaned) {
		return "", ErrCantParse
	}
	return cleaned, nil
}

func containsType(types []Type, t Type) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsNull reports whether a normalized value is the null duration (no-op).
func IsNull(normalized string) bool {
	return normalized == Null
}

// IsInfinite reports whether a normalized value means "forever".
func IsInfinite(normalized string) bool {
	return normalized == Infinite
}

// TypeOf reports whether a normalized value is a relative delta or an
// absolute duration.
func TypeOf(normalized string) Type {
	if strings.HasPrefix(normalized, "+") || strings.HasPrefix(normalized, "-") {
		return TypeRelative
	}
	return TypeAbsolute
}

// ParseAbs converts a normalized absolute value into a time.Duration.
func ParseAbs(normalized string) time.Duration {
	var total time.Duration
	for _, match := range elementRe.FindAllStringSubmatch(normalized, -1) {
		amount, _ := strconv.Atoi(match[1])
		total += time.Duration(amount) * unitDuration(match[2])
	}
	return total
}

// ParseRel converts a normalized signed value into a positive or negative
// time.Duration.
func ParseRel(normalized string) time.Duration {
	abs := ParseAbs(normalized[1:])
	if normalized[0] == '-' {
		return -abs
	}
	return abs
}

func unitDuration(unit string) time.Duration {
	const day = 24 * time.Hour
	switch unit {
	case "s":
		return time.Second
	case "min":
		return time.Minute
	case "h":
		return time.Hour
	case "d":
		return day
	case "w":
		return 7 * day
	case "m":
		return 30 * day
	case "q":
		return 120 * day
	case "y":
		return 365 * day
	}
	return 0
}
