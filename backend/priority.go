package backend

import "strings"

// UnknownPriorityRank is assigned to priorities missing from the rank table
const UnknownPriorityRank = 999

// Priority labels, most urgent first
const (
	PriorityImmediate = "Immediate 🔥"
	PriorityQuick     = "Quick ⚡️"
	PriorityScheduled = "Scheduled 📅"
	PriorityFirst     = "1st Priority 🚀"
	PrioritySecond    = "2nd Priority 📘"
	PriorityThird     = "3rd Priority 📙"
	PriorityFourth    = "4th Priority 📕"
	PriorityFifth     = "5th Priority 📗"
	PriorityErrand    = "Errand 🚗"
	PriorityRemember  = "Remember 💭"
)

var priorityOrder = []string{
	PriorityImmediate,
	PriorityQuick,
	PriorityScheduled,
	PriorityFirst,
	PrioritySecond,
	PriorityThird,
	PriorityFourth,
	PriorityFifth,
	PriorityErrand,
	PriorityRemember,
}

var priorityRank = func() map[string]int {
	m := make(map[string]int, len(priorityOrder))
	for i, p := range priorityOrder {
		m[p] = i
	}
	return m
}()

// Priorities returns the known priority labels from most to least urgent
func Priorities() []string {
	out := make([]string, len(priorityOrder))
	copy(out, priorityOrder)
	return out
}

// PriorityRank maps a priority label to its rank (0 = most urgent).
// Unknown labels rank UnknownPriorityRank.
func PriorityRank(priority string) int {
	if r, ok := priorityRank[priority]; ok {
		return r
	}
	return UnknownPriorityRank
}

// IsKnownPriority reports whether the label is in the rank table
func IsKnownPriority(priority string) bool {
	_, ok := priorityRank[priority]
	return ok
}

// MatchPriority resolves user input to a known label. Exact labels match as-is;
// otherwise the input is compared case-insensitively against the label text
// without its emoji (e.g. "quick", "1st priority").
func MatchPriority(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if IsKnownPriority(input) {
		return input, true
	}
	lower := strings.ToLower(input)
	if lower == "" {
		return "", false
	}
	for _, p := range priorityOrder {
		name := strings.ToLower(strings.TrimSpace(strings.TrimRightFunc(p, func(r rune) bool { return r > 0x7f || r == ' ' })))
		if name == lower {
			return p, true
		}
	}
	return "", false
}
