package model

import "strings"

// Mode selects whether a dispatch pass really hits the SMS gateway.
type Mode string

const (
	ModeSimulate Mode = "simulate"
	ModeReal     Mode = "real"
)

func (m Mode) String() string { return string(m) }

// ParseMode normalizes input; empty => simulate.
// Returns (value, true) if valid; otherwise (simulate, false).
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "simulate", "test":
		return ModeSimulate, true
	case "real", "live":
		return ModeReal, true
	default:
		return ModeSimulate, false
	}
}

func (m Mode) Valid() bool {
	return m == ModeSimulate || m == ModeReal
}

// StrategyKind names how campaign text is produced.
type StrategyKind string

const (
	StrategyTemplate     StrategyKind = "template"
	StrategyPerRecipient StrategyKind = "per_recipient"
)

func (k StrategyKind) String() string { return string(k) }

func ParseStrategyKind(s string) (StrategyKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "template":
		return StrategyTemplate, true
	case "per_recipient", "per-recipient", "personal":
		return StrategyPerRecipient, true
	default:
		return StrategyTemplate, false
	}
}
