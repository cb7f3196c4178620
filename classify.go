package depotlens

import (
	"iter"
	"maps"
	"slices"
	"strings"
)

// Action is the semantic classification of a raw transaction label.
//
// Brokerage exports use inconsistent, locale-specific free text for the same
// economic event ("Kauforder", "Limit-Buy-Order", "savings_plan" are all
// purchases). Classification is table-driven so that new label variants are
// added in exactly one place, never as branches in replay or valuation code.
type Action int

const (
	// ActionUnknown is the classification of any label not in the table.
	// Unknown transactions never contribute to share totals; they are
	// counted and surfaced by the replayer for diagnostics.
	ActionUnknown Action = iota
	ActionBuy
	ActionSell
	ActionSplit
	ActionBonusShares
	ActionSpinOff
	ActionReverseSplit
	ActionDividend
)

func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "buy"
	case ActionSell:
		return "sell"
	case ActionSplit:
		return "split"
	case ActionBonusShares:
		return "bonus-shares"
	case ActionSpinOff:
		return "spin-off"
	case ActionReverseSplit:
		return "reverse-split"
	case ActionDividend:
		return "dividend"
	default:
		return "unknown"
	}
}

// AddsShares reports whether transactions with this action increase the
// share balance.
func (a Action) AddsShares() bool {
	switch a {
	case ActionBuy, ActionBonusShares, ActionSplit, ActionSpinOff:
		return true
	default:
		return false
	}
}

// SubtractsShares reports whether transactions with this action decrease the
// share balance.
func (a Action) SubtractsShares() bool {
	switch a {
	case ActionSell, ActionReverseSplit:
		return true
	default:
		return false
	}
}

// ShareNeutral reports whether this action leaves the share balance
// untouched. Dividends pay cash, they never change the position.
func (a Action) ShareNeutral() bool {
	return a == ActionDividend
}

// actionLabels groups every known surface label under its semantic action.
// Keys are canonicalized with canonicalLabel. The German strings are the
// Trade Republic timeline subtitles; the snake_case ones are the normalized
// type codes that appear in newer exports of the same data.
var actionLabels = map[string]Action{
	// purchases
	"kauforder":           ActionBuy,
	"sparplan ausgeführt": ActionBuy,
	"limit-buy-order":     ActionBuy,
	"tausch":              ActionBuy,
	"buy":                 ActionBuy,
	"savings_plan":        ActionBuy,

	// disposals
	"verkaufsorder":    ActionSell,
	"limit-sell-order": ActionSell,
	"stop-sell-order":  ActionSell,
	"sell":             ActionSell,

	// corporate actions
	"aktiensplit":   ActionSplit,
	"split":         ActionSplit,
	"bonusaktien":   ActionBonusShares,
	"bonus_shares":  ActionBonusShares,
	"spin-off":      ActionSpinOff,
	"spinoff":       ActionSpinOff,
	"reverse split": ActionReverseSplit,
	"reverse_split": ActionReverseSplit,

	// cash events, share-neutral
	"dividende":    ActionDividend,
	"ausschüttung": ActionDividend,
	"dividend":     ActionDividend,
}

// canonicalLabel normalizes a raw label for table lookup.
func canonicalLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// Classify maps a raw transaction label to its semantic action. Labels not
// present in the table yield ActionUnknown; Classify never fails.
func Classify(label string) Action {
	if a, ok := actionLabels[canonicalLabel(label)]; ok {
		return a
	}
	return ActionUnknown
}

// KnownLabels iterates over all labels in the classification table in
// lexical order, with their action. Used to audit the table.
func KnownLabels() iter.Seq2[string, Action] {
	return func(yield func(string, Action) bool) {
		labels := slices.Collect(maps.Keys(actionLabels))
		slices.Sort(labels)
		for _, l := range labels {
			if !yield(l, actionLabels[l]) {
				return
			}
		}
	}
}

// Actions lists every semantic action other than ActionUnknown.
func Actions() []Action {
	return []Action{
		ActionBuy, ActionSell, ActionSplit, ActionBonusShares,
		ActionSpinOff, ActionReverseSplit, ActionDividend,
	}
}
