// Package rules contains the pure calculation logic for game mechanics.
// This package is PURE and must NOT import any infrastructure packages.
package rules

const (
	// InitialStress is the stress level every session starts with.
	InitialStress = 10.0
	// FailureThreshold is the level above which the session is lost.
	FailureThreshold = 100.0

	// ConsumeRelief is applied when an item finishes consuming.
	ConsumeRelief = -1.0
	// PurchaseRelief is applied when a purchase spawned at least one item.
	PurchaseRelief = -1.0

	// ActedDayPenalty is added at the end of a day the player bought something.
	ActedDayPenalty = 2.0
	// IdleDayPenalty is added at the end of a day without purchases.
	IdleDayPenalty = 5.0

	// MismatchPenalty is added per item sitting on a stack of another category.
	MismatchPenalty = 0.5
)

// ApplyStress returns the stress after applying delta. Decrements are rejected
// once the level is at or below zero; increments have no ceiling.
func ApplyStress(current, delta float64) (next float64, applied bool) {
	if delta < 0 && current <= 0 {
		return current, false
	}
	return current + delta, true
}

// DayPenalty computes the end-of-day stress increase.
func DayPenalty(actedToday bool, stackPenalty float64) float64 {
	base := IdleDayPenalty
	if actedToday {
		base = ActedDayPenalty
	}
	return base + stackPenalty
}

// StackPenalty converts a count of misplaced items into a stress bias.
func StackPenalty(mismatched int) float64 {
	return MismatchPenalty * float64(mismatched)
}

// IsFailed reports whether the stress level ends the session.
func IsFailed(stress float64) bool {
	return stress > FailureThreshold
}
