package domain

import "strings"

// Intent is the tag produced by the intent classifier for the latest turn.
// It is stored as the model returned it (trimmed and lower-cased), so routing
// matches tags by containment rather than equality.
type Intent string

const (
	IntentChat       Intent = "chat"
	IntentPlanTrip   Intent = "plan_trip"
	IntentModifyPlan Intent = "modify_plan"
	IntentFindHotel  Intent = "find_hotel"
)

// Intents lists every tag the classifier is asked to choose from.
var Intents = []Intent{IntentChat, IntentPlanTrip, IntentModifyPlan, IntentFindHotel}

// ParseIntent normalizes raw classifier output.
func ParseIntent(raw string) Intent {
	return Intent(strings.ToLower(strings.TrimSpace(raw)))
}

// Has reports whether the intent contains the given tag.
func (i Intent) Has(tag Intent) bool {
	return strings.Contains(string(i), string(tag))
}
