package domain

import "strings"

// Preference field names, as used by the extraction contract.
const (
	FieldDestination       = "destination"
	FieldDepartureLocation = "departure_location"
	FieldTravelers         = "num_travelers"
	FieldDepartureDate     = "departure_date"
	FieldReturnDate        = "return_date"
	FieldDuration          = "duration"
	FieldInterests         = "interests"
)

// RequiredField is a preference that must be filled before planning starts.
type RequiredField struct {
	Name     string
	Question string
}

// RequiredFields is the ordered list the collector walks through.
var RequiredFields = []RequiredField{
	{Name: FieldDestination, Question: "Where would you like to go?"},
	{Name: FieldDepartureLocation, Question: "Where will you be departing from?"},
	{Name: FieldDepartureDate, Question: "When do you plan to leave? (YYYY-MM-DD)"},
	{Name: FieldDuration, Question: "How long will the trip be?"},
	{Name: FieldInterests, Question: "What are you interested in? For example food, culture, nature or shopping."},
}

// trackedFields are the names an extraction may report as updated.
var trackedFields = map[string]bool{
	FieldDestination:       true,
	FieldDepartureLocation: true,
	FieldTravelers:         true,
	FieldDepartureDate:     true,
	FieldReturnDate:        true,
	FieldDuration:          true,
	FieldInterests:         true,
}

// IsTrackedField reports whether name is a known preference field.
func IsTrackedField(name string) bool {
	return trackedFields[strings.ToLower(strings.TrimSpace(name))]
}

// Preferences is the set of trip preferences gathered from the user.
// Every field is optional until filled.
type Preferences struct {
	Destination       string   `json:"destination"`
	DepartureLocation string   `json:"departure_location"`
	Travelers         int      `json:"num_travelers"`
	DepartureDate     Date     `json:"departure_date"`
	ReturnDate        Date     `json:"return_date"`
	Duration          string   `json:"duration"`
	Interests         []string `json:"interests"`
}

// IsSet reports whether the named field holds a value.
func (p Preferences) IsSet(field string) bool {
	switch field {
	case FieldDestination:
		return strings.TrimSpace(p.Destination) != ""
	case FieldDepartureLocation:
		return strings.TrimSpace(p.DepartureLocation) != ""
	case FieldTravelers:
		return p.Travelers > 0
	case FieldDepartureDate:
		return !p.DepartureDate.IsZero()
	case FieldReturnDate:
		return !p.ReturnDate.IsZero()
	case FieldDuration:
		return strings.TrimSpace(p.Duration) != ""
	case FieldInterests:
		for _, i := range p.Interests {
			if strings.TrimSpace(i) != "" {
				return true
			}
		}
		return false
	}
	return false
}

// FirstMissing returns the first required field that is still empty.
func (p Preferences) FirstMissing() (RequiredField, bool) {
	for _, f := range RequiredFields {
		if !p.IsSet(f.Name) {
			return f, true
		}
	}
	return RequiredField{}, false
}

// Complete reports whether every required field is set.
func (p Preferences) Complete() bool {
	_, missing := p.FirstMissing()
	return !missing
}

// TravelerCount returns the number of travelers, defaulting to one.
func (p Preferences) TravelerCount() int {
	if p.Travelers < 1 {
		return 1
	}
	return p.Travelers
}

// Clone returns a deep copy.
func (p Preferences) Clone() Preferences {
	c := p
	if p.Interests != nil {
		c.Interests = append([]string(nil), p.Interests...)
	}
	return c
}

// UserPreferences is the collection record kept in the session.
type UserPreferences struct {
	Prefs    Preferences `json:"prefs"`
	History  string      `json:"preference_history"`
	Complete bool        `json:"complete"`
}

// InProgress reports whether a collection session is underway and unfinished.
func (u *UserPreferences) InProgress() bool {
	return u != nil && u.History != "" && !u.Complete
}

// Clone returns a deep copy.
func (u *UserPreferences) Clone() *UserPreferences {
	if u == nil {
		return nil
	}
	c := *u
	c.Prefs = u.Prefs.Clone()
	return &c
}
