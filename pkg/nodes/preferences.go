package nodes

import (
	"context"
	"strings"

	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/ports"
)

type extraction struct {
	Preferences  domain.Preferences `json:"preferences"`
	UpdatedField string             `json:"updated_field"`
}

// CollectPreferences gathers trip preferences one question at a time.
//
// The latest user message is added to the collection history and the model
// returns the updated preferences plus the field it changed. When a tracked
// field changed, the first missing required field is asked for, or the
// collection completes. Anything else leaves the state unchanged.
func (n *Set) CollectPreferences(ctx context.Context, s *domain.SessionState) (domain.Update, error) {
	last, ok := s.LastMessage()
	if !ok || last.Role == domain.RoleAssistant {
		return domain.Update{}, nil
	}

	current := s.UserPreferences.Clone()
	if current == nil || (current.Complete && s.Intent.Has(domain.IntentPlanTrip)) {
		current = &domain.UserPreferences{}
	}
	history := current.History + "\n" + last.Content

	fields := make([]string, 0, len(domain.RequiredFields)+2)
	for _, f := range domain.RequiredFields {
		fields = append(fields, f.Name)
	}
	fields = append(fields, domain.FieldTravelers, domain.FieldReturnDate)

	system, err := render("preferences", struct {
		Today   string
		Prefs   domain.Preferences
		History string
		Fields  []string
	}{n.now().Format(domain.DateLayout), current.Prefs, history, fields})
	if err != nil {
		return domain.Update{}, err
	}

	var out extraction
	err = n.gen.GenerateStructured(ctx, ports.Prompt{
		Name:        "preferences",
		System:      system,
		Messages:    []domain.Message{domain.UserMessage(last.Content)},
		Temperature: temperature(0),
	}, &out)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Update{}, ctx.Err()
		}
		n.logger.Warn("preference extraction failed", "session_id", s.SessionID, "err", err)
		return domain.Update{}, nil
	}
	if !domain.IsTrackedField(out.UpdatedField) {
		n.logger.Debug("no preference updated", "session_id", s.SessionID, "updated_field", out.UpdatedField)
		return domain.Update{}, nil
	}

	next := &domain.UserPreferences{
		Prefs:   mergePreferences(current.Prefs, out.Preferences),
		History: history,
	}
	if missing, ok := next.Prefs.FirstMissing(); ok {
		n.logger.Info("preference collected", "session_id", s.SessionID, "field", out.UpdatedField, "next", missing.Name)
		return domain.Update{
			UserPreferences: next,
			Messages:        []domain.Message{domain.AssistantMessage(missing.Question)},
		}, nil
	}

	next.Complete = true
	n.logger.Info("preferences complete", "session_id", s.SessionID, "destination", next.Prefs.Destination)
	return domain.Update{
		UserPreferences: next,
		Messages:        []domain.Message{domain.AssistantMessage(MsgPreferencesComplete)},
	}, nil
}

// mergePreferences overlays the extracted values on the known ones. Empty
// extracted fields keep the previous value.
func mergePreferences(old, extracted domain.Preferences) domain.Preferences {
	out := old.Clone()
	if v := strings.TrimSpace(extracted.Destination); v != "" {
		out.Destination = v
	}
	if v := strings.TrimSpace(extracted.DepartureLocation); v != "" {
		out.DepartureLocation = v
	}
	if extracted.Travelers > 0 {
		out.Travelers = extracted.Travelers
	}
	if !extracted.DepartureDate.IsZero() {
		out.DepartureDate = extracted.DepartureDate
	}
	if !extracted.ReturnDate.IsZero() {
		out.ReturnDate = extracted.ReturnDate
	}
	if v := strings.TrimSpace(extracted.Duration); v != "" {
		out.Duration = v
	}
	var interests []string
	for _, i := range extracted.Interests {
		if v := strings.TrimSpace(i); v != "" {
			interests = append(interests, v)
		}
	}
	if len(interests) > 0 {
		out.Interests = interests
	}
	return out
}
