package nodes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/ports"
	"golang.org/x/sync/errgroup"
)

// ErrNoDrafts is returned by Merge when there is nothing to merge.
var ErrNoDrafts = errors.New("no drafts to merge")

// Themes returns the themes to draft for: the user's interests, or the defaults.
func Themes(p domain.Preferences) []string {
	var themes []string
	for _, i := range p.Interests {
		if v := strings.TrimSpace(i); v != "" {
			themes = append(themes, v)
		}
	}
	if len(themes) == 0 {
		return append([]string(nil), DefaultThemes...)
	}
	return themes
}

// DraftAll drafts one itinerary per theme concurrently. Result i belongs to
// theme i whatever the completion order. Any failed draft fails the batch.
func DraftAll(ctx context.Context, gen ports.TextGenerator, prefs domain.Preferences, themes []string, limit int) ([]domain.Itinerary, error) {
	drafts := make([]domain.Itinerary, len(themes))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, theme := range themes {
		g.Go(func() error {
			system, err := render("draft", struct {
				Prefs domain.Preferences
				Theme string
			}{prefs, theme})
			if err != nil {
				return err
			}

			var it domain.Itinerary
			err = gen.GenerateStructured(ctx, ports.Prompt{
				Name:     "draft",
				System:   system,
				Messages: []domain.Message{domain.UserMessage("Draft the " + theme + " itinerary.")},
			}, &it)
			if err != nil {
				return fmt.Errorf("draft %q: %w", theme, err)
			}
			if err := it.Validate(); err != nil {
				return fmt.Errorf("draft %q: %w", theme, err)
			}
			it.Normalize()
			drafts[i] = it
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return drafts, nil
}

// Merge reconciles drafts into one itinerary. A single draft is returned
// unchanged without calling the model.
func Merge(ctx context.Context, gen ports.TextGenerator, prefs domain.Preferences, drafts []domain.Itinerary) (*domain.Itinerary, error) {
	switch len(drafts) {
	case 0:
		return nil, ErrNoDrafts
	case 1:
		return drafts[0].Clone(), nil
	}

	parts := make([]string, len(drafts))
	for i := range drafts {
		b, err := json.Marshal(drafts[i])
		if err != nil {
			return nil, err
		}
		parts[i] = fmt.Sprintf("Draft %d:\n%s", i+1, b)
	}

	system, err := render("merge", struct {
		Prefs  domain.Preferences
		Drafts string
	}{prefs, strings.Join(parts, "\n---\n")})
	if err != nil {
		return nil, err
	}

	var merged domain.Itinerary
	err = gen.GenerateStructured(ctx, ports.Prompt{
		Name:     "merge",
		System:   system,
		Messages: []domain.Message{domain.UserMessage("Merge the drafts into one itinerary.")},
	}, &merged)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// GenerateItinerary drafts one itinerary per theme and merges them into the
// current itinerary.
func (n *Set) GenerateItinerary(ctx context.Context, s *domain.SessionState) (domain.Update, error) {
	var prefs domain.Preferences
	if s.UserPreferences != nil {
		prefs = s.UserPreferences.Prefs
	}
	themes := Themes(prefs)

	drafts, err := DraftAll(ctx, n.gen, prefs, themes, n.draftConcurrency)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Update{}, ctx.Err()
		}
		n.logger.Error("drafting failed", "session_id", s.SessionID, "themes", themes, "err", err)
		return domain.Say(MsgDraftFailed), nil
	}
	if len(drafts) == 0 {
		n.logger.Warn("no planning options to merge", "session_id", s.SessionID)
		return domain.Update{}, nil
	}

	merged, err := Merge(ctx, n.gen, prefs, drafts)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Update{}, ctx.Err()
		}
		n.logger.Warn("merge failed, using first draft", "session_id", s.SessionID, "err", err)
		merged = drafts[0].Clone()
	}
	if merged.Travelers < 1 {
		merged.Travelers = prefs.TravelerCount()
	}

	n.logger.Info("itinerary generated", "session_id", s.SessionID, "drafts", len(drafts), "days", len(merged.Days))
	return domain.Update{
		Planning: &domain.Planning{Options: drafts, Current: merged},
		Messages: []domain.Message{domain.AssistantMessage(MsgAdjusting)},
	}, nil
}
