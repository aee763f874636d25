package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/ports"
)

// DefaultRedactPatterns match e-mail addresses, international phone numbers
// and 4-3-3 local numbers. ISO dates are not matched.
var DefaultRedactPatterns = []string{
	`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`,
	`\+\d[\d \-]{7,}\d`,
	`\b\d{4}[ \-]?\d{3}[ \-]?\d{3}\b`,
}

const mask = "***"

type redactMiddleware struct {
	next     ports.CheckpointStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware creates a middleware that masks text matching the
// patterns in persisted messages and preference history. The state held by
// the running workflow is left untouched.
func NewRedactMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.CheckpointStore) ports.CheckpointStore {
		return &redactMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactMiddleware) Save(ctx context.Context, sessionID string, state *domain.SessionState) error {
	cloned := state.Clone()
	for i := range cloned.Messages {
		cloned.Messages[i].Content = m.redact(cloned.Messages[i].Content)
	}
	if cloned.UserPreferences != nil {
		cloned.UserPreferences.History = m.redact(cloned.UserPreferences.History)
	}
	return m.next.Save(ctx, sessionID, cloned)
}

func (m *redactMiddleware) Load(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *redactMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *redactMiddleware) redact(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, mask)
	}
	return s
}
