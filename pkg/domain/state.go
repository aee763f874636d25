package domain

import "time"

// SessionState is the snapshot of one conversation thread.
// The workflow owns it for the duration of a turn; nodes read it and return
// an Update with only the fields they changed.
type SessionState struct {
	SessionID       string           `json:"session_id"`
	Messages        []Message        `json:"messages"`
	Intent          Intent           `json:"intent,omitempty"`
	UserPreferences *UserPreferences `json:"user_preferences,omitempty"`
	Planning        *Planning        `json:"planning,omitempty"`

	// Visited records the nodes executed during the last turn.
	Visited   []string  `json:"visited,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`

	// Envelope carries an opaque payload for persistence middleware.
	// It is never set on states handed to the workflow.
	Envelope string `json:"envelope,omitempty"`
}

// NewSessionState creates an empty state for the given session.
func NewSessionState(sessionID string) *SessionState {
	return &SessionState{
		SessionID: sessionID,
		Messages:  []Message{},
	}
}

// LastMessage returns the most recent message, if any.
func (s *SessionState) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// LastUserMessage returns the most recent message authored by the user.
func (s *SessionState) LastUserMessage() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// CurrentItinerary returns the merged itinerary, or nil.
func (s *SessionState) CurrentItinerary() *Itinerary {
	if s.Planning == nil {
		return nil
	}
	return s.Planning.Current
}

// Apply merges a partial update into the state.
// Messages are appended; intent, preferences and planning are replaced when set.
func (s *SessionState) Apply(u Update) {
	if len(u.Messages) > 0 {
		s.Messages = append(s.Messages, u.Messages...)
	}
	if u.Intent != nil {
		s.Intent = *u.Intent
	}
	if u.UserPreferences != nil {
		s.UserPreferences = u.UserPreferences.Clone()
	}
	if u.Planning != nil {
		p := u.Planning.Clone()
		if p.Current != nil {
			p.Current.Normalize()
		}
		s.Planning = p
	}
}

// Clone returns a deep copy, safe to hand to another goroutine.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	c.Visited = append([]string(nil), s.Visited...)
	c.UserPreferences = s.UserPreferences.Clone()
	c.Planning = s.Planning.Clone()
	return &c
}

// Update is the partial state change returned by a node.
// Nil and empty fields leave the corresponding state untouched.
type Update struct {
	Messages        []Message
	Intent          *Intent
	UserPreferences *UserPreferences
	Planning        *Planning
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return len(u.Messages) == 0 && u.Intent == nil && u.UserPreferences == nil && u.Planning == nil
}

// LastAssistantMessage returns the last assistant message carried by the update.
func (u Update) LastAssistantMessage() (Message, bool) {
	for i := len(u.Messages) - 1; i >= 0; i-- {
		if u.Messages[i].Role == RoleAssistant {
			return u.Messages[i], true
		}
	}
	return Message{}, false
}

// Say is a convenience for an update that only appends assistant messages.
func Say(contents ...string) Update {
	msgs := make([]Message, len(contents))
	for i, c := range contents {
		msgs[i] = AssistantMessage(c)
	}
	return Update{Messages: msgs}
}
