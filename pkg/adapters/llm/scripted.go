package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/compass/internal/jsonx"
	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/ports"
)

// Responder produces the text for a scripted prompt.
type Responder func(p ports.Prompt) (string, error)

// ToolResponder produces one agent step for a scripted tool-calling prompt.
type ToolResponder func(p ports.Prompt, exchanges []ports.ToolExchange) (ports.AgentStep, error)

// ErrNoScript is returned when a prompt name has no queued reply or responder.
var ErrNoScript = fmt.Errorf("scripted: no response for prompt")

// Scripted is a deterministic ports.ToolCallingGenerator keyed by Prompt.Name.
// Queued replies are consumed first, then the responder registered with On.
type Scripted struct {
	mu         sync.Mutex
	queues     map[string][]reply
	responders map[string]Responder
	tools      map[string]ToolResponder
	calls      []ports.Prompt
}

type reply struct {
	text string
	err  error
}

// NewScripted creates an empty Scripted generator.
func NewScripted() *Scripted {
	return &Scripted{
		queues:     make(map[string][]reply),
		responders: make(map[string]Responder),
		tools:      make(map[string]ToolResponder),
	}
}

// Reply queues fixed texts for a prompt name.
func (s *Scripted) Reply(name string, texts ...string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range texts {
		s.queues[name] = append(s.queues[name], reply{text: t})
	}
	return s
}

// ReplyJSON queues v encoded as JSON.
func (s *Scripted) ReplyJSON(name string, v any) *Scripted {
	b, err := json.Marshal(v)
	if err != nil {
		return s.Fail(name, err)
	}
	return s.Reply(name, string(b))
}

// Fail queues an error for a prompt name.
func (s *Scripted) Fail(name string, err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[name] = append(s.queues[name], reply{err: err})
	return s
}

// On registers a responder used once the queue for name is empty.
func (s *Scripted) On(name string, r Responder) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responders[name] = r
	return s
}

// OnTools registers the responder for GenerateWithTools calls.
func (s *Scripted) OnTools(name string, r ToolResponder) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools[name] = r
	return s
}

// Calls returns every prompt received so far.
func (s *Scripted) Calls() []ports.Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.Prompt, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns how many prompts with the given name were received.
func (s *Scripted) CallCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

func (s *Scripted) next(p ports.Prompt) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, p)
	if q := s.queues[p.Name]; len(q) > 0 {
		r := q[0]
		s.queues[p.Name] = q[1:]
		s.mu.Unlock()
		return r.text, r.err
	}
	responder := s.responders[p.Name]
	s.mu.Unlock()

	if responder == nil {
		return "", fmt.Errorf("%w %q", ErrNoScript, p.Name)
	}
	return responder(p)
}

// Generate implements ports.TextGenerator.
func (s *Scripted) Generate(ctx context.Context, p ports.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.next(p)
}

// Stream emits the reply word by word.
func (s *Scripted) Stream(ctx context.Context, p ports.Prompt, onToken ports.TokenFunc) (string, error) {
	text, err := s.Generate(ctx, p)
	if err != nil {
		return "", err
	}
	for _, chunk := range strings.SplitAfter(text, " ") {
		if chunk == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := onToken(chunk); err != nil {
			return "", err
		}
	}
	return text, nil
}

// GenerateStructured decodes the reply into target.
func (s *Scripted) GenerateStructured(ctx context.Context, p ports.Prompt, target any) error {
	text, err := s.Generate(ctx, p)
	if err != nil {
		return err
	}
	if err := jsonx.Decode(text, target); err != nil {
		return fmt.Errorf("%s: %w: %v", p.Name, ErrMalformedOutput, err)
	}
	return nil
}

// GenerateWithTools implements ports.ToolCallingGenerator. Without a tool
// responder it falls back to a plain answer.
func (s *Scripted) GenerateWithTools(ctx context.Context, p ports.Prompt, _ []domain.Tool, exchanges []ports.ToolExchange) (ports.AgentStep, error) {
	if err := ctx.Err(); err != nil {
		return ports.AgentStep{}, err
	}
	s.mu.Lock()
	r := s.tools[p.Name]
	if r != nil {
		s.calls = append(s.calls, p)
	}
	s.mu.Unlock()

	if r == nil {
		text, err := s.next(p)
		return ports.AgentStep{Content: text}, err
	}
	return r(p, exchanges)
}
