package studio

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/atelierhq/atelier/internal/llm"
	"github.com/atelierhq/atelier/internal/llm/extract"
	"github.com/atelierhq/atelier/internal/llm/prompt"
	"github.com/atelierhq/atelier/internal/llm/provider"
	"github.com/atelierhq/atelier/pkg/observability"
	"github.com/atelierhq/atelier/pkg/session"
)

// Output budgets per variant. Structured one-shots get more room than
// conversational replies.
const (
	assistantMaxTokens = 1024
	brandMaxTokens     = 2048
	decomposeMaxTokens = 3072
	specMaxTokens      = 3072
	reviseMaxTokens    = 1536
)

// BadRequestError is a client input error: a required field is missing or
// invalid. No side effect has been performed when it is returned.
type BadRequestError struct {
	Field string
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// GatewayResolver yields a ready gateway or llm.ErrNotConfigured. It is
// called once per AI-backed request so credential changes take effect
// without a restart.
type GatewayResolver func() (*llm.Gateway, error)

// Service orchestrates the conversation variants. Assistant chat and
// plain chat persist to separate stores so the same slug carries two
// independent conversations without collision.
type Service struct {
	assistant session.Store
	chat      session.Store
	resolve   GatewayResolver
}

// NewService wires the two session stores and the gateway resolver.
func NewService(assistant, chat session.Store, resolve GatewayResolver) *Service {
	return &Service{assistant: assistant, chat: chat, resolve: resolve}
}

// AssistantChat runs one turn of the continuous assistant conversation:
// load history, generate a reply, persist both turns. The returned count
// is the message count after both appends.
func (s *Service) AssistantChat(ctx context.Context, slug, projectName, message string) (string, int, error) {
	if strings.TrimSpace(slug) == "" {
		return "", 0, &BadRequestError{Field: "slug"}
	}
	if strings.TrimSpace(message) == "" {
		return "", 0, &BadRequestError{Field: "message"}
	}

	gw, err := s.resolve()
	if err != nil {
		return "", 0, err
	}

	history, err := s.assistant.Load(ctx, slug)
	if err != nil {
		return "", 0, fmt.Errorf("load assistant session: %w", err)
	}

	msgs := prompt.Chat(toProviderMessages(history), prompt.AssistantContext(projectName, message))
	reply, err := gw.Generate(ctx, prompt.AssistantSystem, msgs, assistantMaxTokens)
	if err != nil {
		return "", 0, err
	}
	reply = extract.StripFences(reply)

	now := time.Now().UTC()
	if _, err := s.assistant.Append(ctx, slug, session.Message{Role: session.RoleUser, Content: message, Timestamp: now}); err != nil {
		return "", 0, fmt.Errorf("append user turn: %w", err)
	}
	after, err := s.assistant.Append(ctx, slug, session.Message{Role: session.RoleAssistant, Content: reply, Timestamp: time.Now().UTC()})
	if err != nil {
		return "", 0, fmt.Errorf("append assistant turn: %w", err)
	}
	observability.RecordSessionAppend("assistant")

	return reply, len(after), nil
}

// PostChatMessage records a visitor message in the plain chat log. No
// generation call is made; the log is a one-way message drop.
func (s *Service) PostChatMessage(ctx context.Context, slug, message string) (int, error) {
	if strings.TrimSpace(slug) == "" {
		return 0, &BadRequestError{Field: "slug"}
	}
	if strings.TrimSpace(message) == "" {
		return 0, &BadRequestError{Field: "message"}
	}

	after, err := s.chat.Append(ctx, slug, session.Message{Role: session.RoleUser, Content: message, Timestamp: time.Now().UTC()})
	if err != nil {
		return 0, fmt.Errorf("append chat message: %w", err)
	}
	observability.RecordSessionAppend("chat")
	return len(after), nil
}

// ChatHistory returns the persisted plain-chat log for a slug. An unknown
// slug yields an empty list, never an error.
func (s *Service) ChatHistory(ctx context.Context, slug string) ([]session.Message, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, &BadRequestError{Field: "slug"}
	}
	msgs, err := s.chat.Load(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	return msgs, nil
}

// GenerateBrand proposes brand directions for a product. A generation
// that cannot be parsed yields an empty list, not an error.
func (s *Service) GenerateBrand(ctx context.Context, description string, features []string) ([]BrandOption, error) {
	if strings.TrimSpace(description) == "" {
		return nil, &BadRequestError{Field: "description"}
	}

	gw, err := s.resolve()
	if err != nil {
		return nil, err
	}

	raw, err := gw.Generate(ctx, prompt.BrandSystem, prompt.BrandUser(description, features), brandMaxTokens)
	if err != nil {
		return nil, err
	}

	options := extract.Decode(raw, defaultBrandOptions())
	if len(options) == 0 {
		log.Printf("brand generation returned no parseable options (raw length %d)", len(raw))
	}
	return options, nil
}

// DecomposeFeatures breaks the requested features into priced task groups.
func (s *Service) DecomposeFeatures(ctx context.Context, features []string) ([]TaskGroup, error) {
	if len(features) == 0 {
		return nil, &BadRequestError{Field: "features"}
	}

	gw, err := s.resolve()
	if err != nil {
		return nil, err
	}

	raw, err := gw.Generate(ctx, prompt.DecomposeSystem, prompt.DecomposeUser(features), decomposeMaxTokens)
	if err != nil {
		return nil, err
	}

	return extract.Decode(raw, defaultTaskGroups()), nil
}

// SynthesizeSpec produces a build specification from the full
// configuration. brand is the chosen brand direction as serialized JSON.
func (s *Service) SynthesizeSpec(ctx context.Context, description string, features []string, brand string, total float64) (BuildSpec, error) {
	if strings.TrimSpace(description) == "" {
		return defaultBuildSpec(), &BadRequestError{Field: "description"}
	}
	if len(features) == 0 {
		return defaultBuildSpec(), &BadRequestError{Field: "features"}
	}

	gw, err := s.resolve()
	if err != nil {
		return defaultBuildSpec(), err
	}

	raw, err := gw.Generate(ctx, prompt.SpecSystem, prompt.SpecUser(description, features, brand, total), specMaxTokens)
	if err != nil {
		return defaultBuildSpec(), err
	}

	return extract.Decode(raw, defaultBuildSpec()), nil
}

// Revise answers a revision request against an existing specification.
// The caller resends history each time; nothing is persisted here. Prose
// output becomes a plain reply with Applying false.
func (s *Service) Revise(ctx context.Context, message string, history []provider.Message, spec, brand string) (RevisionReply, error) {
	if strings.TrimSpace(message) == "" {
		return defaultRevisionReply(), &BadRequestError{Field: "message"}
	}

	gw, err := s.resolve()
	if err != nil {
		return defaultRevisionReply(), err
	}

	msgs := prompt.Revision(history, message)
	raw, err := gw.Generate(ctx, prompt.ReviseContext(spec, brand), msgs, reviseMaxTokens)
	if err != nil {
		return defaultRevisionReply(), err
	}

	return extract.DecodeOr(raw, defaultRevisionReply(), func(text string) RevisionReply {
		return RevisionReply{Message: text, Applying: false}
	}), nil
}

func toProviderMessages(msgs []session.Message) []provider.Message {
	out := make([]provider.Message, len(msgs))
	for i, m := range msgs {
		out[i] = provider.Message{Role: m.Role, Content: m.Content}
	}
	return out
}
