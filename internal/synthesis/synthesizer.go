// Package synthesis sends the merged context to a generative model and
// parses its semi-structured reply into anchors and a knowledge brief.
package synthesis

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rapport-api/internal/fanout"
	"github.com/sells-group/rapport-api/internal/fault"
	"github.com/sells-group/rapport-api/internal/model"
	"github.com/sells-group/rapport-api/pkg/anthropic"
	"github.com/sells-group/rapport-api/pkg/openai"
)

const defaultTimeout = 45 * time.Second

const systemPrompt = `You are preparing a rapport brief for a phone-based salesperson calling a prospect in the given ZIP code. Using only the supplied context, reply with plain lines inside a single fenced code block tagged "brief":
- Venue recommendations as: ANCHOR|CATEGORY|Venue Name|one-sentence reason to bring it up
- Knowledge sentences as: topic_label: one conversational sentence
Emit 3-5 ANCHOR lines drawn from the candidate venues and several topic lines. No other prose.`

// Config holds the model provider settings.
type Config struct {
	Provider  string // "openai" (default) or "anthropic"
	APIKey    string
	BaseURL   string
	Path      string
	Model     string
	MaxTokens int
}

// Input is the serialized context handed to the model.
type Input struct {
	Location         model.GeoResult        `json:"location"`
	StrategicContext model.StrategicContext `json:"strategicContext"`
	AnchorCandidates []model.LocalPlace     `json:"anchorCandidates"`
}

// Result is the parsed model output.
type Result struct {
	Anchors []model.Anchor
	Brief   model.KnowledgeBrief
}

// ChatModel is the minimal generative-model surface the synthesizer needs.
type ChatModel interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Option configures the Synthesizer.
type Option func(*Synthesizer)

// WithTimeout overrides the model-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) {
		s.timeout = d
	}
}

// WithChatModel injects a prebuilt model, bypassing config-driven
// construction. Used by tests.
func WithChatModel(m ChatModel) Option {
	return func(s *Synthesizer) {
		s.chat = m
	}
}

// Synthesizer turns pipeline context into a structured brief.
type Synthesizer struct {
	cfg     Config
	timeout time.Duration
	chat    ChatModel
}

// New creates a Synthesizer. Configuration problems surface on Synthesize,
// not here, so each request reports them as its own failure.
func New(cfg Config, opts ...Option) *Synthesizer {
	s := &Synthesizer{cfg: cfg, timeout: defaultTimeout}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Synthesize calls the model under the synthesis deadline and parses the
// reply. Configuration faults, transport faults, and empty-content faults
// are all distinguishable by kind.
func (s *Synthesizer) Synthesize(ctx context.Context, input Input) (*Result, error) {
	chat, err := s.chatModel()
	if err != nil {
		return nil, err
	}

	payload, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "synthesis: marshal context")
	}

	reply, err := fanout.WithTimeout(ctx, s.timeout, "synthesis: model call timed out", func(ctx context.Context) (string, error) {
		return chat.Complete(ctx, systemPrompt, string(payload))
	})
	if err != nil {
		if fault.IsTimeout(err) || fault.IsConfig(err) {
			return nil, err
		}
		return nil, &fault.TransportError{Msg: "synthesis: model call failed", Err: err}
	}

	result := ParseReply(reply)
	if len(result.Anchors) == 0 && len(result.Brief) == 0 {
		return nil, &fault.EmptySynthesisError{Msg: "synthesis: model reply contained no usable content"}
	}
	return result, nil
}

// chatModel validates configuration and builds the provider client.
func (s *Synthesizer) chatModel() (ChatModel, error) {
	if s.chat != nil {
		return s.chat, nil
	}

	if s.cfg.APIKey == "" {
		return nil, &fault.ConfigError{Msg: "synthesis: model API key is not configured"}
	}

	switch s.cfg.Provider {
	case "anthropic":
		return &anthropicModel{
			client:    anthropic.NewClient(s.cfg.APIKey),
			model:     s.cfg.Model,
			maxTokens: int64(s.cfg.MaxTokens),
		}, nil
	default:
		if s.cfg.BaseURL == "" {
			return nil, &fault.ConfigError{Msg: "synthesis: model endpoint is not configured"}
		}
		if u, uerr := url.Parse(s.cfg.BaseURL); uerr != nil || u.Scheme == "" || u.Host == "" {
			return nil, &fault.ConfigError{Msg: "synthesis: model endpoint URL is invalid"}
		}

		opts := []openai.Option{openai.WithModel(s.cfg.Model)}
		if s.cfg.Path != "" {
			opts = append(opts, openai.WithPath(s.cfg.Path))
		}
		return &openaiModel{
			client:    openai.NewClient(s.cfg.APIKey, s.cfg.BaseURL, opts...),
			maxTokens: s.cfg.MaxTokens,
		}, nil
	}
}

type openaiModel struct {
	client    openai.Client
	maxTokens int
}

func (m *openaiModel) Complete(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Messages: []openai.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	if m.maxTokens > 0 {
		req.MaxTokens = &m.maxTokens
	}

	resp, err := m.client.ChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &fault.ParseError{Msg: "synthesis: model returned no choices"}
	}
	return resp.Choices[0].Message.Content, nil
}

type anthropicModel struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func (m *anthropicModel) Complete(ctx context.Context, system, user string) (string, error) {
	maxTokens := m.maxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	resp, err := m.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     m.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []anthropic.Message{{Role: "user", Content: user}},
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
