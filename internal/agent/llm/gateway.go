package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"google.golang.org/genai"

	"github.com/Veer19/flow-ai-api/internal/agent/model"
	errx "github.com/Veer19/flow-ai-api/internal/core/error"
	logx "github.com/Veer19/flow-ai-api/pkg/logger"
)

// Gateway profile names. Each selects a deployment/temperature pair.
const (
	ProfileDefault  = "default"
	ProfileAnalyze  = "analyze"
	ProfileCode     = "code"
	ProfileCreative = "creative"
)

// ErrUnknownProfile is returned for profiles outside the static registry.
// It is a configuration error and is never retried.
var ErrUnknownProfile = errors.New("unknown llm profile")

// Profile is one named gateway configuration.
type Profile struct {
	Name        string
	Provider    string
	Deployment  string
	Temperature float32
	MaxTokens   int
}

// Invoker is the node-facing surface of the gateway.
type Invoker interface {
	// Invoke renders a free-text completion for the prompt pair.
	Invoke(ctx context.Context, userPrompt, systemPrompt, profile string) (string, error)

	// InvokeStructured decodes the completion's JSON object into out.
	InvokeStructured(ctx context.Context, userPrompt, systemPrompt, profile string, out any) error
}

// ModelFactory builds a chat-model handle for a profile. Injected so tests
// can substitute a fake model.
type ModelFactory func(ctx context.Context, p Profile) (einomodel.BaseChatModel, error)

// Gateway routes prompt pairs to provider chat models by profile, caching
// one handle per profile+temperature and retrying transient failures.
type Gateway struct {
	profiles map[string]Profile
	factory  ModelFactory
	retry    RetryPolicy

	mu      sync.RWMutex
	handles map[string]einomodel.BaseChatModel
}

// NewGateway builds a gateway with the default provider factory.
func NewGateway(cfg model.GatewayConfig) *Gateway {
	return NewGatewayWithFactory(cfg, defaultFactory(cfg))
}

// NewGatewayWithFactory builds a gateway with an injected model factory.
func NewGatewayWithFactory(cfg model.GatewayConfig, factory ModelFactory) *Gateway {
	return &Gateway{
		profiles: buildProfiles(cfg),
		factory:  factory,
		retry:    NewRetryPolicy(cfg.Retry),
		handles:  make(map[string]einomodel.BaseChatModel),
	}
}

// buildProfiles derives the static profile registry from config. All
// profiles share the configured deployment; only temperature varies.
func buildProfiles(cfg model.GatewayConfig) map[string]Profile {
	deployment := cfg.Deployment
	if cfg.Provider == model.ProviderGemini {
		deployment = cfg.GeminiModel
	}
	base := Profile{
		Provider:   cfg.Provider,
		Deployment: deployment,
		MaxTokens:  cfg.MaxTokens,
	}
	profiles := make(map[string]Profile, 4)
	for name, temp := range map[string]float32{
		ProfileDefault:  cfg.Temperature,
		ProfileAnalyze:  0.7,
		ProfileCode:     0.0,
		ProfileCreative: 0.7,
	} {
		p := base
		p.Name = name
		p.Temperature = temp
		profiles[name] = p
	}
	return profiles
}

func defaultFactory(cfg model.GatewayConfig) ModelFactory {
	return func(ctx context.Context, p Profile) (einomodel.BaseChatModel, error) {
		temperature := p.Temperature
		maxTokens := p.MaxTokens
		switch p.Provider {
		case model.ProviderGemini:
			client, err := genai.NewClient(ctx, &genai.ClientConfig{
				APIKey:  cfg.GeminiAPIKey,
				Backend: genai.BackendGeminiAPI,
			})
			if err != nil {
				return nil, fmt.Errorf("create gemini client: %w", err)
			}
			return gemini.NewChatModel(ctx, &gemini.Config{
				Client:      client,
				Model:       p.Deployment,
				Temperature: &temperature,
				MaxTokens:   &maxTokens,
			})
		case model.ProviderAzureOpenAI:
			return openai.NewChatModel(ctx, &openai.ChatModelConfig{
				ByAzure:     true,
				BaseURL:     cfg.Endpoint,
				APIKey:      cfg.APIKey,
				APIVersion:  cfg.APIVersion,
				Model:       p.Deployment,
				Temperature: &temperature,
				MaxTokens:   &maxTokens,
			})
		default:
			return nil, fmt.Errorf("unsupported llm provider %q", p.Provider)
		}
	}
}

// handle returns the cached chat model for the profile, constructing it on
// first use. The cache is read-mostly after warm-up.
func (g *Gateway) handle(ctx context.Context, p Profile) (einomodel.BaseChatModel, error) {
	key := fmt.Sprintf("%s|%.2f", p.Name, p.Temperature)

	g.mu.RLock()
	h, ok := g.handles[key]
	g.mu.RUnlock()
	if ok {
		return h, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if h, ok := g.handles[key]; ok {
		return h, nil
	}
	h, err := g.factory(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("build chat model for profile %q: %w", p.Name, err)
	}
	g.handles[key] = h
	return h, nil
}

// Invoke sends the prompt pair to the profile's chat model and returns the
// completion text. Transient provider failures are retried; the final
// attempt's error is wrapped as a provider error with the cause intact.
func (g *Gateway) Invoke(ctx context.Context, userPrompt, systemPrompt, profile string) (string, error) {
	p, ok := g.profiles[profile]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProfile, profile)
	}
	h, err := g.handle(ctx, p)
	if err != nil {
		return "", err
	}

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt),
	}

	var out *schema.Message
	err = g.retry.Do(ctx, func(ctx context.Context) error {
		var genErr error
		out, genErr = h.Generate(ctx, messages)
		return genErr
	})
	if err != nil {
		return "", errx.WrapProvider(err)
	}
	if out == nil {
		return "", fmt.Errorf("profile %q returned no message", profile)
	}

	g.logUsage(p, out)
	return out.Content, nil
}

// InvokeStructured invokes the profile and strict-decodes the first JSON
// object of the completion into out. Decode failures surface as *ParseError
// and are never retried.
func (g *Gateway) InvokeStructured(ctx context.Context, userPrompt, systemPrompt, profile string, out any) error {
	content, err := g.Invoke(ctx, userPrompt, systemPrompt, profile)
	if err != nil {
		return err
	}
	return DecodeJSON(content, out)
}

func (g *Gateway) logUsage(p Profile, out *schema.Message) {
	if out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(p.Deployment))
	logx.Debug().
		Str("profile", p.Name).
		Str("model", p.Deployment).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")
}

var _ Invoker = (*Gateway)(nil)
