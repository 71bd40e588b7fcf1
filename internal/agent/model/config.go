package model

// ================ Config ================

// Providers a gateway profile can route to.
const (
	ProviderAzureOpenAI = "azure_openai"
	ProviderGemini      = "gemini"
)

// GatewayConfig configures the model invocation gateway.
type GatewayConfig struct {
	Provider string `envconfig:"LLM_PROVIDER" default:"azure_openai"`

	// Azure OpenAI
	APIKey     string `envconfig:"AZURE_OPENAI_KEY"`
	Endpoint   string `envconfig:"AZURE_OPENAI_ENDPOINT"`
	APIVersion string `envconfig:"AZURE_OPENAI_API_VERSION" default:"2024-08-01-preview"`
	Deployment string `envconfig:"AZURE_OPENAI_DEPLOYMENT" default:"gpt-4o"`

	// Gemini
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`

	Temperature float32 `envconfig:"LLM_TEMPERATURE" default:"0.5"`
	MaxTokens   int     `envconfig:"LLM_MAX_TOKENS" default:"4000"`

	Retry RetryConfig
}

// RetryConfig bounds the gateway's transient-failure retry loop.
type RetryConfig struct {
	MaxAttempts int `envconfig:"LLM_RETRY_MAX_ATTEMPTS" default:"3"`
	BaseDelayMS int `envconfig:"LLM_RETRY_BASE_DELAY_MS" default:"500"`
	MaxDelayMS  int `envconfig:"LLM_RETRY_MAX_DELAY_MS" default:"4000"`
	JitterMS    int `envconfig:"LLM_RETRY_JITTER_MS" default:"300"`
}

// ExecutorConfig configures the Python code executor.
type ExecutorConfig struct {
	// PythonPath points at the interpreter; empty means probe PATH.
	PythonPath string `envconfig:"PYTHON_PATH"`
	TimeoutSec int    `envconfig:"EXECUTOR_TIMEOUT_SEC" default:"60"`
}

// ConversationConfig bounds thread history handling.
type ConversationConfig struct {
	TTL       string `envconfig:"CONVERSATION_TTL" default:"720h"`
	MaxTurns  int    `envconfig:"CONVERSATION_MAX_TURNS" default:"10"`
	MaxTokens int    `envconfig:"CONVERSATION_MAX_TOKENS" default:"3000"`
}
