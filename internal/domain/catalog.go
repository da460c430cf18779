package domain

// Provider names the backend a model is served by.
type Provider string

const (
	ProviderAmplify Provider = "amplify"
	ProviderOpenAI  Provider = "openai"
	ProviderGoogle  Provider = "google"
)

type Model struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Provider         Provider `json:"provider,omitempty"`
	ActualTokenLimit int      `json:"actualTokenLimit,omitempty"`
	// InputCost is dollars per 1000 input tokens.
	InputCost float64 `json:"inputCost,omitempty"`
	// OutputCost is dollars per prompt sent.
	OutputCost float64 `json:"outputCost,omitempty"`
}

// Models is the catalog of known models. A model missing here has no cost data.
var Models = map[string]Model{
	"gpt-4o": {
		ID: "gpt-4o", Name: "GPT-4o", Provider: ProviderOpenAI,
		ActualTokenLimit: 128000, InputCost: 0.0025, OutputCost: 0.01,
	},
	"gpt-4o-mini": {
		ID: "gpt-4o-mini", Name: "GPT-4o mini", Provider: ProviderOpenAI,
		ActualTokenLimit: 128000, InputCost: 0.00015, OutputCost: 0.0006,
	},
	"anthropic.claude-3-5-sonnet": {
		ID: "anthropic.claude-3-5-sonnet", Name: "Claude 3.5 Sonnet", Provider: ProviderAmplify,
		ActualTokenLimit: 200000, InputCost: 0.003, OutputCost: 0.015,
	},
	"mistral.mistral-large": {
		ID: "mistral.mistral-large", Name: "Mistral Large", Provider: ProviderAmplify,
		ActualTokenLimit: 32000, InputCost: 0.002, OutputCost: 0.006,
	},
	"gemini-2.0-flash": {
		ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash", Provider: ProviderGoogle,
		ActualTokenLimit: 1000000, InputCost: 0.0001, OutputCost: 0.0004,
	},
}

// LookupModel resolves id against the catalog.
func LookupModel(id string) (Model, bool) {
	m, ok := Models[id]
	return m, ok
}
