package providers

import "strings"

// Family selects the wire format a provider speaks. The Response Extractor
// dispatches on it rather than probing response shapes.
type Family int

const (
	FamilyOpenAI Family = iota // {choices:[{message:{content}}]}
	FamilyGemini               // {candidates:[{content:{parts:[{text}]}}]}
)

func (f Family) String() string {
	if f == FamilyGemini {
		return "gemini"
	}
	return "openai"
}

// ModelOverride sets extra body fields for models whose name contains Pattern.
// Keys are sjson paths, e.g. "generationConfig.thinkingConfig.thinkingBudget".
type ModelOverride struct {
	Pattern string
	Set     map[string]any
}

// ProviderSpec is the metadata record for one chat-completion provider.
type ProviderSpec struct {
	Name        string // config value, e.g. "openrouter"
	DisplayName string // shown in `panda status`
	Family      Family

	DefaultAPIBase      string
	DefaultModel        string // used as the fallback model when none is configured
	DetectByKeyPrefix   string // match api key prefix
	DetectByBaseKeyword string // match substring in api base URL

	ModelOverrides []ModelOverride
}

// Label returns the display name, defaulting to the title-cased name.
func (s ProviderSpec) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	if s.Name == "" {
		return ""
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

// PROVIDERS is the registry. Order = detection priority.
var PROVIDERS = []ProviderSpec{
	{
		Name:                "openrouter",
		DisplayName:         "OpenRouter",
		Family:              FamilyOpenAI,
		DefaultAPIBase:      "https://openrouter.ai/api/v1",
		DefaultModel:        "google/gemini-2.0-flash-001",
		DetectByKeyPrefix:   "sk-or-",
		DetectByBaseKeyword: "openrouter",
	},
	{
		Name:                "gemini",
		DisplayName:         "Gemini",
		Family:              FamilyGemini,
		DefaultAPIBase:      "https://generativelanguage.googleapis.com/v1beta",
		DefaultModel:        "gemini-3-flash-preview",
		DetectByKeyPrefix:   "AIza",
		DetectByBaseKeyword: "googleapis",
		ModelOverrides: []ModelOverride{
			{Pattern: "thinking", Set: map[string]any{"generationConfig.thinkingConfig.includeThoughts": false}},
		},
	},
	{
		Name:           "openai",
		DisplayName:    "OpenAI",
		Family:         FamilyOpenAI,
		DefaultAPIBase: "https://api.openai.com/v1",
		DefaultModel:   "gpt-4o-mini",
	},
}

// FindByName returns the spec registered under name, or nil.
func FindByName(name string) *ProviderSpec {
	name = strings.ToLower(strings.TrimSpace(name))
	for i := range PROVIDERS {
		if PROVIDERS[i].Name == name {
			return &PROVIDERS[i]
		}
	}
	return nil
}

// Detect guesses the provider from the key prefix or the API base URL.
// It returns nil when nothing matches.
func Detect(apiKey, apiBase string) *ProviderSpec {
	for i := range PROVIDERS {
		s := &PROVIDERS[i]
		if s.DetectByKeyPrefix != "" && strings.HasPrefix(apiKey, s.DetectByKeyPrefix) {
			return s
		}
	}
	base := strings.ToLower(apiBase)
	for i := range PROVIDERS {
		s := &PROVIDERS[i]
		if s.DetectByBaseKeyword != "" && base != "" && strings.Contains(base, s.DetectByBaseKeyword) {
			return s
		}
	}
	return nil
}

func (s ProviderSpec) overridesFor(model string) []ModelOverride {
	lower := strings.ToLower(model)
	var out []ModelOverride
	for _, o := range s.ModelOverrides {
		if strings.Contains(lower, strings.ToLower(o.Pattern)) {
			out = append(out, o)
		}
	}
	return out
}
