package config

import "time"

// Config is the root configuration for Mentor.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Models    ModelsConfig    `json:"models"`
	Search    SearchConfig    `json:"search"`
	Workspace WorkspaceConfig `json:"workspace"`
	Events    EventsConfig    `json:"events"`
	Prompts   PromptsConfig   `json:"prompts"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// ModelsConfig holds model provider configuration.
type ModelsConfig struct {
	Default   string                    `json:"default"`
	Providers map[string]ProviderConfig `json:"providers"`
}

// ProviderConfig configures a single LLM provider.
type ProviderConfig struct {
	Driver        string         `json:"driver"` // "openai", "claude", "ollama"
	Model         string         `json:"model"`
	BaseURL       string         `json:"base_url,omitempty"`
	APIKey        string         `json:"api_key,omitempty"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	ContextWindow int            `json:"context_window,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty"`
	Timeout       Duration       `json:"timeout,omitempty"`
	Options       map[string]any `json:"options,omitempty"`
}

// SearchConfig selects and configures the web search provider.
type SearchConfig struct {
	Provider   string   `json:"provider"` // tavily, brave, jina, duckduckgo, google, bing
	APIKey     string   `json:"api_key,omitempty"`
	GoogleCX   string   `json:"google_cx,omitempty"` // custom search engine id (google only)
	MaxResults int      `json:"max_results,omitempty"`
	Timeout    Duration `json:"timeout,omitempty"`
}

// WorkspaceConfig holds session storage settings.
type WorkspaceConfig struct {
	Root string `json:"root"` // one directory per session underneath
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int `json:"buffer_size"`
}

// PromptsConfig points at the optional prompt template file.
type PromptsConfig struct {
	File string `json:"file,omitempty"`
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
