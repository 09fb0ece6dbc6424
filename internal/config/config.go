package config

// Config represents the full application configuration.
type Config struct {
	GitHub GitHubConfig `yaml:"github"`
	Gemini GeminiConfig `yaml:"gemini"`
	Review ReviewConfig `yaml:"review"`
	HTTP   HTTPConfig   `yaml:"http"`
	Store  StoreConfig  `yaml:"store"`
	Git    GitConfig    `yaml:"git"`
}

// GitHubConfig holds credentials for the change-set source and comment sink.
type GitHubConfig struct {
	// Token is a personal access token or the GITHUB_TOKEN from Actions.
	Token string `yaml:"token"`

	// Repository identifies the change-set namespace as "owner/name".
	Repository string `yaml:"repository"`
}

// GeminiConfig configures the generative model provider.
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"`

	// Model optionally overrides the default fallback priority list.
	// When set and not already present, it is tried first.
	Model string `yaml:"model"`
}

// ReviewConfig configures diff filtering and prompt assembly.
type ReviewConfig struct {
	// PromptPath locates the review policy text. The run fails when the
	// file cannot be read.
	PromptPath string `yaml:"promptPath"`

	// Extensions lists the file suffixes considered reviewable.
	Extensions []string `yaml:"extensions"`

	// ExcludedPaths lists substrings that disqualify a file path
	// (lockfiles, build output, generated reports).
	ExcludedPaths []string `yaml:"excludedPaths"`

	// MaxPatchBytes truncates any single file patch beyond this size.
	MaxPatchBytes int `yaml:"maxPatchBytes"`

	// MaxOutputTokens and Temperature are passed to the model provider.
	MaxOutputTokens int     `yaml:"maxOutputTokens"`
	Temperature     float64 `yaml:"temperature"`
}

// HTTPConfig holds transport settings shared by the GitHub and Gemini clients.
type HTTPConfig struct {
	Timeout           string  `yaml:"timeout"`
	MaxRetries        int     `yaml:"maxRetries"`
	InitialBackoff    string  `yaml:"initialBackoff"`
	MaxBackoff        string  `yaml:"maxBackoff"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier"`
}

// StoreConfig configures the optional run-history database.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// GitConfig configures the local change-set source.
type GitConfig struct {
	RepositoryDir string `yaml:"repositoryDir"`
}
