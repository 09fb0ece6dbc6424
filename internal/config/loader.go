package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// LoaderOptions describes how configuration should be discovered.
type LoaderOptions struct {
	ConfigPaths []string
	FileName    string
	EnvPrefix   string
}

// Load returns the merged configuration from files and environment variables.
func Load(opts LoaderOptions) (Config, error) {
	v := viper.New()

	name := opts.FileName
	if name == "" {
		name = "rp"
	}

	configFile := locateConfigFile(name, opts.ConfigPaths)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(name)
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = "RP"
	}
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)

	setDefaults(v)

	if configFile != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg = expandEnvVars(cfg)
	cfg = applyConventionalEnv(cfg)

	return cfg, nil
}

// applyConventionalEnv fills credentials from the environment variable
// names that CI systems conventionally export, so the tool works in a
// GitHub Actions job without any config file.
func applyConventionalEnv(cfg Config) Config {
	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	if cfg.GitHub.Repository == "" {
		cfg.GitHub.Repository = os.Getenv("REPO_NAME")
	}
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = os.Getenv("MODEL_NAME")
	}
	return cfg
}

// expandEnvVars expands ${VAR} and $VAR syntax in configuration strings.
func expandEnvVars(cfg Config) Config {
	cfg.GitHub.Token = expandEnvString(cfg.GitHub.Token)
	cfg.GitHub.Repository = expandEnvString(cfg.GitHub.Repository)

	cfg.Gemini.APIKey = expandEnvString(cfg.Gemini.APIKey)
	cfg.Gemini.Model = expandEnvString(cfg.Gemini.Model)

	cfg.Review.PromptPath = expandEnvString(cfg.Review.PromptPath)
	cfg.Review.Extensions = expandEnvStringSlice(cfg.Review.Extensions)
	cfg.Review.ExcludedPaths = expandEnvStringSlice(cfg.Review.ExcludedPaths)

	cfg.HTTP.Timeout = expandEnvString(cfg.HTTP.Timeout)
	cfg.HTTP.InitialBackoff = expandEnvString(cfg.HTTP.InitialBackoff)
	cfg.HTTP.MaxBackoff = expandEnvString(cfg.HTTP.MaxBackoff)

	cfg.Store.Path = expandEnvString(cfg.Store.Path)
	cfg.Git.RepositoryDir = expandEnvString(cfg.Git.RepositoryDir)

	return cfg
}

// expandEnvString replaces ${VAR} or $VAR with environment variable values.
func expandEnvString(s string) string {
	if s == "" {
		return s
	}

	re := regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	re = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

func expandEnvStringSlice(slice []string) []string {
	if len(slice) == 0 {
		return slice
	}
	result := make([]string, len(slice))
	for i, s := range slice {
		result[i] = expandEnvString(s)
	}
	return result
}

func locateConfigFile(name string, paths []string) string {
	searchPaths := append([]string{}, paths...)
	searchPaths = append(searchPaths, ".")
	for _, dir := range searchPaths {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name+".yaml")
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	// Review defaults mirror the filtering policy used in CI: skip
	// lockfiles and build output, review only source-ish extensions.
	v.SetDefault("review.promptPath", "system_prompt.md")
	v.SetDefault("review.extensions", []string{
		".go", ".ts", ".tsx", ".js", ".css", ".sql", ".py",
		".md", ".json", ".yml", ".yaml", ".toml",
	})
	v.SetDefault("review.excludedPaths", []string{
		"package-lock.json", "yarn.lock", "pnpm-lock.yaml", "go.sum",
		"dist/", "out/", "build/", "coverage/",
	})
	v.SetDefault("review.maxPatchBytes", 20000)
	v.SetDefault("review.maxOutputTokens", 8192)
	v.SetDefault("review.temperature", 0.2)

	// HTTP defaults
	v.SetDefault("http.timeout", "60s")
	v.SetDefault("http.maxRetries", 3)
	v.SetDefault("http.initialBackoff", "2s")
	v.SetDefault("http.maxBackoff", "32s")
	v.SetDefault("http.backoffMultiplier", 2.0)

	// Store defaults
	v.SetDefault("store.enabled", false)
	v.SetDefault("store.path", filepath.Join(".reviewpilot", "history.db"))

	v.SetDefault("git.repositoryDir", ".")
}
