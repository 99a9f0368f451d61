package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/solatis/treelint/internal/types"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*LintConfig, error) {
	return LoadConfigWith(viper.New(), configPath)
}

// LoadConfigWith loads configuration into an existing viper instance, which
// may already carry bound flags.
func LoadConfigWith(v *viper.Viper, configPath string) (*LintConfig, error) {
	defaults := DefaultLintConfig()

	// Set defaults matching DefaultLintConfig
	v.SetDefault("lint.workers", defaults.Workers)
	v.SetDefault("lint.node_type_key", defaults.NodeTypeKey)
	v.SetDefault("lint.max_file_size", defaults.MaxFileSize)
	v.SetDefault("lint.ignore", defaults.Ignore)
	v.SetDefault("database.url", "")

	// Bind environment variables with TL_ prefix
	v.SetEnvPrefix("TL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Security check: database passwords come from the environment only
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &LintConfig{
		Workers:     v.GetInt("lint.workers"),
		NodeTypeKey: v.GetString("lint.node_type_key"),
		MaxFileSize: v.GetInt64("lint.max_file_size"),
		Ignore:      v.GetStringSlice("lint.ignore"),
		Rules:       defaults.Rules,
		DatabaseURL: v.GetString("database.url"),
	}

	visitorKeys, err := loadVisitorKeys(normalize(v.Get("lint.visitor_keys")))
	if err != nil {
		return nil, err
	}
	cfg.VisitorKeys = visitorKeys

	if v.IsSet("rules") {
		rules, err := loadRules(v.GetStringMap("rules"))
		if err != nil {
			return nil, err
		}
		cfg.Rules = rules
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadRules parses every entry under the rules key, in name order so the
// first error is deterministic.
func loadRules(raw map[string]any) (map[string]types.RuleSetting, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	rules := make(map[string]types.RuleSetting, len(raw))
	for _, name := range names {
		setting, err := ParseRuleSetting(name, normalize(raw[name]))
		if err != nil {
			return nil, err
		}
		rules[name] = setting
	}
	return rules, nil
}

// loadVisitorKeys reads a list of {type, keys} entries. Viper folds map keys
// to lower case, so node type names are carried as values instead.
func loadVisitorKeys(raw any) (map[string][]string, error) {
	keys := map[string][]string{}
	if raw == nil {
		return keys, nil
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("visitor_keys must be a list of {type, keys} entries")
	}
	for i, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("visitor_keys[%d]: want object, got %T", i, entry)
		}
		typ, ok := obj["type"].(string)
		if !ok || typ == "" {
			return nil, fmt.Errorf("visitor_keys[%d]: type must be a non-empty string", i)
		}
		list, ok := obj["keys"].([]any)
		if !ok {
			return nil, fmt.Errorf("visitor_keys[%d]: keys must be a list", i)
		}
		keys[typ] = make([]string, 0, len(list))
		for _, k := range list {
			name, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("visitor_keys[%d]: keys must be strings", i)
			}
			keys[typ] = append(keys[typ], name)
		}
	}
	return keys, nil
}

// normalize converts the map[any]any and typed slices some decoders produce
// into the map[string]any / []any shapes rules expect.
func normalize(v any) any {
	switch val := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[fmt.Sprint(k)] = normalize(inner)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = normalize(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = normalize(inner)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = inner
		}
		return out
	default:
		return v
	}
}


// validateNoSecretsInConfig enforces environment-only database passwords (12-factor principle).
func validateNoSecretsInConfig(v *viper.Viper) error {
	if os.Getenv("TL_DATABASE_URL") != "" || !v.InConfig("database.url") {
		return nil
	}
	if hasCredentials(v.GetString("database.url")) {
		return fmt.Errorf("database passwords not allowed in config files (use TL_DATABASE_URL environment variable)")
	}
	return nil
}
