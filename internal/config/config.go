package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	ISOAlpha2 = "alpha2"
	ISOAlpha3 = "alpha3"
)

type LLMConfig struct {
	Provider string   `toml:"provider" yaml:"provider"`
	Model    string   `toml:"model" yaml:"model"`
	APIKey   string   `toml:"api_key" yaml:"api_key"`
	BaseURL  string   `toml:"base_url" yaml:"base_url"`
	Timeout  Duration `toml:"timeout" yaml:"timeout"`
}

// PromptConfig selects the country code format. Template, when set,
// replaces the built-in prompt and must contain one %s for the title.
type PromptConfig struct {
	ISOFormat string `toml:"iso_format" yaml:"iso_format"`
	Template  string `toml:"template" yaml:"template"`
}

// CollectionConfig describes one record collection. An empty Output means
// the input file is overwritten in place.
type CollectionConfig struct {
	Name       string `toml:"name" yaml:"name"`
	Input      string `toml:"input" yaml:"input"`
	Output     string `toml:"output" yaml:"output"`
	TitleField string `toml:"title_field" yaml:"title_field"`
}

type IndexConfig struct {
	Path string `toml:"path" yaml:"path"`
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

type Config struct {
	LLM         LLMConfig          `toml:"llm" yaml:"llm"`
	Prompt      PromptConfig       `toml:"prompt" yaml:"prompt"`
	Collections []CollectionConfig `toml:"collections" yaml:"collections"`
	Index       IndexConfig        `toml:"index" yaml:"index"`
	Log         LogConfig          `toml:"log" yaml:"log"`
}

// Duration is a time.Duration that decodes from strings like "90s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in configuration: a local Ollama server and the
// works/grants collection pair.
func Defaults() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "llama3",
			BaseURL:  "http://localhost:11434",
		},
		Prompt: PromptConfig{ISOFormat: ISOAlpha3},
		Collections: []CollectionConfig{
			{
				Name:       "works",
				Input:      "data/json/works.json",
				Output:     "data/json/works_with_location.json",
				TitleField: "name",
			},
			{
				Name:       "grants",
				Input:      "data/json/grants.json",
				Output:     "data/json/grants_with_location.json",
				TitleField: "title",
			},
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads a TOML (or YAML, by extension) config file over the defaults.
// A missing file is not an error unless required is set.
func Load(path string, required bool) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var file Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	}

	cfg.merge(&file)
	return cfg, nil
}

// merge copies every non-zero value of other over c. A non-empty collection
// list replaces the default one entirely.
func (c *Config) merge(other *Config) {
	if other.LLM.Provider != "" {
		c.LLM.Provider = other.LLM.Provider
	}
	if other.LLM.Model != "" {
		c.LLM.Model = other.LLM.Model
	}
	if other.LLM.APIKey != "" {
		c.LLM.APIKey = other.LLM.APIKey
	}
	if other.LLM.BaseURL != "" {
		c.LLM.BaseURL = other.LLM.BaseURL
	}
	if other.LLM.Timeout.Duration != 0 {
		c.LLM.Timeout = other.LLM.Timeout
	}
	if other.Prompt.ISOFormat != "" {
		c.Prompt.ISOFormat = other.Prompt.ISOFormat
	}
	if other.Prompt.Template != "" {
		c.Prompt.Template = other.Prompt.Template
	}
	if len(other.Collections) > 0 {
		c.Collections = other.Collections
	}
	if other.Index.Path != "" {
		c.Index.Path = other.Index.Path
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
}

// ApplyEnv overrides config values with environment variables if present.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Prompt.ISOFormat) {
	case ISOAlpha2, ISOAlpha3:
	default:
		return fmt.Errorf("unsupported iso_format: %q", c.Prompt.ISOFormat)
	}
	if c.Prompt.Template != "" {
		if err := checkTemplate(c.Prompt.Template); err != nil {
			return err
		}
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model must be set")
	}
	for i, col := range c.Collections {
		if col.Input == "" {
			return fmt.Errorf("collection %d (%s): input must be set", i, col.Name)
		}
		if col.TitleField == "" {
			return fmt.Errorf("collection %d (%s): title_field must be set", i, col.Name)
		}
	}
	return nil
}

// checkTemplate requires exactly one %s and no other verb; %% is a literal
// percent sign.
func checkTemplate(tmpl string) error {
	placeholders := 0
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] != '%' {
			continue
		}
		if i+1 == len(tmpl) {
			return fmt.Errorf("prompt template ends with a bare %%")
		}
		switch tmpl[i+1] {
		case '%':
		case 's':
			placeholders++
		default:
			return fmt.Errorf("prompt template has unsupported verb %q", tmpl[i:i+2])
		}
		i++
	}
	if placeholders != 1 {
		return fmt.Errorf("prompt template must contain exactly one %%s")
	}
	return nil
}

// OutputPath returns where the enriched collection is written.
func (c CollectionConfig) OutputPath() string {
	if c.Output == "" {
		return c.Input
	}
	return c.Output
}
