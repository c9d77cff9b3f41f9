/*
 * Copyright (C) 2026 Simone Pezzano
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package ollamakit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

const (
	defaultHost        = "http://localhost:11434"
	defaultModel       = "qwen3:latest"
	defaultTemperature = 0.1
	defaultTopK        = 40
	defaultTopP        = 0.9
	defaultNumPredict  = 1024
	defaultTimeout     = 5 * time.Minute
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the client configuration. It can be loaded from YAML or TOML files, or from a generic map (as the CLI
// does through viper).
type Config struct {
	Host           string        `yaml:"host" json:"host" toml:"host" mapstructure:"host" validate:"required,url"`
	Model          string        `yaml:"model" json:"model" toml:"model" mapstructure:"model" validate:"required"`
	EmbeddingModel string        `yaml:"embeddingModel" json:"embedding_model" toml:"embedding_model" mapstructure:"embedding_model"`
	SystemPrompt   string        `yaml:"systemPrompt" json:"system_prompt" toml:"system_prompt" mapstructure:"system_prompt"`
	Temperature    float32       `yaml:"temperature" json:"temperature" toml:"temperature" mapstructure:"temperature" validate:"gte=0,lte=2"`
	TopK           float32       `yaml:"topK" json:"top_k" toml:"top_k" mapstructure:"top_k" validate:"gte=0"`
	TopP           float32       `yaml:"topP" json:"top_p" toml:"top_p" mapstructure:"top_p" validate:"gte=0,lte=1"`
	NumPredict     int           `yaml:"numPredict" json:"num_predict" toml:"num_predict" mapstructure:"num_predict"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout" toml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	APIKey         string        `yaml:"apiKey" json:"api_key" toml:"api_key" mapstructure:"api_key"`
	AutoInstall    bool          `yaml:"autoInstall" json:"auto_install" toml:"auto_install" mapstructure:"auto_install"`
	KeepHistory    bool          `yaml:"keepHistory" json:"keep_history" toml:"keep_history" mapstructure:"keep_history"`
	Retries        int           `yaml:"retries" json:"retries" toml:"retries" mapstructure:"retries" validate:"gte=0"`
	RegistryURL    string        `yaml:"registryURL" json:"registry_url" toml:"registry_url" mapstructure:"registry_url" validate:"omitempty,url"`
}

// DefaultConfig returns a configuration pointing to a local Ollama instance.
func DefaultConfig() Config {
	return Config{
		Host:        defaultHost,
		Model:       defaultModel,
		Temperature: defaultTemperature,
		TopK:        defaultTopK,
		TopP:        defaultTopP,
		NumPredict:  defaultNumPredict,
		Timeout:     defaultTimeout,
		KeepHistory: true,
		Retries:     1,
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			msgs := make([]string, 0, len(vErrs))
			for _, fe := range vErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// embeddingModel returns the model used for embeddings, which falls back to the chat model.
func (c Config) embeddingModel() string {
	if c.EmbeddingModel != "" {
		return c.EmbeddingModel
	}
	return c.Model
}

// LoadConfigFile reads a YAML or TOML configuration file over the defaults. The format is picked by extension.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported configuration format: %s", path)
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// ConfigFromMap decodes a generic map over the defaults. String values are converted to the field types, so
// environment-sourced maps work as well.
func ConfigFromMap(values map[string]any) (Config, error) {
	return DefaultConfig().Apply(values)
}

// Apply returns a copy of the configuration with the values of the map, keyed by their mapstructure names, decoded
// over it. The result is validated.
func (c Config) Apply(values map[string]any) (Config, error) {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &c,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return c, err
	}
	if err := decoder.Decode(values); err != nil {
		return c, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return c, c.Validate()
}

// AsMap returns the configuration keyed by mapstructure names, the inverse of Apply.
func (c Config) AsMap() map[string]any {
	out := make(map[string]any)
	_ = mapstructure.Decode(c, &out)
	return out
}
