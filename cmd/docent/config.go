package main

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/docentlabs/docent/ai"
)

// aiFileConfig holds the AI service section of the config file.
type aiFileConfig struct {
	EmbeddingHost  string `yaml:"embedding_host"`
	ChatHost       string `yaml:"chat_host"`
	EmbeddingModel string `yaml:"embedding_model"`
	ChatModel      string `yaml:"chat_model"`
}

// fileConfig is the root structure of the optional YAML config file.
type fileConfig struct {
	AI aiFileConfig `yaml:"ai"`
}

// loadFileConfig reads a config from the specified path. A missing file is
// not an error; defaults apply. Environment variables (typically loaded from
// a .env file) override file values.
func loadFileConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	if v := os.Getenv("DOCENT_EMBEDDING_HOST"); v != "" {
		cfg.AI.EmbeddingHost = v
	}
	if v := os.Getenv("DOCENT_CHAT_HOST"); v != "" {
		cfg.AI.ChatHost = v
	}
	if v := os.Getenv("DOCENT_EMBEDDING_MODEL"); v != "" {
		cfg.AI.EmbeddingModel = v
	}
	if v := os.Getenv("DOCENT_CHAT_MODEL"); v != "" {
		cfg.AI.ChatModel = v
	}

	return cfg, nil
}

// aiConfig converts the file config into an AI service configuration,
// falling back to defaults for unset fields.
func (c *fileConfig) aiConfig() *ai.Config {
	var opts []ai.ConfigOption
	if c.AI.EmbeddingHost != "" {
		opts = append(opts, ai.WithEmbeddingHost(c.AI.EmbeddingHost))
	}
	if c.AI.ChatHost != "" {
		opts = append(opts, ai.WithChatHost(c.AI.ChatHost))
	}
	if c.AI.EmbeddingModel != "" {
		opts = append(opts, ai.WithEmbeddingModel(c.AI.EmbeddingModel))
	}
	if c.AI.ChatModel != "" {
		opts = append(opts, ai.WithChatModel(c.AI.ChatModel))
	}
	return ai.NewConfig(opts...)
}
