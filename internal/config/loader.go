package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads, validates and decodes a config file
func Load(path string) (*Config, error) {
	cfg, errs := LoadFile(path)
	if len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return cfg, nil
}

// LoadFile reads a config file and returns every problem found in it.
// The returned config is nil whenever errors are reported.
func LoadFile(path string) (*Config, []ValidationError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []ValidationError{{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}}
	}
	return Parse(path, data)
}

// Parse validates and decodes a config document. file is only used to
// label errors.
func Parse(file string, data []byte) (*Config, []ValidationError) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, []ValidationError{{File: file, Message: fmt.Sprintf("failed to parse YAML: %v", err)}}
	}
	if doc == nil {
		return nil, []ValidationError{{File: file, Message: "empty config document"}}
	}

	validator, err := NewValidator()
	if err != nil {
		return nil, []ValidationError{{File: file, Message: err.Error()}}
	}
	if errs := validator.ValidateDocument(file, doc); len(errs) > 0 {
		return nil, errs
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, []ValidationError{{File: file, Message: fmt.Sprintf("failed to decode config: %v", err)}}
	}
	cfg.applyDefaults()

	if errs := cfg.validateRules(file); len(errs) > 0 {
		return nil, errs
	}

	return &cfg, nil
}
