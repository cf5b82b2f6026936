package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"gemini", "openai"},
	"tts": {"elevenlabs"},
}

// ValidPersonas lists the built-in persona keys a character may select.
var ValidPersonas = []string{"davinci"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("llm", cfg.Providers.LLMFallback.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("tts", cfg.Providers.TTSFallback.Name)

	if len(cfg.Characters) > 0 {
		if cfg.Providers.LLM.Name == "" {
			errs = append(errs, errors.New("providers.llm is required when characters are configured"))
		}
		if cfg.Providers.TTS.Name == "" {
			errs = append(errs, errors.New("providers.tts is required when characters are configured"))
		}
	}

	// Archive availability
	if cfg.Archive.PostgresDSN == "" && len(cfg.Characters) > 0 {
		slog.Warn("archive.postgres_dsn is empty; conversation turns will not be archived")
	}

	// Cache limits
	if cfg.Cache.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("cache.max_entries %d must not be negative", cfg.Cache.MaxEntries))
	}
	if cfg.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl %v must not be negative", cfg.Cache.TTL))
	}
	if cfg.Turn.Timeout < 0 {
		errs = append(errs, fmt.Errorf("turn.timeout %v must not be negative", cfg.Turn.Timeout))
	}

	// Character duplicate name detection
	namesSeen := make(map[string]int, len(cfg.Characters))

	for i, ch := range cfg.Characters {
		prefix := fmt.Sprintf("characters[%d]", i)
		if ch.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := namesSeen[ch.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of characters[%d]", prefix, ch.Name, prev))
			}
			namesSeen[ch.Name] = i
		}
		if ch.Persona != "" && !slices.Contains(ValidPersonas, ch.Persona) {
			errs = append(errs, fmt.Errorf("%s.persona %q is unknown; valid values: %v", prefix, ch.Persona, ValidPersonas))
		}
		if ch.Voice.VoiceID == "" {
			errs = append(errs, fmt.Errorf("%s.voice.voice_id is required", prefix))
		}
		for _, v := range []struct {
			name  string
			value float64
		}{
			{"stability", ch.Voice.Stability},
			{"similarity_boost", ch.Voice.SimilarityBoost},
			{"style", ch.Voice.Style},
		} {
			if v.value < 0 || v.value > 1 {
				errs = append(errs, fmt.Errorf("%s.voice.%s %.2f is out of range [0, 1]", prefix, v.name, v.value))
			}
		}
		if ch.HistoryDepth < 0 {
			errs = append(errs, fmt.Errorf("%s.history_depth %d must not be negative", prefix, ch.HistoryDepth))
		}
		if ch.Temperature < 0 || ch.Temperature > 2 {
			errs = append(errs, fmt.Errorf("%s.temperature %.2f is out of range [0, 2]", prefix, ch.Temperature))
		}
		if ch.State.Frustration < 0 || ch.State.Frustration > 1 {
			errs = append(errs, fmt.Errorf("%s.state.frustration %.2f is out of range [0, 1]", prefix, ch.State.Frustration))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
