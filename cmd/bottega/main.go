// Command bottega is the conversation server for the VR museum characters.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/bottega-vr/bottega/internal/audiocache"
	"github.com/bottega-vr/bottega/internal/character"
	"github.com/bottega-vr/bottega/internal/config"
	"github.com/bottega-vr/bottega/internal/health"
	"github.com/bottega-vr/bottega/internal/observe"
	"github.com/bottega-vr/bottega/internal/orchestrator"
	"github.com/bottega-vr/bottega/internal/resilience"
	"github.com/bottega-vr/bottega/internal/server"
	"github.com/bottega-vr/bottega/internal/transcript"
	"github.com/bottega-vr/bottega/pkg/provider/llm"
	"github.com/bottega-vr/bottega/pkg/provider/llm/gemini"
	"github.com/bottega-vr/bottega/pkg/provider/llm/openai"
	"github.com/bottega-vr/bottega/pkg/provider/tts"
	"github.com/bottega-vr/bottega/pkg/provider/tts/elevenlabs"
	"github.com/bottega-vr/bottega/pkg/types"
)

const (
	defaultListenAddr = ":8080"

	// cachePurgeInterval is how often expired audio cache entries are swept.
	cachePurgeInterval = time.Minute
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "bottega: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "bottega: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	levelVar := new(slog.LevelVar)
	levelVar.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(logger)

	slog.Info("bottega starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"characters", len(cfg.Characters),
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "bottega"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	llmProvider, ttsProvider, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Transcript archive (optional) ─────────────────────────────────────────
	var archive transcript.Store = transcript.Nop{}
	checkers := []health.Checker{health.TTSChecker(ttsProvider)}
	if dsn := cfg.Archive.PostgresDSN; dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			slog.Error("failed to connect to archive database", "err", err)
			return 1
		}
		defer pool.Close()

		store := transcript.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			slog.Error("failed to migrate archive schema", "err", err)
			return 1
		}
		archive = store
		checkers = append(checkers, health.DatabaseChecker(pool))
		slog.Info("transcript archive connected")
	} else {
		slog.Info("no archive DSN configured, transcripts are not persisted")
	}

	// ── Characters ────────────────────────────────────────────────────────────
	characters := make(map[string]*server.Character, len(cfg.Characters))
	caches := make([]*audiocache.Cache, 0, len(cfg.Characters))
	for _, cc := range cfg.Characters {
		c, cache, err := buildCharacter(cfg, cc, llmProvider, ttsProvider, archive, logger)
		if err != nil {
			slog.Error("failed to build character", "name", cc.Name, "err", err)
			return 1
		}
		characters[cc.Name] = c
		caches = append(caches, cache)
		slog.Info("character ready", "name", cc.Name, "persona", cc.Persona, "voice_id", cc.Voice.VoiceID)
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = defaultListenAddr
	}
	srvCfg := server.Config{
		Addr:       addr,
		Characters: characters,
		Health:     health.New(checkers...),
		Archive:    archive,
		Logger:     logger,
	}
	if cfg.Server.TLS != nil {
		srvCfg.CertFile = cfg.Server.TLS.CertFile
		srvCfg.KeyFile = cfg.Server.TLS.KeyFile
	}
	srv, err := server.New(srvCfg)
	if err != nil {
		slog.Error("failed to create server", "err", err)
		return 1
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		applyConfigChange(config.Diff(old, new), new, levelVar, characters)
	})
	if err != nil {
		slog.Error("failed to start config watcher", "err", err)
		return 1
	}
	defer watcher.Stop()

	// ── Run group ─────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(cachePurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				for _, cache := range caches {
					if n := cache.PurgeExpired(); n > 0 {
						slog.Debug("purged expired audio cache entries", "count", n)
					}
				}
			}
		}
	})

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires the provider factories that ship with
// Bottega into reg.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterLLM("gemini", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []gemini.Option
		if entry.Model != "" {
			opts = append(opts, gemini.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(entry.BaseURL))
		}
		return gemini.New(entry.APIKey, opts...)
	})

	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, openai.WithOrganization(org))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(entry.BaseURL))
		}
		if transport := optString(entry.Options, "transport"); transport != "" {
			opts = append(opts, elevenlabs.WithTransport(elevenlabs.Transport(transport)))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})
}

// buildProviders instantiates the configured LLM and TTS providers. When a
// fallback backend is configured for either, primary and fallback are wrapped
// in a circuit-breaking fallback group.
func buildProviders(cfg *config.Config, reg *config.Registry) (llm.Provider, tts.Provider, error) {
	llmProvider, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, nil, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", llmProvider.Name())

	if cfg.Providers.LLMFallback.Name != "" {
		secondary, err := reg.CreateLLM(cfg.Providers.LLMFallback)
		if err != nil {
			return nil, nil, fmt.Errorf("create fallback llm provider %q: %w", cfg.Providers.LLMFallback.Name, err)
		}
		group := resilience.NewLLMFallback(llmProvider, resilience.FallbackConfig{})
		group.AddFallback(secondary)
		llmProvider = group
		slog.Info("llm fallback chain configured", "chain", group.Name())
	}

	ttsProvider, err := reg.CreateTTS(cfg.Providers.TTS)
	if err != nil {
		return nil, nil, fmt.Errorf("create tts provider %q: %w", cfg.Providers.TTS.Name, err)
	}
	slog.Info("provider created", "kind", "tts", "name", ttsProvider.Name())

	if cfg.Providers.TTSFallback.Name != "" {
		secondary, err := reg.CreateTTS(cfg.Providers.TTSFallback)
		if err != nil {
			return nil, nil, fmt.Errorf("create fallback tts provider %q: %w", cfg.Providers.TTSFallback.Name, err)
		}
		group := resilience.NewTTSFallback(ttsProvider, resilience.FallbackConfig{})
		group.AddFallback(secondary)
		ttsProvider = group
		slog.Info("tts fallback chain configured", "chain", group.Name())
	}

	return llmProvider, ttsProvider, nil
}

// ── Character wiring ──────────────────────────────────────────────────────────

// buildCharacter assembles one character's prompt context, history, cache,
// and orchestrator from its config entry.
func buildCharacter(cfg *config.Config, cc config.CharacterConfig, llmP llm.Provider, ttsP tts.Provider, archive transcript.Store, logger *slog.Logger) (*server.Character, *audiocache.Cache, error) {
	persona, err := personaFor(cc.Persona)
	if err != nil {
		return nil, nil, err
	}

	cctx := character.NewContext(persona)
	cctx.SetState(workshopState(cc.State))

	var cacheOpts []audiocache.Option
	if cfg.Cache.MaxEntries > 0 {
		cacheOpts = append(cacheOpts, audiocache.WithMaxEntries(cfg.Cache.MaxEntries))
	}
	if cfg.Cache.TTL.Std() > 0 {
		cacheOpts = append(cacheOpts, audiocache.WithTTL(cfg.Cache.TTL.Std()))
	}
	cache := audiocache.New(cacheOpts...)

	orc, err := orchestrator.New(orchestrator.Config{
		Character: cc.Name,
		LLM:       llmP,
		TTS:       ttsP,
		Voice: types.VoiceProfile{
			ID:              cc.Voice.VoiceID,
			Provider:        ttsP.Name(),
			Stability:       cc.Voice.Stability,
			SimilarityBoost: cc.Voice.SimilarityBoost,
			Style:           cc.Voice.Style,
			SpeakerBoost:    cc.Voice.SpeakerBoost,
		},
		Context:       cctx,
		History:       character.NewHistory(persona.Name, cc.HistoryDepth),
		Cache:         cache,
		Archive:       archive,
		Logger:        logger,
		SpatialAnchor: cc.SpatialAnchor,
		CallTimeout:   cfg.Turn.Timeout.Std(),
		Temperature:   cc.Temperature,
		MaxTokens:     cc.MaxTokens,
	})
	if err != nil {
		return nil, nil, err
	}
	return &server.Character{Orchestrator: orc, Context: cctx}, cache, nil
}

// personaFor maps a config persona name to its built-in definition.
func personaFor(name string) (*character.Persona, error) {
	switch strings.ToLower(name) {
	case "", "davinci":
		return character.DaVinci(), nil
	default:
		return nil, fmt.Errorf("unknown persona %q", name)
	}
}

// workshopState converts a config state block into the prompt-layer type.
func workshopState(sc config.StateConfig) character.WorkshopState {
	return character.WorkshopState{
		IsPainting:       sc.Painting,
		IsCalculating:    sc.Calculating,
		IsInventing:      sc.Inventing,
		FocusedProject:   sc.FocusedProject,
		FrustrationLevel: sc.Frustration,
	}
}

// ── Hot reload ────────────────────────────────────────────────────────────────

// applyConfigChange applies the reloadable parts of a config change: the log
// level and per-character scene state. Provider and server changes require a
// restart.
func applyConfigChange(diff config.ConfigDiff, newCfg *config.Config, levelVar *slog.LevelVar, characters map[string]*server.Character) {
	if diff.LogLevelChanged {
		levelVar.Set(slogLevel(diff.NewLogLevel))
		slog.Info("log level changed", "level", diff.NewLogLevel)
	}
	for _, ch := range diff.CharacterChanges {
		if ch.Added || ch.Removed {
			slog.Warn("character list changed, restart required to apply", "name", ch.Name)
			continue
		}
		if !ch.StateChanged {
			continue
		}
		c, ok := characters[ch.Name]
		if !ok {
			continue
		}
		for _, cc := range newCfg.Characters {
			if cc.Name == ch.Name {
				c.Context.SetState(workshopState(cc.State))
				slog.Info("character state updated", "name", ch.Name)
				break
			}
		}
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
