package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"hnlingo/internal/config"
	"hnlingo/internal/fetch"
	"hnlingo/internal/hn"
	"hnlingo/internal/ingest"
	"hnlingo/internal/logging"
	"hnlingo/internal/translate"
)

const openAIBaseURL = "https://api.openai.com/v1"

// loadConfig reads the config named by --config or $HNLINGO_CONFIG. A missing
// file at the default path yields the defaults.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, error) {
	path, explicit := opts.configPath, opts.configPath != ""
	if !explicit {
		if env := os.Getenv("HNLINGO_CONFIG"); env != "" {
			path, explicit = env, true
		} else {
			path = config.DefaultPath
		}
	}
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		cfg = config.Default()
		cfg.ResolveEnv()
		err = nil
	}
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if opts.logLevel == "" {
		logging.Setup(cfg.Log.Level, cmd.ErrOrStderr())
	}
	return cfg, nil
}

func newHNClient(cfg config.Config) *hn.Client {
	f := fetch.New(fetch.Config{
		Timeout: cfg.HN.Timeout.Duration,
		Retries: cfg.HN.Retries,
		Delay:   cfg.HN.RetryDelay.Duration,
	}, &http.Client{})
	return hn.NewClient(cfg.HN.BaseURL, f)
}

func newTranslator(cfg config.TranslationConfig) translate.Translator {
	if cfg.Provider == "none" {
		return translate.Noop{}
	}
	if cfg.APIKey == "" {
		logging.Warn("translate_disabled", map[string]any{"reason": "no api key", "provider": cfg.Provider})
		return translate.Noop{}
	}
	base := cfg.BaseURL
	if base == "" && cfg.Provider == "openai" {
		base = openAIBaseURL
	}
	return translate.NewOpenAIClient(translate.OpenAIConfig{
		BaseURL:     base,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout.Duration,
		RPS:         cfg.RPS,
		Burst:       cfg.Burst,
		Referer:     cfg.Referer,
		Title:       cfg.Title,
	}, nil)
}

func newPipeline(cfg config.Config, tr translate.Translator, st ingest.Store) *ingest.Pipeline {
	client := newHNClient(cfg)
	walker := hn.NewWalker(client, hn.WalkerConfig{
		WaveSize:  cfg.Traversal.WaveSize,
		WaveDelay: cfg.Traversal.WaveDelay.Duration,
	})
	return ingest.NewPipeline(ingest.Deps{
		Source:     client,
		Walker:     walker,
		Translator: translate.NewBatcher(tr, cfg.Translation.MaxChars),
		Store:      st,
	}, ingest.Options{
		TargetLanguage: cfg.Translation.TargetLanguage,
		CommentDepth:   cfg.Traversal.MaxDepth,
	})
}
