// Package bootstrap provides dependency initialization for the talking-head API.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/postervoice/talkinghead-api/internal/artifact"
	"github.com/postervoice/talkinghead-api/internal/cache"
	"github.com/postervoice/talkinghead-api/internal/config"
	"github.com/postervoice/talkinghead-api/internal/generator"
	"github.com/postervoice/talkinghead-api/internal/job"
	"github.com/postervoice/talkinghead-api/internal/pipeline"
	"github.com/postervoice/talkinghead-api/internal/provider/lipsync"
	"github.com/postervoice/talkinghead-api/internal/provider/script"
	"github.com/postervoice/talkinghead-api/internal/provider/tts"
	"github.com/postervoice/talkinghead-api/internal/retry"
	"github.com/postervoice/talkinghead-api/internal/stage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Orchestrator *pipeline.Orchestrator
	Registry     *job.Registry
	Cache        *cache.Store
}

// Close releases the background workers owned by the dependencies.
func (d *Dependencies) Close() {
	d.Registry.Close()
	d.Cache.Close()
}

// NewDependencies creates and initializes all dependencies for the application.
// Each stage runs against its live provider when configured, and against the
// deterministic mock generator otherwise.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	registry := job.NewRegistry(job.WithRetention(cfg.JobRetention()))
	store := cache.New(cache.WithTTL(cfg.CacheTTL()))

	adapters, err := initAdapters(cfg, logger)
	if err != nil {
		registry.Close()
		store.Close()
		return nil, err
	}

	recorder, err := initRecorder(cfg, logger)
	if err != nil {
		registry.Close()
		store.Close()
		return nil, err
	}

	orch, err := pipeline.New(registry, store, adapters,
		pipeline.WithRetryPolicy(retry.Policy{
			MaxAttempts: cfg.RetryMaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay(),
		}),
		pipeline.WithStageTimeout(stage.KindScript, cfg.ScriptTimeout()),
		pipeline.WithStageTimeout(stage.KindAudio, cfg.AudioTimeout()),
		pipeline.WithStageTimeout(stage.KindVideo, cfg.VideoTimeout()),
		pipeline.WithStrictProviders(cfg.StrictProviders),
		pipeline.WithRecorder(recorder),
		pipeline.WithLogger(logger),
	)
	if err != nil {
		registry.Close()
		store.Close()
		return nil, fmt.Errorf("create orchestrator: %w", err)
	}

	return &Dependencies{
		Orchestrator: orch,
		Registry:     registry,
		Cache:        store,
	}, nil
}

// initAdapters selects the live or mock adapter for each stage.
func initAdapters(cfg *config.Config, logger *slog.Logger) (map[stage.Kind]stage.Adapter, error) {
	adapters := map[stage.Kind]stage.Adapter{
		stage.KindScript: generator.NewMockScript(),
		stage.KindAudio:  generator.NewMockTTS(),
		stage.KindVideo:  generator.NewMockLipsync(),
	}

	if cfg.ScriptEnabled() {
		var opts []script.ClientOption
		if cfg.ScriptBaseURL != "" {
			opts = append(opts, script.WithBaseURL(cfg.ScriptBaseURL))
		}
		if cfg.ScriptModel != "" {
			opts = append(opts, script.WithModel(cfg.ScriptModel))
		}
		client, err := script.NewClient(cfg.ScriptAPIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("create script client: %w", err)
		}
		adapters[stage.KindScript] = generator.NewLiveScript(client)
	}

	if cfg.TTSEnabled() {
		var opts []tts.ClientOption
		if cfg.TTSVoice != "" {
			opts = append(opts, tts.WithVoice(cfg.TTSVoice))
		}
		client, err := tts.NewClient(cfg.TTSBaseURL, cfg.TTSAPIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("create TTS client: %w", err)
		}
		adapters[stage.KindAudio] = generator.NewLiveTTS(client)
	}

	if cfg.LipsyncEnabled() {
		client, err := lipsync.NewClient(cfg.LipsyncEndpoint, cfg.LipsyncAPIKey)
		if err != nil {
			return nil, fmt.Errorf("create lip-sync client: %w", err)
		}
		adapters[stage.KindVideo] = generator.NewLiveLipsync(client)
	}

	logger.Info("stage adapters configured",
		slog.Bool("script_live", cfg.ScriptEnabled()),
		slog.Bool("tts_live", cfg.TTSEnabled()),
		slog.Bool("lipsync_live", cfg.LipsyncEnabled()),
	)

	return adapters, nil
}

// initRecorder creates the appropriate artifact backend based on configuration.
func initRecorder(cfg *config.Config, logger *slog.Logger) (artifact.Recorder, error) {
	if cfg.S3Enabled() {
		s3Rec, err := artifact.NewS3Recorder(artifact.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 recorder: %w", err)
		}
		logger.Info("S3 artifact store configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Rec, nil
	}

	localRec, err := artifact.NewLocalRecorder(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("create local recorder: %w", err)
	}
	logger.Info("local artifact store configured",
		slog.String("data_dir", localRec.DataDir()),
	)
	return localRec, nil
}
