// Command echotwin runs the voice-clone conversation gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/echolabs-ai/echotwin/internal/dotenv"
	"github.com/echolabs-ai/echotwin/pkg/core/chat"
	"github.com/echolabs-ai/echotwin/pkg/core/voice/stt"
	"github.com/echolabs-ai/echotwin/pkg/core/voice/tts"
	"github.com/echolabs-ai/echotwin/pkg/gateway/config"
	gatewayserver "github.com/echolabs-ai/echotwin/pkg/gateway/server"
	"github.com/echolabs-ai/echotwin/pkg/pipeline"
	"github.com/echolabs-ai/echotwin/pkg/store"
	"github.com/echolabs-ai/echotwin/pkg/voices"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(context.Background(), logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	if err := dotenv.LoadFile(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	deps, cleanup, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	gw := gatewayserver.New(cfg, deps, logger)
	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}

	logger.Info("starting gateway",
		"addr", cfg.Addr,
		"record_backend", cfg.RecordBackend,
		"blob_backend", cfg.BlobBackend,
		"chat_backend", cfg.ChatBackend)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-listenErrCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("shutting down", "reason", "context cancelled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-listenErrCh
}

// buildDeps resolves the configured storage and provider backends into the
// injected dependencies the pipeline runs on.
func buildDeps(ctx context.Context, cfg config.Config, logger *slog.Logger) (gatewayserver.Deps, func(), error) {
	cleanup := func() {}

	var (
		conversations store.ConversationStore
		voiceStore    store.VoiceStore
	)
	switch cfg.RecordBackend {
	case config.RecordBackendPostgres:
		pg, err := store.NewPGStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return gatewayserver.Deps{}, cleanup, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return gatewayserver.Deps{}, cleanup, err
		}
		cleanup = pg.Close
		conversations = pg.Conversations()
		voiceStore = pg.Voices()
	default:
		fs, err := store.NewFileStore(cfg.DataDir)
		if err != nil {
			return gatewayserver.Deps{}, cleanup, err
		}
		conversations = fs.Conversations()
		voiceStore = fs.Voices()
	}

	var blobs store.BlobStore
	switch cfg.BlobBackend {
	case config.BlobBackendNATS:
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			return gatewayserver.Deps{}, cleanup, fmt.Errorf("connect nats: %w", err)
		}
		js, err := nc.JetStream()
		if err != nil {
			nc.Close()
			return gatewayserver.Deps{}, cleanup, fmt.Errorf("jetstream: %w", err)
		}
		blobs, err = store.NewNATSBlobStore(js, cfg.NATSBucket)
		if err != nil {
			nc.Close()
			return gatewayserver.Deps{}, cleanup, err
		}
		prev := cleanup
		cleanup = func() { nc.Close(); prev() }
	default:
		var err error
		blobs, err = store.NewFSBlobStore(cfg.DataDir)
		if err != nil {
			return gatewayserver.Deps{}, cleanup, err
		}
	}

	sttProvider := stt.NewCartesia(cfg.CartesiaAPIKey)

	var chatProvider chat.Provider
	switch cfg.ChatBackend {
	case config.ChatBackendGemini:
		gemini, err := chat.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return gatewayserver.Deps{}, cleanup, err
		}
		chatProvider = gemini
	default:
		chatProvider = chat.NewOpenAI(cfg.OpenAIAPIKey,
			chat.WithOpenAIBaseURL(cfg.OpenAIBaseURL),
			chat.WithOpenAIModel(cfg.OpenAIModel))
	}

	var ttsProvider tts.Provider
	switch cfg.TTSBackend {
	case config.TTSBackendElevenLabs:
		ttsProvider = tts.NewElevenLabs(cfg.ElevenLabsKey)
	default:
		ttsProvider = tts.NewCartesia(cfg.CartesiaAPIKey)
	}

	registry := voices.NewRegistry(voiceStore, logger)
	executor := pipeline.NewExecutor(
		conversations,
		blobs,
		registry,
		sttProvider,
		chatProvider,
		ttsProvider,
		pipeline.Timeouts{
			Transcribe: cfg.TranscribeTimeout,
			Chat:       cfg.ChatTimeout,
			Synthesize: cfg.SynthesizeTimeout,
		},
		logger,
	)

	return gatewayserver.Deps{
		Service:       pipeline.NewService(executor),
		Conversations: conversations,
		Blobs:         blobs,
		Registry:      registry,
	}, cleanup, nil
}
