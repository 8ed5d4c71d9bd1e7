package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/google/uuid"

	"github.com/lokutor-ai/voiceturn/internal/config"
	"github.com/lokutor-ai/voiceturn/internal/logging"
	appmetrics "github.com/lokutor-ai/voiceturn/internal/metrics"
	"github.com/lokutor-ai/voiceturn/internal/providers/llm"
	"github.com/lokutor-ai/voiceturn/internal/providers/tts"
	"github.com/lokutor-ai/voiceturn/internal/transport"
	"github.com/lokutor-ai/voiceturn/internal/turn"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, cleanup, err := logging.New(logging.Options{Dir: cfg.LogDir, Filename: "server.log"})
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer cleanup()

	reg := prometheus.NewRegistry()
	met := appmetrics.New("voiceturn", reg)

	generator, err := buildGenerator(cfg)
	if err != nil {
		logger.Error("failed to build text generator", "error", err)
		os.Exit(1)
	}

	voices := buildVoices(cfg)

	recorder := turn.NewMetricsRecorder(cfg.LogDir, met, logger)
	defer recorder.Close()

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	router.Get("/ws", wsHandler(cfg, logger, recorder, generator, voices, met))

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening", "addr", cfg.HTTPAddr, "instance_id", cfg.ServerInstanceID)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen and serve failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// wsHandler accepts one websocket connection per voice session and drives
// it to completion, mirroring the teacher binary's one-session-per-process
// shape but multiplexed over many concurrent connections instead of one
// microphone loop.
func wsHandler(cfg *config.Settings, logger turn.Logger, recorder *turn.MetricsRecorder, generator turn.TextGenerator, voices turn.Voices, met *appmetrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			logger.Warn("failed to accept websocket", "error", err)
			return
		}

		conn := transport.NewConn(ws)
		writer := turn.NewFrameWriter(conn)

		sessionID := uuid.New().String()
		session := turn.NewSession(sessionID, recorder, writer, logger)
		orch := turn.NewOrchestrator(generator, voices, writer, logger, cfg.TTSLangDecideChars)
		handler := turn.NewConnection(session, conn, writer, orch, logger)

		met.ActiveSessions.Inc()
		defer met.ActiveSessions.Dec()

		logger.Info("session started", "session_id", sessionID)
		if err := handler.Serve(r.Context()); err != nil {
			logger.Warn("session ended with error", "session_id", sessionID, "error", err)
		} else {
			logger.Info("session ended", "session_id", sessionID)
		}
		conn.Close()
	}
}

// buildGenerator selects the TextGenerator backend named by
// cfg.LLMProvider, matching the teacher binary's STT/LLM selection
// switches one for one.
func buildGenerator(cfg *config.Settings) (turn.TextGenerator, error) {
	switch cfg.LLMProvider {
	case "openai":
		model := cfg.LLMModel
		if model == "" {
			model = "gpt-4o"
		}
		return llm.NewOpenAILLM(cfg.OpenAIAPIKey, model), nil
	case "anthropic":
		model := cfg.LLMModel
		if model == "" {
			model = "claude-3-5-sonnet-20241022"
		}
		return llm.NewAnthropicLLM(cfg.AnthropicAPIKey, model), nil
	case "google":
		model := cfg.LLMModel
		if model == "" {
			model = "gemini-1.5-flash"
		}
		return llm.NewGoogleLLM(context.Background(), cfg.GoogleAPIKey, model)
	case "groq":
		fallthrough
	default:
		return llm.NewGroqLLM(cfg.GroqAPIKey, cfg.LLMModel), nil
	}
}

// buildVoices selects the SpeechSynthesizer backend named by
// cfg.TTSBackend for both languages. Edge uses a single EdgeTTS instance,
// and so a single persistent connection, for both language slots; Piper
// spawns one process per segment, keyed by the configured per-language
// model path.
func buildVoices(cfg *config.Settings) turn.Voices {
	switch cfg.TTSBackend {
	case "piper":
		return turn.Voices{
			Chinese: tts.NewPiperTTS(tts.PiperOptions{
				Binary:     cfg.PiperBinary,
				ModelPath:  cfg.PiperModelPathZH,
				ConfigPath: cfg.PiperConfigPathZH,
				UseCUDA:    cfg.PiperUseCUDA,
				SampleRate: cfg.PiperTargetSampleRate,
			}),
			English: tts.NewPiperTTS(tts.PiperOptions{
				Binary:     cfg.PiperBinary,
				ModelPath:  cfg.PiperModelPathEN,
				ConfigPath: cfg.PiperConfigPathEN,
				UseCUDA:    cfg.PiperUseCUDA,
				SampleRate: cfg.PiperTargetSampleRate,
			}),
		}
	case "edge":
		fallthrough
	default:
		edge := tts.NewEdgeTTS(cfg.LokutorAPIKey, cfg.EdgeHost)
		return turn.Voices{Chinese: edge, English: edge}
	}
}
