// Package config loads process configuration from the environment (with an
// optional .env file), mirroring the Python ancestor's Settings class
// (original_source/services/backend/config/config.py) with viper/godotenv
// in place of python-dotenv + os.getenv.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings holds every tunable read at process start. Fields mirror the
// Python ancestor's Settings one for one, renamed to Go conventions.
type Settings struct {
	BaseDir          string
	LogDir           string
	ServerInstanceID string

	HTTPAddr string

	LLMProvider string
	LLMModel    string

	GroqAPIKey      string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GoogleAPIKey    string
	LokutorAPIKey   string

	TTSBackend string
	EdgeHost   string

	PiperUseCUDA           bool
	PiperTargetSampleRate  int
	PiperModelPathZH       string
	PiperConfigPathZH      string
	PiperModelPathEN       string
	PiperConfigPathEN      string
	PiperBinary            string

	TTSAutoLang        bool
	TTSLangDecideChars int
}

// Load reads .env (if present) into the process environment, then builds
// Settings from viper-bound environment variables. envPath == "" uses
// godotenv's default lookup (./.env relative to the working directory).
func Load(envPath string) (*Settings, error) {
	if envPath == "" {
		envPath = ".env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("config: failed to load %s: %w", envPath, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	bindDefaults(v)

	baseDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: failed to resolve working directory: %w", err)
	}

	logDir := v.GetString("LOG_DIR")
	if logDir == "" {
		logDir = filepath.Join(baseDir, "logs")
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("config: failed to create log dir %s: %w", logDir, err)
	}

	instanceID := v.GetString("SERVER_INSTANCE_ID")
	if instanceID == "" {
		instanceID = uuid.New().String()
	}

	mpZH := firstNonEmpty(v.GetString("PIPER_MODEL_PATH_ZH"), v.GetString("PIPER_MODEL_PATH"), "models/voices/zh_CN-huayan-x_low.onnx")
	cpZH := firstNonEmpty(v.GetString("PIPER_CONFIG_PATH_ZH"), v.GetString("PIPER_CONFIG_PATH"))
	mpEN := firstNonEmpty(v.GetString("PIPER_MODEL_PATH_EN"), mpZH)
	cpEN := firstNonEmpty(v.GetString("PIPER_CONFIG_PATH_EN"), cpZH)

	s := &Settings{
		BaseDir:          baseDir,
		LogDir:           logDir,
		ServerInstanceID: instanceID,

		HTTPAddr: v.GetString("HTTP_ADDR"),

		LLMProvider: strings.ToLower(firstNonEmpty(v.GetString("LLM_PROVIDER"), "groq")),
		LLMModel:    v.GetString("LLM_MODEL"),

		GroqAPIKey:      v.GetString("GROQ_API_KEY"),
		OpenAIAPIKey:    v.GetString("OPENAI_API_KEY"),
		AnthropicAPIKey: v.GetString("ANTHROPIC_API_KEY"),
		GoogleAPIKey:    v.GetString("GOOGLE_API_KEY"),
		LokutorAPIKey:   v.GetString("LOKUTOR_API_KEY"),

		TTSBackend: strings.ToLower(firstNonEmpty(v.GetString("TTS_BACKEND"), "edge")),
		EdgeHost:   firstNonEmpty(v.GetString("EDGE_TTS_HOST"), "api.lokutor.ai"),

		PiperUseCUDA:          v.GetBool("PIPER_USE_CUDA"),
		PiperTargetSampleRate: v.GetInt("PIPER_TARGET_SAMPLE_RATE"),
		PiperModelPathZH:      resolvePath(mpZH, baseDir),
		PiperConfigPathZH:     resolvePath(cpZH, baseDir),
		PiperModelPathEN:      resolvePath(mpEN, baseDir),
		PiperConfigPathEN:     resolvePath(cpEN, baseDir),
		PiperBinary:           firstNonEmpty(v.GetString("PIPER_BINARY"), "piper"),

		TTSAutoLang:        v.GetBool("TTS_AUTO_LANG"),
		TTSLangDecideChars: intOrDefault(v.GetInt("TTS_LANG_DECIDE_CHARS"), 120),
	}

	return s, nil
}

func bindDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("TTS_AUTO_LANG", true)
	v.SetDefault("TTS_LANG_DECIDE_CHARS", 120)
	v.SetDefault("TTS_BACKEND", "edge")
	v.SetDefault("LLM_PROVIDER", "groq")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func intOrDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func resolvePath(raw, base string) string {
	if raw == "" {
		return ""
	}
	if filepath.IsAbs(raw) {
		return raw
	}
	return filepath.Join(base, raw)
}
