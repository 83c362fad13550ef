// Package config provides the configuration schema and loader for the
// VoiceScreen interview server.
package config

import "time"

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically loaded from
// a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Questions QuestionsConfig `yaml:"questions"`
	Interview InterviewConfig `yaml:"interview"`
	VAD       VADConfig       `yaml:"vad"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// SessionIdleTimeout is how long an inactive session survives before
	// the store evicts it.
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`
}

// UpstreamConfig selects and configures the conversational engine that
// speaks questions and transcribes answers.
type UpstreamConfig struct {
	// APIKeyEnv names the environment variable holding the engine's API
	// key. The key itself never appears in config files.
	APIKeyEnv string `yaml:"api_key_env"`

	// Model overrides the engine's default model name.
	Model string `yaml:"model"`

	// Voice selects the synthesised interviewer voice.
	Voice string `yaml:"voice"`

	// BaseURL overrides the engine endpoint, mainly for tests.
	BaseURL string `yaml:"base_url"`
}

// ScoringConfig configures the answer-evaluation backend.
type ScoringConfig struct {
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`

	// Model overrides the default chat model.
	Model string `yaml:"model"`

	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds each scoring request.
	Timeout time.Duration `yaml:"timeout"`
}

// QuestionsConfig configures question-set generation. When APIKeyEnv is
// empty the built-in static bank is used.
type QuestionsConfig struct {
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`

	// Model overrides the default chat model.
	Model string `yaml:"model"`

	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string `yaml:"base_url"`

	// Count is the number of questions per interview.
	Count int `yaml:"count"`
}

// InterviewConfig holds per-session turn-taking knobs.
type InterviewConfig struct {
	// MinAnswer is the minimum candidate audio duration for an answer to
	// count; shorter answers get a retry.
	MinAnswer time.Duration `yaml:"min_answer"`

	// MinChunks is the minimum number of candidate audio messages for an
	// answer to count.
	MinChunks int `yaml:"min_chunks"`

	// GraceDelay is the pause after an accepted answer before the next
	// question.
	GraceDelay time.Duration `yaml:"grace_delay"`

	// SafetyTimeout bounds a whole session.
	SafetyTimeout time.Duration `yaml:"safety_timeout"`
}

// VADConfig exposes the voice-activity detector's tuning knobs. These were
// tuned empirically and vary with microphone and room acoustics; zero
// values take the detector's defaults.
type VADConfig struct {
	// BaseThreshold is the absolute amplitude floor for a speech frame.
	BaseThreshold float64 `yaml:"base_threshold"`

	// NoiseFloorMultiplier scales the measured noise floor into the
	// adaptive speech threshold.
	NoiseFloorMultiplier float64 `yaml:"noise_floor_multiplier"`

	// SpeechConfirm is the accumulated speech needed to confirm a turn
	// has speech.
	SpeechConfirm time.Duration `yaml:"speech_confirm"`

	// PreRollFrames is the depth of the pre-speech frame buffer.
	PreRollFrames int `yaml:"pre_roll_frames"`

	// SilenceTimeout is the silence needed to end a confirmed turn.
	SilenceTimeout time.Duration `yaml:"silence_timeout"`

	// MinTurn is the minimum duration of any turn.
	MinTurn time.Duration `yaml:"min_turn"`
}
