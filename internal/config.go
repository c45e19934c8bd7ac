package internal

import (
	"channel-chat/infrastructure/api"
	"channel-chat/session"
	"channel-chat/stream"
	"strings"
	"time"
)

// ClientConfig drives cmd/client and cmd/channels.
type ClientConfig struct {
	ServerURL   string `env:"CHAT_SERVER_URL,default=http://localhost:8080"`
	StreamURL   string `env:"CHAT_STREAM_URL"`
	Token       string `env:"CHAT_TOKEN"`
	UserID      string `env:"CHAT_USER_ID"`
	DisplayName string `env:"CHAT_DISPLAY_NAME"`
	ChannelID   string `env:"CHAT_CHANNEL_ID"`
	LogLevel    string `env:"LOG_LEVEL,default=INFO"`
	Emojis      string `env:"CHAT_EMOJIS,default=👍 ❤️ 😂 🎉"`

	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT,default=10s"`
	HistoryLimit      int           `env:"HISTORY_LIMIT,default=50"`
	ReconnectInitial  time.Duration `env:"RECONNECT_INITIAL_DELAY,default=500ms"`
	ReconnectMax      time.Duration `env:"RECONNECT_MAX_DELAY,default=10s"`
	ReconnectAttempts int           `env:"RECONNECT_MAX_ATTEMPTS,default=8"`
	ReconnectUptime   time.Duration `env:"RECONNECT_MIN_UPTIME,default=5s"`
	MaxPendingPatches int           `env:"MAX_PENDING_PATCHES,default=256"`
	PendingPatchTTL   time.Duration `env:"PENDING_PATCH_TTL,default=30s"`
	EventBufferSize   int           `env:"EVENT_BUFFER_SIZE,default=128"`
}

// SessionConfig turns the environment into the tuning of a channel session.
func (c ClientConfig) SessionConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.HistoryLimit = c.HistoryLimit
	cfg.Backoff = stream.Backoff{
		InitialDelay: c.ReconnectInitial,
		MaxDelay:     c.ReconnectMax,
		MaxAttempts:  c.ReconnectAttempts,
		MinUptime:    c.ReconnectUptime,
	}
	cfg.MaxPendingPatches = c.MaxPendingPatches
	cfg.PendingPatchTTL = c.PendingPatchTTL
	cfg.EventBufferSize = c.EventBufferSize
	return cfg
}

// EmojiSet is the space separated list of emojis counted under every message.
func (c ClientConfig) EmojiSet() []string {
	return strings.Fields(c.Emojis)
}

// ServerConfig drives cmd/devserver.
type ServerConfig struct {
	Host              string        `env:"HOST,default=localhost"`
	Port              int           `env:"PORT,default=8080"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	SeedFile          string        `env:"SEED_FILE"`
	AuthSecret        string        `env:"AUTH_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	AllowTokenIssue   bool          `env:"ALLOW_TOKEN_ISSUE,default=true"`
	BufferSize        int           `env:"BUFFER_SIZE,default=256"`
	SinkTimeout       time.Duration `env:"SINK_TIMEOUT,default=2s"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	RatePerSecond     float64       `env:"RATE_PER_SECOND,default=5"`
	RateBurst         int           `env:"RATE_BURST,default=10"`
	SendBufferSize    int           `env:"SEND_BUFFER_SIZE,default=64"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT,default=5s"`
	PingInterval      time.Duration `env:"PING_INTERVAL,default=30s"`
	DebugPort         int           `env:"DEBUG_PORT"`
	// CENSORED_WORDS is space separated, message bodies are not filtered when empty
	CensoredWords string `env:"CENSORED_WORDS"`
	CensorMask    string `env:"CENSOR_MASK,default=*"`
}

func (c ServerConfig) CensoredWordList() []string {
	return strings.Fields(c.CensoredWords)
}

// Mask is the first rune of CENSOR_MASK.
func (c ServerConfig) Mask() rune {
	for _, r := range c.CensorMask {
		return r
	}
	return '*'
}

func (c ServerConfig) APIConfig() api.Config {
	return api.Config{
		RatePerSecond:   c.RatePerSecond,
		RateBurst:       c.RateBurst,
		AllowTokenIssue: c.AllowTokenIssue,
		SendBufferSize:  c.SendBufferSize,
		WriteTimeout:    c.WriteTimeout,
		PingInterval:    c.PingInterval,
	}
}
