package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"channel-chat/domain/chat"
	"channel-chat/errors"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestClientConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("CHAT_USER_ID", "alice")
	t.Setenv("RECONNECT_MAX_ATTEMPTS", "3")

	var config ClientConfig
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	req.Equal("alice", config.UserID)
	req.Equal("http://localhost:8080", config.ServerURL)
	req.Equal([]string{"👍", "❤️", "😂", "🎉"}, config.EmojiSet())

	session := config.SessionConfig()
	req.Equal(50, session.HistoryLimit)
	req.Equal(3, session.Backoff.MaxAttempts)
	req.Equal(500*time.Millisecond, session.Backoff.InitialDelay)
	req.Equal(5*time.Second, session.Backoff.MinUptime)
	req.Equal(30*time.Second, session.PendingPatchTTL)
}

func TestServerConfig_Requires_Secret(t *testing.T) {
	req := require.New(t)
	t.Setenv("BADGER_FILEPATH", t.TempDir())
	t.Setenv("AUTH_SECRET", "")
	req.NoError(os.Unsetenv("AUTH_SECRET"))

	var config ServerConfig
	_, err := env.UnmarshalFromEnviron(&config)
	req.Error(err)

	t.Setenv("AUTH_SECRET", "secret")
	_, err = env.UnmarshalFromEnviron(&config)
	req.NoError(err)
	req.Equal(8080, config.Port)
	req.True(config.APIConfig().AllowTokenIssue)
	req.Equal(float64(5), config.APIConfig().RatePerSecond)
}

func TestServerConfig_Censoring(t *testing.T) {
	req := require.New(t)

	// Given no censored word
	config := ServerConfig{CensorMask: "*"}
	req.Empty(config.CensoredWordList())
	req.Equal('*', config.Mask())

	// Given space separated words and a custom mask
	config = ServerConfig{CensoredWords: " spam  scam ", CensorMask: "#!"}
	req.Equal([]string{"spam", "scam"}, config.CensoredWordList())
	req.Equal('#', config.Mask())

	// Given an empty mask the default is kept
	req.Equal('*', ServerConfig{}.Mask())
}

func TestLoadSeed(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "seed.yaml")
	req.NoError(os.WriteFile(path, []byte(`
channels:
  - id: general
    name: general
    title: General
    members: [bob]
    moderators: [alice]
  - id: random
    name: " random "
`), 0o600))

	seed, err := LoadSeed(path)
	req.NoError(err)

	channels := seed.Domain()
	req.Len(channels, 2)
	req.Equal([]chat.UserID{"bob", "alice"}, channels[0].Members)
	req.True(channels[0].IsModerator("alice"))
	req.Equal("random", channels[1].Name)
}

func TestParseSeed_Rejects_Incomplete_Channels(t *testing.T) {
	req := require.New(t)

	_, err := ParseSeed([]byte("channels:\n  - name: general\n"))
	req.ErrorIs(err, errors.ErrInvalidPayload)

	_, err = ParseSeed([]byte("channels: [unclosed"))
	req.ErrorIs(err, errors.ErrInvalidPayload)

	_, err = LoadSeed(filepath.Join(t.TempDir(), "missing.yaml"))
	req.Error(err)
}
