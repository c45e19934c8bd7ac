package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"
	"time"

	"channel-chat/auth"
	"channel-chat/domain/chat"
	"channel-chat/domain/event"
	"channel-chat/infrastructure/api"
	"channel-chat/infrastructure/rest"
	"channel-chat/infrastructure/storage"
	"channel-chat/infrastructure/websocket"
	"channel-chat/infrastructure/wire"
	"channel-chat/observability"
	"channel-chat/runtime"
	"channel-chat/runtime/workers"
	"channel-chat/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

type BaseChatSuite struct {
	suite.Suite
	Config Config

	log    *slog.Logger
	url    string
	issuer auth.TokenIssuer
	stop   func()
}

// SetupSuite loads the environment configuration and starts a devserver when none is targeted.
func (s *BaseChatSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	s.log = logs.GetLoggerFromLevel(slog.LevelWarn)
	s.issuer = auth.NewTokenIssuer(s.Config.AuthSecret, time.Hour)

	if s.Config.ServerURL != "" {
		s.url = strings.TrimSuffix(s.Config.ServerURL, "/")
		s.stop = func() {}
		return
	}
	s.url, s.stop = s.startServer()
}

func (s *BaseChatSuite) TearDownSuite() {
	if s.stop != nil {
		s.stop()
	}
}

func (s *BaseChatSuite) startServer() (string, func()) {
	gin.SetMode(gin.TestMode)
	db, err := badger.Open(badger.DefaultOptions(s.T().TempDir()).WithLoggingLevel(badger.ERROR))
	s.Require().NoError(err)

	metrics := observability.NewMetrics()
	orchestrator := runtime.NewOrchestrator(s.log, workers.NewSupervisor(s.log, 0), runtime.NewRegistry(),
		metrics, 256, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	go orchestrator.Start(ctx)

	service := services.NewChatService(s.log,
		storage.NewChannelRepository(db, s.log),
		storage.NewMessageRepository(db, s.log),
		orchestrator.Publisher())
	server := httptest.NewServer(api.NewServer(s.log, service, s.issuer, orchestrator, metrics,
		api.Config{RatePerSecond: 100, RateBurst: 100}).Routes())

	return server.URL, func() {
		server.Close()
		cancel()
		_ = db.Close()
	}
}

// Step prints a colorized header for a scenario step in logs.
func (s *BaseChatSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Client returns a REST client acting as user.
func (s *BaseChatSuite) Client(user chat.UserID) *rest.Client {
	return rest.NewClient(s.log, s.url, s.token(user), 5*time.Second)
}

// Dialer returns a stream dialer acting as user.
func (s *BaseChatSuite) Dialer(user chat.UserID) *websocket.Dialer {
	url := "ws" + strings.TrimPrefix(s.url, "http") + "/api/stream"
	return websocket.NewDialer(s.log, url, s.token(user))
}

func (s *BaseChatSuite) Identity(user chat.UserID) chat.Identity {
	return chat.Identity{ID: user, DisplayName: strings.ToUpper(string(user[:1])) + string(user[1:])}
}

func (s *BaseChatSuite) token(user chat.UserID) string {
	token, err := s.issuer.GenerateToken(s.Identity(user))
	s.Require().NoError(err)
	return token
}

// Telemetry logs and counts session telemetry, dumped as JSON when E2E_DEBUG_JSON is enabled.
func (s *BaseChatSuite) Telemetry(counter *event.Counter) event.Handler {
	return event.Chain{event.NewTelemetryHandler(s.log, counter), telemetryDump{s: s}}
}

type telemetryDump struct {
	s *BaseChatSuite
}

func (d telemetryDump) Handle(e event.Event) {
	if !d.s.Config.DebugJSON {
		return
	}
	raw, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		d.s.T().Logf("telemetry %s: %v", e.Type, err)
		return
	}
	d.s.T().Logf("telemetry %s\n%s", e.Type, raw)
}

// WithStream opens a raw stream connection joined to a channel room.
func (s *BaseChatSuite) WithStream(name string, user chat.UserID, channel chat.ChannelID,
	fn func(ctx context.Context, events <-chan event.DomainEvent)) {
	s.Step(name)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := s.Dialer(user).Dial(ctx)
	s.Require().NoError(err)
	defer conn.Close()
	s.Require().NoError(conn.JoinRoom(ctx, channel))

	fn(ctx, conn.Events())
}

// Dump logs a stream event as its wire frame when E2E_DEBUG_JSON is enabled.
func (s *BaseChatSuite) Dump(evt event.DomainEvent) {
	if !s.Config.DebugJSON {
		return
	}
	frame, err := wire.FromEvent(evt)
	if err != nil {
		s.T().Logf("event %T: %v", evt, err)
		return
	}
	raw, err := json.MarshalIndent(frame, "", "  ")
	if err != nil {
		s.T().Logf("event %T: %v", evt, err)
		return
	}
	s.T().Logf("EVENT:\n%s", raw)
}
