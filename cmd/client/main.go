package main

import (
	"bufio"
	"channel-chat/directory"
	"channel-chat/domain/chat"
	"channel-chat/domain/event"
	"channel-chat/errors"
	"channel-chat/infrastructure/rest"
	"channel-chat/infrastructure/websocket"
	"channel-chat/internal"
	"channel-chat/session"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const closeTimeout = 3 * time.Second

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run opens one channel session and drives it from stdin until /quit, EOF or Ctrl+C.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	_ = godotenv.Load()
	var config internal.ClientConfig
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if config.UserID == "" {
		return exitConfig, fmt.Errorf("config error: CHAT_USER_ID is required")
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	identity := chat.Identity{ID: chat.UserID(config.UserID), DisplayName: config.DisplayName}
	if identity.DisplayName == "" {
		identity.DisplayName = config.UserID
	}

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Authenticate, a development server hands out tokens on demand.
	client := rest.NewClient(log, config.ServerURL, config.Token, config.RequestTimeout)
	token := config.Token
	if token == "" {
		issued, err := client.IssueToken(ctx, identity)
		if err != nil {
			return exitRuntime, fmt.Errorf("token request failed: %w", err)
		}
		token = issued
		client = client.WithToken(token)
	}

	channelID, err := pickChannel(ctx, directory.NewDirectory(log, client), config.ChannelID, os.Args[1:])
	if err != nil {
		return exitConfig, err
	}

	// 4. Open the channel session.
	telemetry := event.NewTelemetryHandler(log, event.NewCounter())
	dialer := websocket.NewDialer(log, streamURL(config), token)
	chatSession := session.NewChannelSession(log, client, dialer, channelID, identity, config.SessionConfig(), telemetry)
	chatSession.Open(ctx)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		_ = chatSession.Close(closeCtx)
	}()

	if err := chatSession.WaitActive(ctx); err != nil {
		if ctx.Err() != nil {
			return exitOK, nil
		}
		return exitRuntime, fmt.Errorf("session failed to open: %w", err)
	}
	waitChannel(ctx, chatSession, config.RequestTimeout)
	printHeader(os.Stdout, chatSession)

	// 5. Render updates and execute commands.
	view := newRenderer(os.Stdout, identity.ID, config.EmojiSet())
	view.render(chatSession.Snapshot(), chatSession.Reactions)
	lines := readLines(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case _, ok := <-chatSession.Updates():
			if !ok {
				return exitOK, nil
			}
			view.render(chatSession.Snapshot(), chatSession.Reactions)
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			if quit := execute(ctx, os.Stdout, chatSession, line); quit {
				return exitOK, nil
			}
		}
	}
}

// pickChannel uses the configured channel id, else looks the first argument up by name.
func pickChannel(ctx context.Context, dir directory.Directory, configured string, args []string) (chat.ChannelID, error) {
	if configured != "" {
		return chat.ChannelID(configured), nil
	}
	channels, err := dir.List(ctx)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(channels))
	for _, c := range channels {
		if len(args) > 0 && (c.Name == args[0] || string(c.ID) == args[0]) {
			return c.ID, nil
		}
		names = append(names, c.Name)
	}
	return "", fmt.Errorf("%w: pick one of [%s] as argument or set CHAT_CHANNEL_ID",
		errors.ErrChannelNotFound, strings.Join(names, ", "))
}

func streamURL(config internal.ClientConfig) string {
	if config.StreamURL != "" {
		return config.StreamURL
	}
	base := strings.TrimRight(config.ServerURL, "/")
	return "ws" + strings.TrimPrefix(base, "http") + "/api/stream"
}

type commandTarget interface {
	Post(ctx context.Context, text string) (chat.Message, error)
	Delete(ctx context.Context, id chat.MessageID) error
	React(ctx context.Context, id chat.MessageID, emoji string) error
	Join(ctx context.Context) (chat.Channel, error)
	Leave(ctx context.Context) (chat.Channel, error)
	Snapshot() []chat.Message
}

// execute runs one input line, it reports true when the user asked to quit.
func execute(ctx context.Context, out io.Writer, target commandTarget, line string) bool {
	cmd, err := parseCommand(line)
	if err != nil {
		fmt.Fprintln(out, color.Red.Sprint(err))
		return false
	}

	switch cmd.kind {
	case cmdPost:
		_, err = target.Post(ctx, cmd.text)
	case cmdReact:
		var id chat.MessageID
		if id, err = resolve(target.Snapshot(), cmd.ref); err == nil {
			err = target.React(ctx, id, cmd.emoji)
		}
	case cmdDelete:
		var id chat.MessageID
		if id, err = resolve(target.Snapshot(), cmd.ref); err == nil {
			err = target.Delete(ctx, id)
		}
	case cmdJoin:
		if _, err = target.Join(ctx); err == nil {
			fmt.Fprintln(out, color.Green.Sprint("Joined the channel"))
		}
	case cmdLeave:
		if _, err = target.Leave(ctx); err == nil {
			fmt.Fprintln(out, color.Yellow.Sprint("Left the channel"))
		}
	case cmdHelp:
		fmt.Fprintln(out, usage)
	case cmdQuit:
		return true
	}
	if err != nil {
		fmt.Fprintln(out, color.Red.Sprint(err))
	}
	return false
}

// waitChannel gives the membership refresh a chance to land before the header is drawn.
func waitChannel(ctx context.Context, s *session.ChannelSession, timeout time.Duration) {
	deadline := time.After(timeout)
	for {
		if _, known := s.Channel(); known {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case _, ok := <-s.Updates():
			if !ok {
				return
			}
		}
	}
}

func printHeader(out io.Writer, s *session.ChannelSession) {
	channel, _ := s.Channel()
	header := fmt.Sprintf(" #%s %s ", channel.Name, channel.Title)
	fmt.Fprintln(out, color.New(color.BgBlack, color.FgGreen).Render(header))
	if !s.IsMember() {
		fmt.Fprintln(out, color.Yellow.Sprint("You are not a member of this channel, /join to post"))
	}
	if err := s.HistoryErr(); err != nil {
		fmt.Fprintln(out, color.Red.Sprintf("History unavailable: %v", err))
	}
	fmt.Fprintln(out, color.Gray.Sprint("/help for commands"))
}

func readLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}
