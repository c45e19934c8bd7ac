package main

import (
	"channel-chat/directory"
	"channel-chat/domain/chat"
	"channel-chat/infrastructure/rest"
	"channel-chat/internal"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run(os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "channels: %v\n", err)
	}
	os.Exit(code)
}

// run lists the channels, or creates one with: channels create -name general [-title ...] [-description ...]
func run(args []string, out io.Writer) (int, error) {
	_ = godotenv.Load()
	var config internal.ClientConfig
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := rest.NewClient(log, config.ServerURL, config.Token, config.RequestTimeout)
	if config.Token == "" {
		if config.UserID == "" {
			return exitConfig, fmt.Errorf("config error: CHAT_TOKEN or CHAT_USER_ID is required")
		}
		token, err := client.IssueToken(ctx, chat.Identity{ID: chat.UserID(config.UserID), DisplayName: config.DisplayName})
		if err != nil {
			return exitRuntime, fmt.Errorf("token request failed: %w", err)
		}
		client = client.WithToken(token)
	}
	dir := directory.NewDirectory(log, client)

	if len(args) > 0 && args[0] == "create" {
		flags := flag.NewFlagSet("create", flag.ContinueOnError)
		name := flags.String("name", "", "Channel name")
		title := flags.String("title", "", "Channel title")
		description := flags.String("description", "", "Channel description")
		if err := flags.Parse(args[1:]); err != nil {
			return exitConfig, err
		}
		channel, err := dir.Create(ctx, directory.CreateChannelRequest{Name: *name, Title: *title, Description: *description})
		if err != nil {
			return exitRuntime, err
		}
		printChannels(out, []chat.Channel{channel})
		return exitOK, nil
	}

	channels, err := dir.List(ctx)
	if err != nil {
		return exitRuntime, err
	}
	printChannels(out, channels)
	return exitOK, nil
}

func printChannels(out io.Writer, channels []chat.Channel) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Name", "Title", "Members", "Moderators"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, c := range channels {
		moderators := make([]string, 0, len(c.Moderators))
		for _, m := range c.Moderators {
			moderators = append(moderators, string(m))
		}
		table.Append([]string{
			string(c.ID),
			"#" + c.Name,
			c.Title,
			strconv.Itoa(len(c.Members)),
			strings.Join(moderators, ","),
		})
	}
	table.Render()
}
