package main

import (
	"channel-chat/domain/chat"
	"channel-chat/errors"
	"fmt"
	"strings"
)

type commandKind int

const (
	cmdNone commandKind = iota
	cmdPost
	cmdReact
	cmdDelete
	cmdJoin
	cmdLeave
	cmdHelp
	cmdQuit
)

// command is one line typed by the user. Plain text is posted, '/' starts a command.
type command struct {
	kind  commandKind
	text  string
	ref   string
	emoji string
}

const usage = `Commands:
  <text>               post a message
  /react <id> <emoji>  toggle a reaction
  /delete <id>         delete a message
  /join, /leave        change your membership
  /help, /quit`

func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return command{kind: cmdNone}, nil
	}
	if !strings.HasPrefix(line, "/") {
		return command{kind: cmdPost, text: line}, nil
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/react":
		if len(fields) != 3 {
			return command{}, fmt.Errorf("%w: usage /react <id> <emoji>", errors.ErrInvalidPayload)
		}
		return command{kind: cmdReact, ref: fields[1], emoji: fields[2]}, nil
	case "/delete":
		if len(fields) != 2 {
			return command{}, fmt.Errorf("%w: usage /delete <id>", errors.ErrInvalidPayload)
		}
		return command{kind: cmdDelete, ref: fields[1]}, nil
	case "/join":
		return command{kind: cmdJoin}, nil
	case "/leave":
		return command{kind: cmdLeave}, nil
	case "/help":
		return command{kind: cmdHelp}, nil
	case "/quit", "/exit":
		return command{kind: cmdQuit}, nil
	default:
		return command{}, fmt.Errorf("%w: unknown command %s", errors.ErrInvalidPayload, fields[0])
	}
}

// resolve finds the message a short reference points to, the full id or a unique suffix of it.
func resolve(messages []chat.Message, ref string) (chat.MessageID, error) {
	var found []chat.MessageID
	for _, m := range messages {
		if string(m.ID) == ref {
			return m.ID, nil
		}
		if strings.HasSuffix(strings.ToLower(string(m.ID)), strings.ToLower(ref)) {
			found = append(found, m.ID)
		}
	}
	if len(found) != 1 {
		return "", fmt.Errorf("%w: %q matches %d messages", errors.ErrMessageNotFound, ref, len(found))
	}
	return found[0], nil
}
