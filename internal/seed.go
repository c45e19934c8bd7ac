package internal

import (
	"channel-chat/domain/chat"
	"channel-chat/errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Seed lists the channels a development server starts with.
type Seed struct {
	Channels []SeedChannel `yaml:"channels"`
}

type SeedChannel struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Members     []string `yaml:"members"`
	Moderators  []string `yaml:"moderators"`
}

func LoadSeed(path string) (Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed %s: %w", path, err)
	}
	return ParseSeed(raw)
}

func ParseSeed(raw []byte) (Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return Seed{}, fmt.Errorf("%w: seed: %w", errors.ErrInvalidPayload, err)
	}
	for i, c := range seed.Channels {
		if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.Name) == "" {
			return Seed{}, fmt.Errorf("%w: seed channel %d needs an id and a name", errors.ErrInvalidPayload, i)
		}
	}
	return seed, nil
}

// Domain returns the seeded channels, moderators are members.
func (s Seed) Domain() []chat.Channel {
	channels := make([]chat.Channel, 0, len(s.Channels))
	for _, c := range s.Channels {
		channel := chat.Channel{
			ID:          chat.ChannelID(c.ID),
			Name:        strings.TrimSpace(c.Name),
			Title:       c.Title,
			Description: c.Description,
		}
		for _, m := range c.Members {
			channel.Members = append(channel.Members, chat.UserID(m))
		}
		for _, m := range c.Moderators {
			channel.Moderators = append(channel.Moderators, chat.UserID(m))
		}
		channels = append(channels, channel.Normalize())
	}
	return channels
}
