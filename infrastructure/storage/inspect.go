package storage

import (
	"channel-chat/projection"
	"fmt"
	"strings"

	"github.com/mama165/sdk-go/database"
)

// InspectMapper renders one badger entry for the debug inspector.
func InspectMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	switch {
	case strings.HasPrefix(key, "msg:"):
		m, err := decodeMessage(val)
		if err != nil {
			row.Detail = "Error: decode failed"
			return row
		}
		row.Type = "MESSAGE"
		row.Detail = fmt.Sprintf("%s: %s %v", m.Author.ID, m.Body, projection.Aggregate(m.Reactions, nil))
	case strings.HasPrefix(key, channelPrefix):
		c, err := decodeChannel(val)
		if err != nil {
			row.Detail = "Error: decode failed"
			return row
		}
		row.Type = "CHANNEL"
		row.Detail = fmt.Sprintf("#%s, %d members, %d moderators", c.Name, len(c.Members), len(c.Moderators))
	case strings.HasPrefix(key, "idx:"):
		row.Type = "INDEX"
		row.Detail = string(val)
	}
	return row
}
