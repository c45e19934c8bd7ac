package storage

import (
	"channel-chat/domain/chat"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Records are encoded in the protobuf wire format, field by field.
//
//	message Message  { string id = 1; string channel_id = 2; string author_id = 3; string author_name = 4;
//	                   string author_avatar = 5; string body = 6; int64 created_at = 7; repeated Reaction reactions = 8; }
//	message Reaction { string reactor = 1; string emoji = 2; }
//	message Channel  { string id = 1; string name = 2; string title = 3; string description = 4;
//	                   repeated string members = 5; repeated string moderators = 6; }

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func encodeMessage(m chat.Message) []byte {
	var b []byte
	b = appendString(b, 1, string(m.ID))
	b = appendString(b, 2, string(m.ChannelID))
	b = appendString(b, 3, string(m.Author.ID))
	b = appendString(b, 4, m.Author.DisplayName)
	b = appendString(b, 5, m.Author.Avatar)
	b = appendString(b, 6, m.Body)
	b = protowire.AppendTag(b, 7, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.CreatedAt.UnixNano()))
	for _, r := range m.Reactions {
		var rb []byte
		rb = appendString(rb, 1, string(r.Reactor))
		rb = appendString(rb, 2, r.Emoji)
		b = protowire.AppendTag(b, 8, protowire.BytesType)
		b = protowire.AppendBytes(b, rb)
	}
	return b
}

func decodeMessage(b []byte) (chat.Message, error) {
	var m chat.Message
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 7 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n >= 0 {
				m.CreatedAt = time.Unix(0, int64(v)).UTC()
			}
			return n, nil
		case num == 8 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			r, err := decodeReaction(v)
			if err != nil {
				return 0, err
			}
			m.Reactions = append(m.Reactions, r)
			return n, nil
		case typ == protowire.BytesType && num >= 1 && num <= 6:
			v, n := protowire.ConsumeString(b)
			switch num {
			case 1:
				m.ID = chat.MessageID(v)
			case 2:
				m.ChannelID = chat.ChannelID(v)
			case 3:
				m.Author.ID = chat.UserID(v)
			case 4:
				m.Author.DisplayName = v
			case 5:
				m.Author.Avatar = v
			case 6:
				m.Body = v
			}
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
	if err != nil {
		return chat.Message{}, fmt.Errorf("decode message: %w", err)
	}
	// the id may come after the reactions
	for i := range m.Reactions {
		m.Reactions[i].MessageID = m.ID
	}
	return m, nil
}

func decodeReaction(b []byte) (chat.Reaction, error) {
	var r chat.Reaction
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType || (num != 1 && num != 2) {
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
		v, n := protowire.ConsumeString(b)
		if num == 1 {
			r.Reactor = chat.UserID(v)
		} else {
			r.Emoji = v
		}
		return n, nil
	})
	return r, err
}

func encodeChannel(c chat.Channel) []byte {
	var b []byte
	b = appendString(b, 1, string(c.ID))
	b = appendString(b, 2, c.Name)
	b = appendString(b, 3, c.Title)
	b = appendString(b, 4, c.Description)
	for _, id := range c.Members {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendString(b, string(id))
	}
	for _, id := range c.Moderators {
		b = protowire.AppendTag(b, 6, protowire.BytesType)
		b = protowire.AppendString(b, string(id))
	}
	return b
}

func decodeChannel(b []byte) (chat.Channel, error) {
	var c chat.Channel
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType || num < 1 || num > 6 {
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
		v, n := protowire.ConsumeString(b)
		switch num {
		case 1:
			c.ID = chat.ChannelID(v)
		case 2:
			c.Name = v
		case 3:
			c.Title = v
		case 4:
			c.Description = v
		case 5:
			c.Members = append(c.Members, chat.UserID(v))
		case 6:
			c.Moderators = append(c.Moderators, chat.UserID(v))
		}
		return n, nil
	})
	if err != nil {
		return chat.Channel{}, fmt.Errorf("decode channel: %w", err)
	}
	return c, nil
}

// decodeFields walks the fields of b. field consumes the value and returns its length.
func decodeFields(b []byte, field func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		n, err := field(num, typ, b)
		if err != nil {
			return err
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}
	return nil
}
