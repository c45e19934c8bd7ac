package chat

type Command interface {
	Channel() ChannelID
}

type PostMessageCommand struct {
	ChannelID ChannelID
	Body      string
}

func (p PostMessageCommand) Channel() ChannelID {
	return p.ChannelID
}

type DeleteMessageCommand struct {
	ChannelID ChannelID
	MessageID MessageID
}

func (d DeleteMessageCommand) Channel() ChannelID {
	return d.ChannelID
}

type ReactCommand struct {
	ChannelID ChannelID
	MessageID MessageID
	Emoji     string
}

func (r ReactCommand) Channel() ChannelID {
	return r.ChannelID
}
