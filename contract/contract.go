//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"channel-chat/domain/chat"
	"channel-chat/domain/event"
	"context"
	"reflect"
)

// IChannelAPI is the request/response collaborator of the chat core.
// Persistence and authentication live behind it.
type IChannelAPI interface {
	ListChannels(ctx context.Context) ([]chat.Channel, error)
	CreateChannel(ctx context.Context, channel chat.Channel) (chat.Channel, error)
	GetChannel(ctx context.Context, id chat.ChannelID) (chat.Channel, error)
	GetMessages(ctx context.Context, id chat.ChannelID, page, limit int) ([]chat.Message, error)
	PostMessage(ctx context.Context, id chat.ChannelID, text string) (chat.Message, error)
	DeleteMessage(ctx context.Context, id chat.MessageID) error
	ReactToMessage(ctx context.Context, id chat.MessageID, emoji string) error
	JoinChannel(ctx context.Context, id chat.ChannelID) error
	LeaveChannel(ctx context.Context, id chat.ChannelID) error
}

// IStreamDialer opens one physical push connection.
type IStreamDialer interface {
	Dial(ctx context.Context) (IStreamConnection, error)
}

// IStreamConnection is an already-connected event channel.
// Events is closed when the transport drops.
// Room membership does not survive a reconnect.
type IStreamConnection interface {
	JoinRoom(ctx context.Context, id chat.ChannelID) error
	LeaveRoom(ctx context.Context, id chat.ChannelID) error
	Events() <-chan event.DomainEvent
	Close() error
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type IRegistry interface {
	GetSinksForRoom(roomID chat.ChannelID) []EventSink
	Subscribe(participantID string, roomID chat.ChannelID, sink EventSink)
	Unsubscribe(participantID string, roomID chat.ChannelID)
	UnsubscribeAll(participantID string)
}
