package directory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"channel-chat/domain/chat"
	"channel-chat/errors"
	"channel-chat/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newDirectory(t *testing.T) (Directory, *mocks.MockIChannelAPI) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockIChannelAPI(ctrl)
	return NewDirectory(logs.GetLoggerFromLevel(slog.LevelDebug), api), api
}

func TestDirectory_List_Sorted_By_Name(t *testing.T) {
	req := require.New(t)
	directory, api := newDirectory(t)
	api.EXPECT().ListChannels(gomock.Any()).Return([]chat.Channel{
		{ID: "2", Name: "random"},
		{ID: "1", Name: "general", Moderators: []chat.UserID{"alice"}},
	}, nil)

	channels, err := directory.List(context.Background())

	req.NoError(err)
	req.Len(channels, 2)
	req.Equal("general", channels[0].Name)
	// Moderators are members too
	req.True(channels[0].IsMember("alice"))
}

func TestDirectory_List_Failure(t *testing.T) {
	req := require.New(t)
	directory, api := newDirectory(t)
	api.EXPECT().ListChannels(gomock.Any()).Return(nil, fmt.Errorf("connection reset"))

	_, err := directory.List(context.Background())

	req.ErrorIs(err, errors.ErrNetworkFailure)
}

func TestDirectory_Get_Blank_Id(t *testing.T) {
	req := require.New(t)
	directory, _ := newDirectory(t)

	_, err := directory.Get(context.Background(), " ")

	req.ErrorIs(err, errors.ErrChannelNotFound)
}

func TestDirectory_Get_Keeps_Cause(t *testing.T) {
	req := require.New(t)
	directory, api := newDirectory(t)
	api.EXPECT().GetChannel(gomock.Any(), chat.ChannelID("missing")).Return(chat.Channel{}, errors.ErrChannelNotFound)

	_, err := directory.Get(context.Background(), "missing")

	req.ErrorIs(err, errors.ErrChannelNotFound)
}

func TestDirectory_Create(t *testing.T) {
	req := require.New(t)
	directory, api := newDirectory(t)
	api.EXPECT().CreateChannel(gomock.Any(), chat.Channel{Name: "golang", Title: "Gophers"}).
		Return(chat.Channel{ID: "c1", Name: "golang", Title: "Gophers", Moderators: []chat.UserID{"alice"}}, nil)

	channel, err := directory.Create(context.Background(), CreateChannelRequest{Name: "  golang ", Title: "Gophers"})

	req.NoError(err)
	req.Equal(chat.ChannelID("c1"), channel.ID)
	req.True(channel.IsModerator("alice"))
	req.True(channel.IsMember("alice"))
}

func TestDirectory_Create_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  CreateChannelRequest
	}{
		{"Missing name", CreateChannelRequest{Name: "   "}},
		{"Name too long", CreateChannelRequest{Name: strings.Repeat("a", 65)}},
		{"Name with a slash", CreateChannelRequest{Name: "a/b"}},
		{"Description too long", CreateChannelRequest{Name: "ok", Description: strings.Repeat("a", 1025)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			// No call reaches the api
			directory, _ := newDirectory(t)

			_, err := directory.Create(context.Background(), tt.req)

			req.ErrorIs(err, errors.ErrInvalidPayload)
		})
	}
}
