package storage

import (
	"channel-chat/domain/chat"
	"channel-chat/errors"
	"log/slog"
	"sort"

	"github.com/dgraph-io/badger/v4"
)

type IChannelRepository interface {
	Save(channel chat.Channel) error
	Get(id chat.ChannelID) (chat.Channel, error)
	List() ([]chat.Channel, error)
	Update(id chat.ChannelID, update func(chat.Channel) chat.Channel) (chat.Channel, error)
}

type ChannelRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewChannelRepository(db *badger.DB, log *slog.Logger) ChannelRepository {
	return ChannelRepository{db: db, log: log}
}

const channelPrefix = "chan:"

func channelKey(id chat.ChannelID) []byte {
	return []byte(channelPrefix + string(id))
}

func (r ChannelRepository) Save(channel chat.Channel) error {
	channel = channel.Normalize()
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(channelKey(channel.ID), encodeChannel(channel))
	})
}

func (r ChannelRepository) Get(id chat.ChannelID) (chat.Channel, error) {
	var channel chat.Channel
	err := r.db.View(func(txn *badger.Txn) error {
		c, err := loadChannel(txn, id)
		channel = c
		return err
	})
	return channel, err
}

// List returns every channel sorted by name.
func (r ChannelRepository) List() ([]chat.Channel, error) {
	var channels []chat.Channel
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(channelPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				c, err := decodeChannel(value)
				if err != nil {
					return err
				}
				channels = append(channels, c)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	sort.SliceStable(channels, func(i, j int) bool { return channels[i].Name < channels[j].Name })
	return channels, err
}

// Update applies update to the stored channel in one transaction and keeps moderators members.
func (r ChannelRepository) Update(id chat.ChannelID, update func(chat.Channel) chat.Channel) (chat.Channel, error) {
	var channel chat.Channel
	err := r.db.Update(func(txn *badger.Txn) error {
		c, err := loadChannel(txn, id)
		if err != nil {
			return err
		}
		channel = update(c).Normalize()
		channel.ID = id
		return txn.Set(channelKey(id), encodeChannel(channel))
	})
	return channel, err
}

func loadChannel(txn *badger.Txn, id chat.ChannelID) (chat.Channel, error) {
	item, err := txn.Get(channelKey(id))
	if err == badger.ErrKeyNotFound {
		return chat.Channel{}, errors.ErrChannelNotFound
	}
	if err != nil {
		return chat.Channel{}, err
	}
	var channel chat.Channel
	err = item.Value(func(value []byte) error {
		channel, err = decodeChannel(value)
		return err
	})
	return channel, err
}
