// Package storage persists channels and messages of the development server in BadgerDB.
package storage

import (
	"channel-chat/domain/chat"
	"channel-chat/errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

type IMessageRepository interface {
	Store(message chat.Message) error
	Get(id chat.MessageID) (chat.Message, error)
	Delete(id chat.MessageID) (chat.Message, error)
	UpdateReactions(id chat.MessageID, update func([]chat.Reaction) []chat.Reaction) (chat.Message, error)
	List(channelID chat.ChannelID, page, limit int) ([]chat.Message, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// messageKey is formatted as "msg:{channel_id}:{timestamp_padded}:{message_id}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Keep two messages of the same nanosecond apart, ordered by id.
func messageKey(m chat.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", m.ChannelID, m.CreatedAt.UnixNano(), m.ID))
}

// indexKey points from a message id to its primary key.
func indexKey(id chat.MessageID) []byte {
	return []byte("idx:msg:" + string(id))
}

func (r MessageRepository) Store(message chat.Message) error {
	key := messageKey(message)
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, encodeMessage(message)); err != nil {
			return err
		}
		return txn.Set(indexKey(message.ID), key)
	})
}

func (r MessageRepository) Get(id chat.MessageID) (chat.Message, error) {
	var message chat.Message
	err := r.db.View(func(txn *badger.Txn) error {
		m, _, err := r.load(txn, id)
		message = m
		return err
	})
	return message, err
}

func (r MessageRepository) Delete(id chat.MessageID) (chat.Message, error) {
	var message chat.Message
	err := r.db.Update(func(txn *badger.Txn) error {
		m, key, err := r.load(txn, id)
		if err != nil {
			return err
		}
		message = m
		if err := txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete(indexKey(id))
	})
	return message, err
}

// UpdateReactions replaces the reactions of a message inside a single transaction.
func (r MessageRepository) UpdateReactions(id chat.MessageID, update func([]chat.Reaction) []chat.Reaction) (chat.Message, error) {
	var message chat.Message
	err := r.db.Update(func(txn *badger.Txn) error {
		m, key, err := r.load(txn, id)
		if err != nil {
			return err
		}
		m.Reactions = update(m.Reactions)
		message = m
		return txn.Set(key, encodeMessage(m))
	})
	return message, err
}

// List returns page n of a channel, pages counted from the newest message backwards.
// Messages of a page are ordered oldest first.
func (r MessageRepository) List(channelID chat.ChannelID, page, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	if page < 0 {
		page = 0
	}
	skip := page * limit

	var messages []chat.Message
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", channelID))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		// Reverse iteration starts from the largest possible key of the channel
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if skip > 0 {
				skip--
				continue
			}
			if len(messages) == limit {
				break
			}
			err := it.Item().Value(func(value []byte) error {
				m, err := decodeMessage(value)
				if err != nil {
					return err
				}
				messages = append(messages, m)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	r.log.Debug("Messages listed", "channel_id", channelID, "page", page, "limit", limit, "count", len(messages))
	return messages, nil
}

func (r MessageRepository) load(txn *badger.Txn, id chat.MessageID) (chat.Message, []byte, error) {
	item, err := txn.Get(indexKey(id))
	if err == badger.ErrKeyNotFound {
		return chat.Message{}, nil, errors.ErrMessageNotFound
	}
	if err != nil {
		return chat.Message{}, nil, err
	}
	key, err := item.ValueCopy(nil)
	if err != nil {
		return chat.Message{}, nil, err
	}
	item, err = txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return chat.Message{}, nil, errors.ErrMessageNotFound
	}
	if err != nil {
		return chat.Message{}, nil, err
	}
	var message chat.Message
	err = item.Value(func(value []byte) error {
		message, err = decodeMessage(value)
		return err
	})
	return message, key, err
}
