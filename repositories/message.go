package repositories

import (
	"chat-rooms/domain"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type messageRecord struct {
	ID       string `json:"id"`
	RoomID   int64  `json:"room_id"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Content  string `json:"content"`
	At       int64  `json:"at"`
}

func messagePrefixFor(roomID domain.RoomID) string {
	return fmt.Sprintf("%s%s:", messagePrefix, paddedID(int64(roomID)))
}

// messageKey is "msg:{room}:{timestamp}:{uuid}". The 19 digit timestamp keeps keys
// in chronological order, the uuid separates messages sharing a nanosecond.
func messageKey(m domain.Message) string {
	return fmt.Sprintf("%s%019d:%s", messagePrefixFor(m.RoomID), m.At.UnixNano(), m.ID)
}

// SaveMessage appends the message, bumps the room counter and the author's
// leaderboard row in one transaction.
func (s *Store) SaveMessage(_ context.Context, m domain.Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	record := messageRecord{
		ID:       m.ID.String(),
		RoomID:   int64(m.RoomID),
		UserID:   int64(m.UserID),
		Username: m.Username,
		Content:  m.Content,
		At:       m.At.UnixNano(),
	}
	err := s.update(func(txn *badger.Txn) error {
		if err := setJSON(txn, messageKey(m), record); err != nil {
			return err
		}

		countKey := roomCountPrefix + paddedID(int64(m.RoomID))
		count, err := getInt(txn, countKey)
		if err != nil && !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err = setInt(txn, countKey, count+1); err != nil {
			return err
		}

		boardKey := boardPrefix + paddedID(int64(m.UserID))
		var board boardRecord
		if err = getJSON(txn, boardKey, &board); err != nil {
			if !stderrors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			board = boardRecord{Username: m.Username}
		}
		board.MessageCount++
		board.LastActive = record.At
		return setJSON(txn, boardKey, board)
	})
	return persistence("save message", err)
}

// GetMessageHistory walks the room backwards from its newest key and returns the
// collected messages oldest first.
func (s *Store) GetMessageHistory(_ context.Context, roomID domain.RoomID, limit int) ([]domain.Message, error) {
	var records []messageRecord
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefixFor(roomID))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// "9999999999999999999" sorts after every padded timestamp of the room
		for it.Seek(append(prefix, "9999999999999999999"...)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(records) == limit {
				break
			}
			var record messageRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			}); err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, persistence("get history", err)
	}

	slices.Reverse(records)
	messages := make([]domain.Message, 0, len(records))
	for _, record := range records {
		message, err := toMessage(record)
		if err != nil {
			return nil, persistence("decode message", err)
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func toMessage(record messageRecord) (domain.Message, error) {
	id, err := uuid.Parse(record.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:       id,
		RoomID:   domain.RoomID(record.RoomID),
		UserID:   domain.UserID(record.UserID),
		Username: record.Username,
		Content:  record.Content,
		At:       time.Unix(0, record.At).UTC(),
	}, nil
}

