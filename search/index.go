// Package search keeps a full-text index of chat messages so a room's
// history can be queried by content.
package search

import (
	"chat-rooms/domain"
	"chat-rooms/errors"
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

const (
	fieldRoom     = "room"
	fieldUserID   = "user_id"
	fieldUsername = "username"
	fieldContent  = "content"
	fieldAt       = "at"
)

// Index is the Bluge implementation of contract.ISearchIndex.
type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

// Open creates or reopens the index stored under path. An empty path keeps the
// index in memory only.
func Open(path string, log *slog.Logger) (*Index, error) {
	cfg := bluge.InMemoryOnlyConfig()
	if path != "" {
		cfg = bluge.DefaultConfig(path)
	}
	writer, err := bluge.OpenWriter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	return &Index{writer: writer, log: log}, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

func (i *Index) Index(_ context.Context, m domain.Message) error {
	doc := bluge.NewDocument(m.ID.String()).
		AddField(bluge.NewKeywordField(fieldRoom, roomTerm(m.RoomID)).StoreValue()).
		AddField(bluge.NewKeywordField(fieldUserID, strconv.FormatInt(int64(m.UserID), 10)).StoreValue()).
		AddField(bluge.NewKeywordField(fieldUsername, m.Username).StoreValue()).
		AddField(bluge.NewTextField(fieldContent, m.Content).StoreValue()).
		AddField(bluge.NewDateTimeField(fieldAt, m.At).StoreValue().Sortable())
	if err := i.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("%w: index message: %v", errors.ErrPersistence, err)
	}
	return nil
}

// Search matches query against message content within one room, newest first.
func (i *Index) Search(ctx context.Context, roomID domain.RoomID, query string, limit int) ([]domain.Message, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("%w: open reader: %v", errors.ErrPersistence, err)
	}
	defer func() { _ = reader.Close() }()

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(roomTerm(roomID)).SetField(fieldRoom)).
		AddMust(bluge.NewMatchQuery(query).SetField(fieldContent))
	request := bluge.NewTopNSearch(limit, q).SortBy([]string{"-" + fieldAt})

	matches, err := reader.Search(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", errors.ErrPersistence, err)
	}

	var messages []domain.Message
	match, err := matches.Next()
	for err == nil && match != nil {
		message := domain.Message{RoomID: roomID}
		var visitErr error
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			visitErr = decodeField(&message, field, value)
			return visitErr == nil
		})
		if err == nil {
			err = visitErr
		}
		if err != nil {
			break
		}
		messages = append(messages, message)
		match, err = matches.Next()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read matches: %v", errors.ErrPersistence, err)
	}
	i.log.Debug("Search executed", "room_id", roomID, "query", query, "hits", len(messages))
	return messages, nil
}

func decodeField(m *domain.Message, field string, value []byte) error {
	switch field {
	case "_id":
		id, err := uuid.ParseBytes(value)
		if err != nil {
			return err
		}
		m.ID = id
	case fieldUserID:
		id, err := strconv.ParseInt(string(value), 10, 64)
		if err != nil {
			return err
		}
		m.UserID = domain.UserID(id)
	case fieldUsername:
		m.Username = string(value)
	case fieldContent:
		m.Content = string(value)
	case fieldAt:
		at, err := bluge.DecodeDateTime(value)
		if err != nil {
			return err
		}
		m.At = at.UTC()
	}
	return nil
}

func roomTerm(id domain.RoomID) string {
	return strconv.FormatInt(int64(id), 10)
}

