//go:generate go run go.uber.org/mock/mockgen -source=content.go -destination=../mocks/mock_content.go -package=mocks
package contract

import (
	"chat-rooms/domain"
	"context"
)

type IModerator interface {
	Review(content string) domain.Verdict
}

// ISearchIndex keeps a full-text copy of room messages.
type ISearchIndex interface {
	Index(ctx context.Context, message domain.Message) error
	// Search returns the best matches of query in the room, newest first.
	Search(ctx context.Context, roomID domain.RoomID, query string, limit int) ([]domain.Message, error)
}
