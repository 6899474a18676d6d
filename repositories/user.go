package repositories

import (
	"chat-rooms/domain"
	"chat-rooms/errors"
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type userRecord struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	CreatedAt    int64  `json:"created_at"`
}

type boardRecord struct {
	Username     string `json:"username"`
	MessageCount int    `json:"message_count"`
	LastActive   int64  `json:"last_active"`
}

// AddUser persists the account together with its zeroed leaderboard row.
func (s *Store) AddUser(_ context.Context, username, passwordHash string) (domain.UserID, error) {
	var id int64
	err := s.update(func(txn *badger.Txn) error {
		nameKey := []byte(userNamePrefix + username)
		if _, err := txn.Get(nameKey); err == nil {
			return errors.ErrUserAlreadyExists
		} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		var err error
		if id, err = nextID(s.userSeq); err != nil {
			return err
		}
		now := s.now().UnixNano()
		if err = setInt(txn, string(nameKey), id); err != nil {
			return err
		}
		record := userRecord{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: now}
		if err = setJSON(txn, userIDPrefix+paddedID(id), record); err != nil {
			return err
		}
		return setJSON(txn, boardPrefix+paddedID(id), boardRecord{Username: username, LastActive: now})
	})
	if err != nil {
		return 0, persistence("add user", err)
	}
	return domain.UserID(id), nil
}

func (s *Store) GetUser(_ context.Context, username string) (domain.User, error) {
	var record userRecord
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := getInt(txn, userNamePrefix+username)
		if err != nil {
			return err
		}
		return getJSON(txn, userIDPrefix+paddedID(id), &record)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, persistence("get user", err)
	}
	return toUser(record), nil
}

func (s *Store) GetUsernameByID(_ context.Context, id domain.UserID) (string, error) {
	var record userRecord
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userIDPrefix+paddedID(int64(id)), &record)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return "", errors.ErrUserNotFound
	}
	if err != nil {
		return "", persistence("get username", err)
	}
	return record.Username, nil
}

func (s *Store) UpdateUserActiveTime(_ context.Context, id domain.UserID, at time.Time) error {
	err := s.update(func(txn *badger.Txn) error {
		key := boardPrefix + paddedID(int64(id))
		var board boardRecord
		if err := getJSON(txn, key, &board); err != nil {
			return err
		}
		board.LastActive = at.UnixNano()
		return setJSON(txn, key, board)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrUserNotFound
	}
	return persistence("update active time", err)
}

func (s *Store) GetLeaderboard(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	var entries []domain.LeaderboardEntry
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(boardPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var board boardRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &board)
			}); err != nil {
				return err
			}
			entries = append(entries, domain.LeaderboardEntry{
				Username:     board.Username,
				MessageCount: board.MessageCount,
				LastActive:   time.Unix(0, board.LastActive).UTC(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, persistence("get leaderboard", err)
	}
	domain.SortLeaderboard(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func toUser(record userRecord) domain.User {
	return domain.User{
		ID:           domain.UserID(record.ID),
		Username:     record.Username,
		PasswordHash: record.PasswordHash,
		CreatedAt:    time.Unix(0, record.CreatedAt).UTC(),
	}
}
