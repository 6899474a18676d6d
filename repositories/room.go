package repositories

import (
	"chat-rooms/domain"
	"chat-rooms/errors"
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

type roomRecord struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IsPrivate bool   `json:"is_private"`
	CreatedBy int64  `json:"created_by"`
	CreatedAt int64  `json:"created_at"`
}

// CreateRoom registers a room name. When two callers race on one name, the first
// commit wins and the other observes errors.ErrRoomAlreadyExists.
func (s *Store) CreateRoom(_ context.Context, name string, isPrivate bool, createdBy domain.UserID) (domain.RoomID, error) {
	var id int64
	err := s.update(func(txn *badger.Txn) error {
		nameKey := roomNamePrefix + name
		if _, err := txn.Get([]byte(nameKey)); err == nil {
			return errors.ErrRoomAlreadyExists
		} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		var err error
		if id, err = nextID(s.roomSeq); err != nil {
			return err
		}
		if err = setInt(txn, nameKey, id); err != nil {
			return err
		}
		record := roomRecord{ID: id, Name: name, IsPrivate: isPrivate, CreatedBy: int64(createdBy), CreatedAt: s.now().UnixNano()}
		return setJSON(txn, roomIDPrefix+paddedID(id), record)
	})
	if err != nil {
		return 0, persistence("create room", err)
	}
	return domain.RoomID(id), nil
}

func (s *Store) GetRoomDetails(_ context.Context, name string) (domain.RoomDetails, error) {
	var record roomRecord
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := getInt(txn, roomNamePrefix+name)
		if err != nil {
			return err
		}
		return getJSON(txn, roomIDPrefix+paddedID(id), &record)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.RoomDetails{}, errors.ErrRoomNotFound
	}
	if err != nil {
		return domain.RoomDetails{}, persistence("get room", err)
	}
	return toRoomDetails(record), nil
}

func (s *Store) GetAllRooms(_ context.Context) ([]domain.RoomDetails, error) {
	var records []roomRecord
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(roomIDPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record roomRecord
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
		return nil, persistence("get rooms", err)
	}
	return lo.Map(records, func(r roomRecord, _ int) domain.RoomDetails {
		return toRoomDetails(r)
	}), nil
}

// GetRoomStats reads the message counter maintained by SaveMessage.
func (s *Store) GetRoomStats(_ context.Context, roomID domain.RoomID) (int, error) {
	var count int64
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		count, err = getInt(txn, roomCountPrefix+paddedID(int64(roomID)))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return 0, persistence("get room stats", err)
	}
	return int(count), nil
}

func toRoomDetails(record roomRecord) domain.RoomDetails {
	return domain.RoomDetails{ID: domain.RoomID(record.ID), Name: record.Name, IsPrivate: record.IsPrivate}
}
