package repositories

import (
	"chat-rooms/errors"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Key layout:
//
//	user:name:{username}            -> user id
//	user:id:{id padded to 20}       -> userRecord
//	board:{user id padded to 20}    -> boardRecord
//	room:name:{name}                -> room id
//	room:id:{id padded to 20}       -> roomRecord
//	room:count:{id padded to 20}    -> message count
//	msg:{room padded}:{unix nano padded to 19}:{uuid} -> messageRecord
//
// Padding keeps lexicographic key order equal to numeric order, so prefix scans
// return rooms in creation order and messages in time order.
const (
	userNamePrefix  = "user:name:"
	userIDPrefix    = "user:id:"
	boardPrefix     = "board:"
	roomNamePrefix  = "room:name:"
	roomIDPrefix    = "room:id:"
	roomCountPrefix = "room:count:"
	messagePrefix   = "msg:"

	sequenceBandwidth = 100
	conflictRetries   = 5
)

// Store is the Badger implementation of contract.IStore.
type Store struct {
	db      *badger.DB
	log     *slog.Logger
	userSeq *badger.Sequence
	roomSeq *badger.Sequence
	now     func() time.Time
}

// NewStore wraps an open database. Id sequences are only leased on a writable
// database, so a read-only Store can serve every query.
func NewStore(db *badger.DB, log *slog.Logger) (*Store, error) {
	s := &Store{db: db, log: log, now: time.Now}
	if db.Opts().ReadOnly {
		return s, nil
	}
	var err error
	if s.userSeq, err = db.GetSequence([]byte("seq:user"), sequenceBandwidth); err != nil {
		return nil, err
	}
	if s.roomSeq, err = db.GetSequence([]byte("seq:room"), sequenceBandwidth); err != nil {
		_ = s.userSeq.Release()
		return nil, err
	}
	return s, nil
}

// Close returns unused leased ids to the database. It does not close the database.
func (s *Store) Close() error {
	var errs []error
	for _, seq := range []*badger.Sequence{s.userSeq, s.roomSeq} {
		if seq != nil {
			errs = append(errs, seq.Release())
		}
	}
	return stderrors.Join(errs...)
}

// update runs fn in a read-write transaction, retrying when a concurrent
// transaction committed a key fn has read. A retried fn sees the winner's writes,
// which is what makes name uniqueness first-writer-wins.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for range conflictRetries {
		err = s.db.Update(fn)
		if !stderrors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debug("Transaction conflict, retrying")
	}
	return err
}

// persistence wraps store failures, leaving domain sentinels untouched.
func persistence(op string, err error) error {
	if err == nil || errors.KindOf(err) != errors.KindInternal {
		return err
	}
	return fmt.Errorf("%w: %s: %v", errors.ErrPersistence, op, err)
}

func paddedID(id int64) string {
	return fmt.Sprintf("%020d", id)
}

func nextID(seq *badger.Sequence) (int64, error) {
	if seq == nil {
		return 0, badger.ErrReadOnlyTxn
	}
	n, err := seq.Next()
	if err != nil {
		return 0, err
	}
	return int64(n) + 1, nil
}

func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), data)
}

func getInt(txn *badger.Txn, key string) (int64, error) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return 0, err
	}
	var n int64
	err = item.Value(func(val []byte) error {
		n, err = strconv.ParseInt(string(val), 10, 64)
		return err
	})
	return n, err
}

func setInt(txn *badger.Txn, key string, n int64) error {
	return txn.Set([]byte(key), []byte(strconv.FormatInt(n, 10)))
}
