package internal

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type InspectRow struct {
	Key       string
	Namespace string
	EntityID  string
	Timestamp string
	Detail    string
}

type RowMapper func(key string, val []byte) InspectRow

// OpenReadOnly opens a store directory without taking its lock, so a running
// server can be inspected.
func OpenReadOnly(path string) (*badger.DB, error) {
	return badger.Open(badger.DefaultOptions(path).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLogger(nil))
}

// Scan maps every key under prefix, at most limit rows when limit is positive.
func Scan(db *badger.DB, prefix string, limit int, mapper RowMapper) ([]InspectRow, error) {
	if mapper == nil {
		mapper = DefaultMapper
	}
	var rows []InspectRow
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if limit > 0 && len(rows) >= limit {
				return nil
			}
			item := it.Item()
			key := string(item.Key())
			if err := item.Value(func(val []byte) error {
				rows = append(rows, mapper(key, val))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return rows, err
}

// DefaultMapper understands the chat store key layout:
// "{namespace}:{kind}:{id}" for users and rooms, "board:{id}" and
// "msg:{room}:{unix nano}:{uuid}" for messages.
func DefaultMapper(key string, val []byte) InspectRow {
	parts := strings.Split(key, ":")
	row := InspectRow{
		Key:       key,
		Namespace: parts[0],
		EntityID:  "-",
		Timestamp: "--:--:--",
		Detail:    "Size: " + strconv.Itoa(len(val)) + " bytes",
	}

	switch {
	case parts[0] == "msg" && len(parts) >= 4:
		row.EntityID = strings.TrimLeft(parts[1], "0")
		if nanos, err := strconv.ParseInt(parts[2], 10, 64); err == nil {
			row.Timestamp = time.Unix(0, nanos).UTC().Format(time.DateTime)
		}
		row.Detail = summarize(val)
	case len(parts) >= 3:
		row.Namespace = parts[0] + ":" + parts[1]
		row.EntityID = strings.TrimLeft(parts[2], "0")
		row.Detail = summarize(val)
	case len(parts) == 2:
		row.EntityID = strings.TrimLeft(parts[1], "0")
		row.Detail = summarize(val)
	}
	return row
}

// summarize prints JSON values compactly without their password hash.
// Other values are printed as they are.
func summarize(val []byte) string {
	var fields map[string]any
	if err := json.Unmarshal(val, &fields); err != nil {
		return string(val)
	}
	if _, ok := fields["password_hash"]; ok {
		fields["password_hash"] = "<redacted>"
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return string(val)
	}
	return string(out)
}
