package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Origin tells which id space an identifier was minted in.
type Origin string

const (
	OriginRemote Origin = "remote"
	OriginLocal  Origin = "local"
)

// ID is an identifier tagged with its origin. Local and remote id spaces
// overlap numerically and are only unified when the sync reconciler remaps
// local ids to server-assigned ones.
type ID struct {
	Origin Origin
	Value  int64
}

// UnknownUserID marks rows whose owning user is missing from the local store.
var UnknownUserID = ID{Origin: OriginLocal, Value: -1}

// RemoteID wraps a server-assigned identifier.
func RemoteID(v int64) ID { return ID{Origin: OriginRemote, Value: v} }

// LocalID wraps a client-generated identifier.
func LocalID(v int64) ID { return ID{Origin: OriginLocal, Value: v} }

// IsLocal reports whether the id has not been assigned by the server.
func (id ID) IsLocal() bool { return id.Origin == OriginLocal }

// IsZero reports whether the id is unset.
func (id ID) IsZero() bool { return id.Origin == "" && id.Value == 0 }

func (id ID) String() string {
	if id.Origin == "" {
		return strconv.FormatInt(id.Value, 10)
	}
	return fmt.Sprintf("%s:%d", id.Origin, id.Value)
}

// MarshalJSON writes the bare integer; the wire only ever carries server ids
// or ids the receiver treats as opaque.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(id.Value, 10)), nil
}

// UnmarshalJSON reads a bare integer as a remote id.
func (id *ID) UnmarshalJSON(b []byte) error {
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = RemoteID(v)
	return nil
}
