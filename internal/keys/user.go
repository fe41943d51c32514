package keys

import (
	"errors"

	"steganochat/internal/codec"
)

// ErrMalformedUser is returned when a byte slice does not hold a well-formed
// User record.
var ErrMalformedUser = errors.New("keys: malformed user bytes")

// User is a peer record: a stable identifier, a display name, and the
// rotating KeySets window that secures traffic with that peer.
type User struct {
	ID   uint64
	Name string
	Keys *KeySets
}

// Bytes serializes a User as id(8) || name_len(2) || name || keys_len(2) ||
// keys_bytes.
func (u *User) Bytes() []byte {
	nameBytes := []byte(u.Name)
	keysBytes := u.Keys.Bytes()

	out := make([]byte, 0, 8+2+len(nameBytes)+2+len(keysBytes))
	out = codec.PutUint64(out, u.ID)
	out = codec.AppendLenPrefixed16(out, nameBytes)
	out = codec.AppendLenPrefixed16(out, keysBytes)
	return out
}

// LoadUser decodes a User from data.
func LoadUser(data []byte) (*User, error) {
	r := codec.NewReader(data)

	id, err := r.ReadUint64()
	if err != nil {
		return nil, ErrMalformedUser
	}
	nameBytes, err := r.ReadLenPrefixed16()
	if err != nil {
		return nil, ErrMalformedUser
	}
	keysBytes, err := r.ReadLenPrefixed16()
	if err != nil {
		return nil, ErrMalformedUser
	}
	keySets, err := LoadKeySets(keysBytes)
	if err != nil {
		return nil, err
	}
	return &User{ID: id, Name: string(nameBytes), Keys: keySets}, nil
}

// Status derives this User's UserStatus from its KeySets occupancy.
func (u *User) Status() UserStatus {
	if u.Keys == nil {
		return StatusInvalid
	}
	return u.Keys.Status()
}

// Equal compares two Users for exact structural equality, used by the
// round-trip tests.
func (u *User) Equal(other *User) bool {
	if u == nil || other == nil {
		return u == other
	}
	return u.ID == other.ID && u.Name == other.Name && u.Keys.Equal(other.Keys)
}
