// Package contacts implements SteganoChat's encrypted address book: an
// ordered list of peers (internal/keys.User) persisted as a single
// passphrase-authenticated file, plus the ID-allocation and lookup
// operations the ratchet and CLI layers build on.
package contacts

import (
	"crypto/rand"
	"errors"

	"steganochat/internal/codec"
	"steganochat/internal/keys"
	"steganochat/internal/securestore"
)

var (
	// ErrBadPassphrase is returned by Open when the stored file fails to
	// authenticate under the supplied passphrase.
	ErrBadPassphrase = errors.New("contacts: bad passphrase")
	// ErrUserNotFound is returned by UpdateUser when no user with the given
	// ID exists.
	ErrUserNotFound = errors.New("contacts: user not found")
	// ErrMalformed is returned when a decrypted contacts file cannot be
	// parsed as a well-formed user list.
	ErrMalformed = errors.New("contacts: malformed contacts file")
)

// Contacts is the in-memory address book: an ordered user list plus the
// passphrase it is persisted under.
type Contacts struct {
	path       string
	passphrase string
	users      []*keys.User
}

// Create truncates (or creates) the file at path and writes an empty,
// passphrase-encrypted contacts file.
func Create(path, passphrase string) (*Contacts, error) {
	c := &Contacts{path: path, passphrase: passphrase}
	if err := c.Save(); err != nil {
		return nil, err
	}
	return c, nil
}

// Open decrypts and parses the contacts file at path. ErrBadPassphrase
// surfaces an authentication-tag mismatch.
func Open(path, passphrase string) (*Contacts, error) {
	plaintext, err := securestore.ReadDecryptedFile(path, passphrase)
	if err != nil {
		if errors.Is(err, securestore.ErrAuthFailed) {
			return nil, ErrBadPassphrase
		}
		return nil, err
	}
	users, err := decodeUsers(plaintext)
	if err != nil {
		return nil, err
	}
	return &Contacts{path: path, passphrase: passphrase, users: users}, nil
}

// Save atomically replaces the stored, encrypted contacts file.
func (c *Contacts) Save() error {
	return securestore.WriteEncryptedFile(c.path, c.passphrase, encodeUsers(c.users))
}

// encodeUsers serializes the user list as users_count (2) || for each user:
// user_len (2) || user_bytes.
func encodeUsers(users []*keys.User) []byte {
	out := codec.PutUint16(nil, uint16(len(users)))
	for _, u := range users {
		out = codec.AppendLenPrefixed16(out, u.Bytes())
	}
	return out
}

func decodeUsers(data []byte) ([]*keys.User, error) {
	r := codec.NewReader(data)
	count, err := r.ReadUint16()
	if err != nil {
		return nil, ErrMalformed
	}
	users := make([]*keys.User, 0, count)
	for i := uint16(0); i < count; i++ {
		userBytes, err := r.ReadLenPrefixed16()
		if err != nil {
			return nil, ErrMalformed
		}
		u, err := keys.LoadUser(userBytes)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// Users returns the full user list in insertion order. The slice is the
// store's own, not a copy; mutate entries via UpdateUser, not in place.
func (c *Contacts) Users() []*keys.User {
	return c.users
}

// Invite allocates a fresh stable ID and 32 fresh unique dynamic IDs,
// creates a User in InvitationSent, and appends it.
func (c *Contacts) Invite(name string) (*keys.User, error) {
	id, err := c.generateID()
	if err != nil {
		return nil, err
	}
	dynamicIDs, err := c.generateDynamicIDs()
	if err != nil {
		return nil, err
	}
	newKS, err := keys.GenerateKeySet(dynamicIDs)
	if err != nil {
		return nil, err
	}
	user := &keys.User{ID: id, Name: name, Keys: &keys.KeySets{New: newKS}}
	c.users = append(c.users, user)
	return user, nil
}

// ReceiveInvitation mirrors Invite, but installs peerKeySet as crt
// immediately, yielding a User in InvitationReceived.
func (c *Contacts) ReceiveInvitation(name string, peerKeySet *keys.KeySet) (*keys.User, error) {
	id, err := c.generateID()
	if err != nil {
		return nil, err
	}
	dynamicIDs, err := c.generateDynamicIDs()
	if err != nil {
		return nil, err
	}
	newKS, err := keys.GenerateKeySet(dynamicIDs)
	if err != nil {
		return nil, err
	}
	user := &keys.User{ID: id, Name: name, Keys: &keys.KeySets{New: newKS, Crt: peerKeySet}}
	c.users = append(c.users, user)
	return user, nil
}

// FindByID returns the user with the given stable ID, or nil.
func (c *Contacts) FindByID(id uint64) *keys.User {
	for _, u := range c.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// FindByName returns the first user with the given display name, or nil.
// Names are not required to be unique; this is a convenience lookup the
// CLI layer uses alongside the ID-based one explicitly.
func (c *Contacts) FindByName(name string) *keys.User {
	for _, u := range c.users {
		if u.Name == name {
			return u
		}
	}
	return nil
}

// FindByDynamicID searches first every user's pst.dynamic_ids (matches
// return refreshFlag=false), then every user's new.dynamic_ids (matches
// return refreshFlag=true), in insertion order.
func (c *Contacts) FindByDynamicID(dyn []byte) (user *keys.User, refreshFlag bool) {
	for _, u := range c.users {
		if u.Keys.Pst != nil && u.Keys.Pst.HasDynamicID(dyn) {
			return u, false
		}
	}
	for _, u := range c.users {
		if u.Keys.New != nil && u.Keys.New.HasDynamicID(dyn) {
			return u, true
		}
	}
	return nil, false
}

// UpdateUser replaces the stored user sharing user.ID, returning
// ErrUserNotFound if no such user exists.
func (c *Contacts) UpdateUser(user *keys.User) error {
	for i, u := range c.users {
		if u.ID == user.ID {
			c.users[i] = user
			return nil
		}
	}
	return ErrUserNotFound
}

// GenerateDynamicIDs samples 32 fresh 8-byte dynamic IDs guaranteed unique
// against every existing dynamic ID in this Contacts, for callers (the
// ratchet's rotation path) that mint a new generation outside of
// Invite/ReceiveInvitation.
func (c *Contacts) GenerateDynamicIDs() ([][]byte, error) {
	return c.generateDynamicIDs()
}

// generateID samples 64 uniformly-random bits, rejecting collisions with
// any existing stable ID.
func (c *Contacts) generateID() (uint64, error) {
	for {
		id, err := randomUint64()
		if err != nil {
			return 0, err
		}
		if c.FindByID(id) == nil {
			return id, nil
		}
	}
}

// generateDynamicIDs samples 32 fresh 8-byte IDs, rejecting collisions
// against both the local batch and any dynamic ID already installed in any
// user's new.dynamic_ids ∪ pst.dynamic_ids.
func (c *Contacts) generateDynamicIDs() ([][]byte, error) {
	existing := c.allDynamicIDs()
	out := make([][]byte, 0, keys.DynamicIDCount)
	seen := make(map[string]bool, keys.DynamicIDCount)
	for len(out) < keys.DynamicIDCount {
		id := make([]byte, keys.DynamicIDSize)
		if _, err := rand.Read(id); err != nil {
			return nil, err
		}
		key := string(id)
		if seen[key] || existing[key] {
			continue
		}
		seen[key] = true
		out = append(out, id)
	}
	return out, nil
}

func (c *Contacts) allDynamicIDs() map[string]bool {
	out := make(map[string]bool)
	for _, u := range c.users {
		collectDynamicIDs(out, u.Keys.New)
		collectDynamicIDs(out, u.Keys.Pst)
	}
	return out
}

func collectDynamicIDs(dst map[string]bool, k *keys.KeySet) {
	if k == nil {
		return
	}
	for _, id := range k.DynamicIDs {
		dst[string(id)] = true
	}
}

func randomUint64() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	v, err := codec.Uint64(b[:])
	if err != nil {
		return 0, err
	}
	return v, nil
}
