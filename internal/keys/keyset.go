// Package keys implements SteganoChat's in-memory key material: one
// generation of a pairwise ratchet (KeySet), the three-generation rotating
// window (KeySets), and the peer record that owns them (User).
package keys

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"errors"

	"steganochat/internal/codec"
)

const (
	// AESKeySize is the width of a KeySet's symmetric key.
	AESKeySize = 32
	// DynamicIDSize is the width of a single dynamic identifier.
	DynamicIDSize = 8
	// DynamicIDCount is how many dynamic IDs travel with a generation.
	DynamicIDCount = 32
	// dynamicIDsBlockSize is the fixed width of the concatenated dynamic-ID block.
	dynamicIDsBlockSize = DynamicIDSize * DynamicIDCount
)

// ErrMalformedKeySet is returned when a byte slice is too short to hold the
// fixed-width AES key and dynamic-ID block a KeySet requires.
var ErrMalformedKeySet = errors.New("keys: malformed key set bytes")

// KeySet is one generation of a pairwise ratchet: a symmetric key, an
// RSA key (private when this generation is "owned" locally, public when it
// is the peer's), and 32 dynamic identifiers.
type KeySet struct {
	AESKey     []byte   // exactly AESKeySize bytes
	DynamicIDs [][]byte // exactly DynamicIDCount entries of DynamicIDSize bytes
	Owned      bool     // true: RSABytes is a PKCS#1 private key; false: PKIX public key
	RSABytes   []byte
}

// GenerateKeySet creates a fresh owned KeySet: a random AES key, a fresh
// RSA-2048 private key, and the supplied dynamic IDs (the caller, normally
// Contacts, is responsible for the uniqueness invariant over those IDs).
func GenerateKeySet(dynamicIDs [][]byte) (*KeySet, error) {
	if len(dynamicIDs) != DynamicIDCount {
		return nil, errors.New("keys: expected exactly 32 dynamic IDs")
	}
	aesKey := make([]byte, AESKeySize)
	if _, err := rand.Read(aesKey); err != nil {
		return nil, err
	}
	priv, err := codec.GenerateRSAKey()
	if err != nil {
		return nil, err
	}
	return &KeySet{
		AESKey:     aesKey,
		DynamicIDs: cloneIDs(dynamicIDs),
		Owned:      true,
		RSABytes:   codec.MarshalRSAPrivateKey(priv),
	}, nil
}

// PrivateKey parses the owned RSA private key. Only valid when Owned.
func (k *KeySet) PrivateKey() (*rsa.PrivateKey, error) {
	if !k.Owned {
		return nil, errors.New("keys: key set does not hold a private key")
	}
	return codec.ParseRSAPrivateKey(k.RSABytes)
}

// PublicKey returns the RSA public key, deriving it from the private key
// when this KeySet is owned.
func (k *KeySet) PublicKey() (*rsa.PublicKey, error) {
	if !k.Owned {
		return codec.ParseRSAPublicKey(k.RSABytes)
	}
	priv, err := k.PrivateKey()
	if err != nil {
		return nil, err
	}
	return &priv.PublicKey, nil
}

// PublicKeyBytes returns the PKIX DER encoding of the public key, whether
// this KeySet is owned or already public.
func (k *KeySet) PublicKeyBytes() ([]byte, error) {
	if !k.Owned {
		return k.RSABytes, nil
	}
	pub, err := k.PublicKey()
	if err != nil {
		return nil, err
	}
	return codec.MarshalRSAPublicKey(pub)
}

// PublicView returns the KeySet advertised to a peer: identical AES key and
// dynamic IDs, with the RSA field replaced by the public key: when a
// KeySet is transmitted to a peer, the rsa_key field is substituted with
// the corresponding public key bytes.
func (k *KeySet) PublicView() (*KeySet, error) {
	pubBytes, err := k.PublicKeyBytes()
	if err != nil {
		return nil, err
	}
	return &KeySet{
		AESKey:     cloneBytes(k.AESKey),
		DynamicIDs: cloneIDs(k.DynamicIDs),
		Owned:      false,
		RSABytes:   pubBytes,
	}, nil
}

// Bytes serializes the KeySet as aes_key || concat(dynamic_ids) || rsa_bytes,
// regardless of whether RSABytes holds a private or public key — the
// caller's framing (KeySets, or the ratchet's exchange section) is what
// determines which variant is in play.
func (k *KeySet) Bytes() []byte {
	out := make([]byte, 0, AESKeySize+dynamicIDsBlockSize+len(k.RSABytes))
	out = append(out, k.AESKey...)
	for _, id := range k.DynamicIDs {
		out = append(out, id...)
	}
	out = append(out, k.RSABytes...)
	return out
}

// LoadKeySet decodes a KeySet from data, which must be at least
// AESKeySize+32*DynamicIDSize bytes long; everything after that is taken as
// the RSA key material, private if owned is true, public otherwise.
func LoadKeySet(data []byte, owned bool) (*KeySet, error) {
	if len(data) < AESKeySize+dynamicIDsBlockSize {
		return nil, ErrMalformedKeySet
	}
	aesKey := cloneBytes(data[:AESKeySize])
	idBlock := data[AESKeySize : AESKeySize+dynamicIDsBlockSize]
	ids := make([][]byte, DynamicIDCount)
	for i := range ids {
		ids[i] = cloneBytes(idBlock[i*DynamicIDSize : (i+1)*DynamicIDSize])
	}
	rsaBytes := cloneBytes(data[AESKeySize+dynamicIDsBlockSize:])
	return &KeySet{AESKey: aesKey, DynamicIDs: ids, Owned: owned, RSABytes: rsaBytes}, nil
}

// HasDynamicID reports whether id matches one of k's dynamic IDs.
func (k *KeySet) HasDynamicID(id []byte) bool {
	for _, candidate := range k.DynamicIDs {
		if bytes.Equal(candidate, id) {
			return true
		}
	}
	return false
}

// Equal compares two KeySets for exact structural equality, used by the
// round-trip tests.
func (k *KeySet) Equal(other *KeySet) bool {
	if k == nil || other == nil {
		return k == other
	}
	if k.Owned != other.Owned {
		return false
	}
	if !bytes.Equal(k.AESKey, other.AESKey) {
		return false
	}
	if !bytes.Equal(k.RSABytes, other.RSABytes) {
		return false
	}
	if len(k.DynamicIDs) != len(other.DynamicIDs) {
		return false
	}
	for i := range k.DynamicIDs {
		if !bytes.Equal(k.DynamicIDs[i], other.DynamicIDs[i]) {
			return false
		}
	}
	return true
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneIDs(ids [][]byte) [][]byte {
	out := make([][]byte, len(ids))
	for i, id := range ids {
		out[i] = cloneBytes(id)
	}
	return out
}
