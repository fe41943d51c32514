package keys

import "steganochat/internal/codec"

// KeySets is the rotating three-generation window: New (owned, freshly
// generated, advertised to the peer), Crt (the peer's
// currently active public generation), and Pst (the previous New, retained
// so in-flight messages against the prior generation still decrypt). Any
// slot may be nil.
type KeySets struct {
	New *KeySet
	Crt *KeySet
	Pst *KeySet
}

// Bytes encodes each slot as a 2-byte little-endian length followed by the
// slot's bytes, with a zero length meaning "absent".
func (ks *KeySets) Bytes() []byte {
	var out []byte
	out = codec.AppendLenPrefixed16(out, slotBytes(ks.New))
	out = codec.AppendLenPrefixed16(out, slotBytes(ks.Crt))
	out = codec.AppendLenPrefixed16(out, slotBytes(ks.Pst))
	return out
}

func slotBytes(k *KeySet) []byte {
	if k == nil {
		return nil
	}
	return k.Bytes()
}

// LoadKeySets decodes a KeySets from data. New and Pst are always owned
// (private) generations; Crt is always the peer's public generation — this
// follows directly from how the three slots are produced.
func LoadKeySets(data []byte) (*KeySets, error) {
	r := codec.NewReader(data)

	newBytes, err := r.ReadLenPrefixed16()
	if err != nil {
		return nil, err
	}
	crtBytes, err := r.ReadLenPrefixed16()
	if err != nil {
		return nil, err
	}
	pstBytes, err := r.ReadLenPrefixed16()
	if err != nil {
		return nil, err
	}

	ks := &KeySets{}
	if newBytes != nil {
		ks.New, err = LoadKeySet(newBytes, true)
		if err != nil {
			return nil, err
		}
	}
	if crtBytes != nil {
		ks.Crt, err = LoadKeySet(crtBytes, false)
		if err != nil {
			return nil, err
		}
	}
	if pstBytes != nil {
		ks.Pst, err = LoadKeySet(pstBytes, true)
		if err != nil {
			return nil, err
		}
	}
	return ks, nil
}

// Equal compares two KeySets slot by slot.
func (ks *KeySets) Equal(other *KeySets) bool {
	if ks == nil || other == nil {
		return ks == other
	}
	return ks.New.Equal(other.New) && ks.Crt.Equal(other.Crt) && ks.Pst.Equal(other.Pst)
}

// UserStatus is the derived occupancy state of a User's KeySets.
type UserStatus int

const (
	// StatusInvalid covers any occupancy combination not named below — a
	// bug marker, not a legal state to transmit against.
	StatusInvalid UserStatus = iota
	// StatusNormal: new, crt, and pst are all present.
	StatusNormal
	// StatusInvitationSent: only new is present (we invited, awaiting reply).
	StatusInvitationSent
	// StatusInvitationReceived: new and crt present, pst absent.
	StatusInvitationReceived
)

func (s UserStatus) String() string {
	switch s {
	case StatusNormal:
		return "Normal"
	case StatusInvitationSent:
		return "InvitationSent"
	case StatusInvitationReceived:
		return "InvitationReceived"
	default:
		return "Invalid"
	}
}

// Status derives the UserStatus from slot occupancy.
func (ks *KeySets) Status() UserStatus {
	switch {
	case ks.New != nil && ks.Crt != nil && ks.Pst != nil:
		return StatusNormal
	case ks.New != nil && ks.Crt == nil && ks.Pst == nil:
		return StatusInvitationSent
	case ks.New != nil && ks.Crt != nil && ks.Pst == nil:
		return StatusInvitationReceived
	default:
		return StatusInvalid
	}
}
