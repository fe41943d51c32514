package keys

import "testing"

func sampleIDs(seed byte) [][]byte {
	ids := make([][]byte, DynamicIDCount)
	for i := range ids {
		id := make([]byte, DynamicIDSize)
		for j := range id {
			id[j] = seed + byte(i) + byte(j)
		}
		ids[i] = id
	}
	return ids
}

func TestGenerateKeySetRoundTrip(t *testing.T) {
	ks, err := GenerateKeySet(sampleIDs(1))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !ks.Owned {
		t.Fatalf("generated key set must be owned")
	}

	loaded, err := LoadKeySet(ks.Bytes(), true)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !ks.Equal(loaded) {
		t.Fatalf("round trip mismatch")
	}
}

func TestGenerateKeySetRejectsWrongIDCount(t *testing.T) {
	if _, err := GenerateKeySet(sampleIDs(1)[:31]); err == nil {
		t.Fatalf("expected an error for a short dynamic ID slice")
	}
}

func TestPublicView(t *testing.T) {
	ks, err := GenerateKeySet(sampleIDs(2))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	pub, err := ks.PublicView()
	if err != nil {
		t.Fatalf("public view failed: %v", err)
	}
	if pub.Owned {
		t.Fatalf("public view must not be owned")
	}
	if string(pub.AESKey) != string(ks.AESKey) {
		t.Fatalf("public view must keep the same AES key")
	}

	privPub, err := ks.PublicKey()
	if err != nil {
		t.Fatalf("public key derivation failed: %v", err)
	}
	viewPub, err := pub.PublicKey()
	if err != nil {
		t.Fatalf("public view key parse failed: %v", err)
	}
	if privPub.N.Cmp(viewPub.N) != 0 {
		t.Fatalf("public key modulus mismatch between owned and public view")
	}
}

func TestHasDynamicID(t *testing.T) {
	ks, err := GenerateKeySet(sampleIDs(3))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !ks.HasDynamicID(ks.DynamicIDs[5]) {
		t.Fatalf("expected a known dynamic ID to match")
	}
	if ks.HasDynamicID([]byte{0, 0, 0, 0, 0, 0, 0, 0}) {
		t.Fatalf("did not expect an unrelated ID to match")
	}
}

func TestLoadKeySetRejectsShortData(t *testing.T) {
	if _, err := LoadKeySet([]byte{1, 2, 3}, true); err != ErrMalformedKeySet {
		t.Fatalf("expected ErrMalformedKeySet, got %v", err)
	}
}
