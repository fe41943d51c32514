package codec

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
)

// RSAKeyBits is fixed at 2048; there is no cryptographic agility in this
// design.
const RSAKeyBits = 2048

// GenerateRSAKey produces a fresh RSA-2048 private key.
func GenerateRSAKey() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, RSAKeyBits)
}

// MarshalRSAPrivateKey encodes priv in the canonical PKCS#1 DER form.
func MarshalRSAPrivateKey(priv *rsa.PrivateKey) []byte {
	return x509.MarshalPKCS1PrivateKey(priv)
}

// ParseRSAPrivateKey decodes a PKCS#1 DER private key.
func ParseRSAPrivateKey(der []byte) (*rsa.PrivateKey, error) {
	return x509.ParsePKCS1PrivateKey(der)
}

// MarshalRSAPublicKey encodes pub using
// SubjectPublicKeyInfo DER, a fixed-length public encoding peers can
// exchange directly.
func MarshalRSAPublicKey(pub *rsa.PublicKey) ([]byte, error) {
	return x509.MarshalPKIXPublicKey(pub)
}

// ParseRSAPublicKey decodes a SubjectPublicKeyInfo DER public key.
func ParseRSAPublicKey(der []byte) (*rsa.PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, errNotRSAPublicKey
	}
	return pub, nil
}

var errNotRSAPublicKey = rsaKeyTypeError{}

type rsaKeyTypeError struct{}

func (rsaKeyTypeError) Error() string { return "codec: parsed key is not an RSA public key" }

// OAEPEncrypt encrypts plaintext under pub using RSA-OAEP with SHA-256 as
// both the MGF1 hash and the label hash, and no label.
func OAEPEncrypt(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
}

// OAEPDecrypt reverses OAEPEncrypt.
func OAEPDecrypt(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	return rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, ciphertext, nil)
}
