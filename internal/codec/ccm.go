package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"errors"
)

// CCMNonceSize and CCMTagSize are the fixed parameters for every AES-CCM
// use in SteganoChat: an 8-byte nonce and a 16-byte authentication tag.
const (
	CCMNonceSize = 8
	CCMTagSize   = 16

	ccmLengthFieldSize = 15 - CCMNonceSize // "q" in RFC 3610/NIST SP 800-38C terms
)

// ErrCCMAuthFailed is returned by OpenCCM when the authentication tag does
// not match the supplied ciphertext.
var ErrCCMAuthFailed = errors.New("codec: CCM authentication failed")

// SealCCM encrypts plaintext with AES-CCM under key, using nonce (exactly
// CCMNonceSize bytes) and no associated data. There is no cryptographic
// agility in this design: tag length and nonce length are always the
// constants above.
func SealCCM(key, nonce, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != CCMNonceSize {
		return nil, errors.New("codec: CCM nonce must be 8 bytes")
	}

	tag := ccmMAC(block, nonce, plaintext)
	s0 := ccmCounterBlock(block, nonce, 0)
	for i := range tag {
		tag[i] ^= s0[i]
	}

	out := make([]byte, len(plaintext)+CCMTagSize)
	ccmKeystreamXOR(block, nonce, plaintext, out)
	copy(out[len(plaintext):], tag)
	return out, nil
}

// OpenCCM reverses SealCCM, returning ErrCCMAuthFailed if the trailing tag
// does not authenticate the leading ciphertext.
func OpenCCM(key, nonce, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != CCMNonceSize {
		return nil, errors.New("codec: CCM nonce must be 8 bytes")
	}
	if len(ciphertext) < CCMTagSize {
		return nil, ErrCCMAuthFailed
	}

	ct := ciphertext[:len(ciphertext)-CCMTagSize]
	gotTag := ciphertext[len(ciphertext)-CCMTagSize:]

	plaintext := make([]byte, len(ct))
	ccmKeystreamXOR(block, nonce, ct, plaintext)

	tag := ccmMAC(block, nonce, plaintext)
	s0 := ccmCounterBlock(block, nonce, 0)
	for i := range tag {
		tag[i] ^= s0[i]
	}

	if subtle.ConstantTimeCompare(tag, gotTag) != 1 {
		return nil, ErrCCMAuthFailed
	}
	return plaintext, nil
}

// ccmMAC computes the raw (unmasked) CBC-MAC block over B0 and the padded
// message blocks. Associated data is always empty in this design.
func ccmMAC(block cipher.Block, nonce, message []byte) []byte {
	b0 := make([]byte, aes.BlockSize)
	b0[0] = byte((((CCMTagSize - 2) / 2) << 3) | (ccmLengthFieldSize - 1))
	copy(b0[1:1+CCMNonceSize], nonce)
	putBigEndianLen(b0[1+CCMNonceSize:], uint64(len(message)))

	mac := make([]byte, aes.BlockSize)
	block.Encrypt(mac, b0)

	chunk := make([]byte, aes.BlockSize)
	for len(message) > 0 {
		n := copy(chunk, message)
		for i := n; i < aes.BlockSize; i++ {
			chunk[i] = 0
		}
		for i := 0; i < aes.BlockSize; i++ {
			chunk[i] ^= mac[i]
		}
		block.Encrypt(mac, chunk)
		message = message[n:]
	}
	return mac
}

// ccmCounterBlock builds and encrypts counter block A_i.
func ccmCounterBlock(block cipher.Block, nonce []byte, counter uint64) []byte {
	a := make([]byte, aes.BlockSize)
	a[0] = byte(ccmLengthFieldSize - 1)
	copy(a[1:1+CCMNonceSize], nonce)
	putBigEndianLen(a[1+CCMNonceSize:], counter)

	out := make([]byte, aes.BlockSize)
	block.Encrypt(out, a)
	return out
}

// ccmKeystreamXOR XORs in with the CCM counter-mode keystream (counters
// starting at 1, as 0 is reserved for masking the MAC) and writes to out.
func ccmKeystreamXOR(block cipher.Block, nonce, in, out []byte) {
	var counter uint64 = 1
	for len(in) > 0 {
		ks := ccmCounterBlock(block, nonce, counter)
		blockLen := len(in)
		if blockLen > aes.BlockSize {
			blockLen = aes.BlockSize
		}
		n := copy(out, in[:blockLen])
		for i := 0; i < n; i++ {
			out[i] = in[i] ^ ks[i]
		}
		in = in[n:]
		out = out[n:]
		counter++
	}
}

func putBigEndianLen(dst []byte, v uint64) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}
