package decode

import (
	"crypto/ed25519"
	"errors"
)

// SignatureSize is the length of the trailing signature of a signed file.
const SignatureSize = ed25519.SignatureSize

// Signature errors.
var (
	// ErrUnsigned is returned when data is too short to carry a signature.
	ErrUnsigned = errors.New("decode: data is not signed")

	// ErrBadSignature is returned when a signature does not verify.
	ErrBadSignature = errors.New("decode: signature verification failed")

	// ErrBadPublicKey is returned when no public key is configured.
	ErrBadPublicKey = errors.New("decode: missing public key")
)

// Verifier checks a detached signature.
type Verifier interface {
	Verify(message, signature, publicKey []byte) bool
}

// Ed25519Verifier verifies ed25519 signatures.
type Ed25519Verifier struct{}

// Verify implements Verifier. A key of the wrong size never verifies.
func (Ed25519Verifier) Verify(message, signature, publicKey []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(publicKey, message, signature)
}

// SplitSigned separates a signed file into body and signature.
func SplitSigned(data []byte) (body, signature []byte, err error) {
	if len(data) <= SignatureSize {
		return nil, nil, ErrUnsigned
	}
	n := len(data) - SignatureSize
	return data[:n], data[n:], nil
}

// Sign appends an ed25519 signature over body.
func Sign(body []byte, key ed25519.PrivateKey) []byte {
	out := make([]byte, 0, len(body)+SignatureSize)
	out = append(out, body...)
	return append(out, ed25519.Sign(key, body)...)
}

// DecodeVerifiedModel verifies the trailing signature and decodes the body.
// The key format belongs to v; only an empty key is rejected here.
func DecodeVerifiedModel(data []byte, v Verifier, publicKey []byte) (*ParsedModel, error) {
	if len(publicKey) == 0 {
		return nil, ErrBadPublicKey
	}
	body, sig, err := SplitSigned(data)
	if err != nil {
		return nil, err
	}
	if !v.Verify(body, sig, publicKey) {
		return nil, ErrBadSignature
	}
	return DecodeModel(body)
}
