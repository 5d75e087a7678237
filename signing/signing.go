/*
Package signing verifies validator identity over the hub's canonical
challenge strings.

A validator proves ownership of its ed25519 key twice in the protocol:
once on signup, over a challenge binding the signup's correlation ID to the
claimed key, and once per submitted result, over a challenge binding the
work order's correlation ID. Binding the correlation ID into the signed text
prevents replaying a stale signature against a different request.
*/
package signing

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	ErrInvalidPubkeyLen = errors.New("pubkey has invalid length")
	ErrMalformedPubkey  = errors.New("pubkey is not valid base64")
)

// SignupChallenge is the canonical text a validator signs to register.
func SignupChallenge(callbackID, publicKey string) string {
	return fmt.Sprintf("Signed message for %s, %s", callbackID, publicKey)
}

// ReplyChallenge is the canonical text a validator signs over a result
// submission for the work order identified by callbackID.
func ReplyChallenge(callbackID string) string {
	return fmt.Sprintf("Replying to %s", callbackID)
}

// ParsePublicKey decodes a validator's wire identity (std base64 of the
// raw 32-byte ed25519 public key).
func ParsePublicKey(encoded string) (ed25519.PublicKey, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPubkey, err)
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, ErrInvalidPubkeyLen
	}
	return key, nil
}

// Verify reports whether signature is a valid ed25519 signature of the
// canonical UTF-8 encoding of challenge under key.
// It is a pure predicate: malformed input of any kind is a failed
// verification, never an error or a panic.
func Verify(challenge string, key ed25519.PublicKey, signature []byte) bool {
	if len(key) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(key, []byte(challenge), signature)
}
