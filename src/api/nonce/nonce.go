// Package nonce issues and consumes the single-use sign-in challenges.
// Consumption must be atomic per address: of two racing sign-ins only one
// may consume, the other fails.
package nonce

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TTL is how long a challenge stays valid once issued.
const TTL = 5 * time.Minute

var ErrNotFound = errors.New("nonce: not found or expired")

type Record struct {
	Value     string
	ExpiresAt time.Time
}

// Store keeps at most one live challenge per address. Issue overwrites any
// prior challenge for the address; Consume deletes exactly once.
type Store interface {
	Issue(ctx context.Context, address string) (Record, error)
	Get(ctx context.Context, address string) (Record, error)
	Consume(ctx context.Context, address string) error
}

// randomHex returns a 0x-prefixed 32-byte random token.
func randomHex() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(b), nil
}

// ChallengeMessage builds the human-readable text the wallet signs. The sign-in
// flow later checks that the submitted message contains the nonce verbatim.
func ChallengeMessage(address, value string, issuedAt time.Time) string {
	return fmt.Sprintf(
		"Sign this message to authenticate with Dappboard.\n\nAddress: %s\nNonce: %s\nIssued At: %s",
		strings.ToLower(address), value, issuedAt.UTC().Format(time.RFC3339),
	)
}
