package relation

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

const inviteCodeLen = 8

// makeInviteCode returns a short opaque single-use code. 5 random bytes encode
// to exactly 8 base32 characters.
func makeInviteCode() string {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	code := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)
	return strings.ToLower(code[:inviteCodeLen])
}
