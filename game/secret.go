package game

import (
	"crypto/subtle"
	"strings"

	"github.com/alexedwards/argon2id"
)

// SecretVerifier checks candidate admin passphrases against the configured
// one. The configured value is either the plaintext itself or an argon2id
// hash in PHC format, so deployments can keep the plaintext out of their
// environment entirely.
type SecretVerifier struct {
	configured string
	hashed     bool
}

func NewSecretVerifier(configured string) SecretVerifier {
	return SecretVerifier{
		configured: configured,
		hashed:     strings.HasPrefix(configured, "$argon2id$"),
	}
}

// Verify reports whether candidate matches. The plaintext comparison is
// constant time.
func (v SecretVerifier) Verify(candidate string) bool {
	if v.hashed {
		ok, err := argon2id.ComparePasswordAndHash(candidate, v.configured)
		return err == nil && ok
	}
	return subtle.ConstantTimeCompare([]byte(v.configured), []byte(candidate)) == 1
}
