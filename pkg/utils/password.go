package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/argon2"
	"golang.org/x/text/unicode/norm"
)

const (
	saltLength = 16
	keyLength  = 32
)

var ErrInvalidHash = errors.New("invalid hash format")

// argonParams are encoded into every hash so verification does not depend
// on the current defaults.
type argonParams struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

var (
	passwordParams = argonParams{memory: 64 * 1024, time: 3, parallelism: 2}
	// PINs are hashed on the device, so the cost is lower.
	pinParams = argonParams{memory: 19 * 1024, time: 2, parallelism: 1}
)

// HashPassword hashes a password using Argon2id
func HashPassword(password string) (string, error) {
	return hash(password, passwordParams)
}

// VerifyPassword verifies a password against a hash
func VerifyPassword(password, hashedPassword string) (bool, error) {
	return verify(password, hashedPassword)
}

// HashPIN hashes a device PIN using Argon2id.
func HashPIN(pin string) (string, error) {
	return hash(pin, pinParams)
}

func VerifyPIN(pin, hashedPIN string) (bool, error) {
	return verify(pin, hashedPIN)
}

// NormalizeAnswer folds a security-question answer so that width, case and
// surrounding space do not matter: "ＴＯＫＹＯ " and "tokyo" compare equal.
func NormalizeAnswer(answer string) string {
	answer = norm.NFKC.String(answer)
	answer = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, answer)
	return answer
}

func hash(secret string, p argonParams) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(secret), salt, p.time, p.memory, p.parallelism, keyLength)

	// Format: $argon2id$v=19$m=65536,t=3,p=2$salt$hash
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

func verify(secret, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrInvalidHash
	}

	var p argonParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.parallelism); err != nil {
		return false, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, err
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, err
	}

	got := argon2.IDKey([]byte(secret), salt, p.time, p.memory, p.parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
