package seed

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// passwordPlaceholders are the only two placeholders the hashing special
// case applies to — a placeholder merely containing "PASSWORD" elsewhere
// (e.g. {{PASSWORD_RESET_TOKEN}}) passes through as a normal string.
var passwordPlaceholders = map[string]bool{
	"{{PASSWORD}}":      true,
	"{{PASSWORD_HASH}}": true,
}

// hashPassword bcrypts plain at cost 10 and rewrites Go's "$2a$" prefix
// to "$2y$", matching the PHP-compatible format the original deployment
// tooling's password_utils.py produces.
func hashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), 10)
	if err != nil {
		return "", err
	}
	s := string(hash)
	if strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") {
		s = "$2y$" + s[4:]
	}
	return s, nil
}
