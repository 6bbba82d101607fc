package seed

import (
	"regexp"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

var phpCompatibleHashPattern = regexp.MustCompile(`^\$2y\$10\$[./A-Za-z0-9]{22}[./A-Za-z0-9]{31}$`)

func TestHashPassword_producesPHPCompatibleFormat(t *testing.T) {
	hash, err := hashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hashPassword() error = %v", err)
	}
	if !phpCompatibleHashPattern.MatchString(hash) {
		t.Errorf("hash = %q, does not match expected $2y$10$... format", hash)
	}
}

func TestHashPassword_verifiesAgainstBcryptAfterPrefixRewrite(t *testing.T) {
	hash, err := hashPassword("hunter2")
	if err != nil {
		t.Fatalf("hashPassword() error = %v", err)
	}

	// bcrypt.CompareHashAndPassword accepts $2y$ as equivalent to $2a$/$2b$.
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")); err != nil {
		t.Errorf("CompareHashAndPassword() error = %v, want nil", err)
	}
}
