package security

import "golang.org/x/crypto/bcrypt"

// bcrypt rejects inputs longer than 72 bytes; truncate instead of erroring
// so over-long passphrases still authenticate consistently.
const maxPasswordLen = 72

// HashPassword returns a bcrypt hash suitable for storage.
func HashPassword(plain string) (string, error) {
	if len(plain) > maxPasswordLen {
		plain = plain[:maxPasswordLen]
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword reports whether plain matches the stored hash.
func CheckPassword(plain, hashed string) bool {
	if len(plain) > maxPasswordLen {
		plain = plain[:maxPasswordLen]
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
