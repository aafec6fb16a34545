package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// PasswordVerifier compares passwords and spends comparable time when the account
// does not exist, so unknown emails and wrong passwords look the same to a caller.
type PasswordVerifier struct {
	decoy string
}

// NewPasswordVerifier precomputes a decoy hash at the given cost.
func NewPasswordVerifier(cost int) (*PasswordVerifier, error) {
	decoy, err := HashPassword("decoy-password-never-matches", cost)
	if err != nil {
		return nil, err
	}
	return &PasswordVerifier{decoy: decoy}, nil
}

// Verify reports whether plain matches hashed. An empty hash is checked against the decoy.
func (v *PasswordVerifier) Verify(hashed, plain string) bool {
	if hashed == "" {
		_ = ComparePassword(v.decoy, plain)
		return false
	}
	return ComparePassword(hashed, plain) == nil
}
