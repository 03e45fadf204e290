package domain

// Password length limits. bcrypt ignores input past 72 bytes.
const (
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

// CheckPassword applies the length rule shared by registration and password reset.
func CheckPassword(password string) error {
	switch {
	case len(password) < MinPasswordLen:
		return BadRequest("Password must be at least 8 characters.")
	case len(password) > MaxPasswordLen:
		return BadRequest("Password must be at most 72 characters.")
	}
	return nil
}
