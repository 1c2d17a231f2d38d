package password

import (
	"errors"
	"unicode"
)

// MinLength is the shortest accepted password, in bytes.
const MinLength = 8

// ErrWeakPassword is returned by [CheckPolicy].
var ErrWeakPassword = errors.New("password must be at least 8 characters and contain upper case, lower case and digits")

// CheckPolicy rejects passwords shorter than [MinLength] or missing an upper
// case letter, a lower case letter or a digit.
func CheckPolicy(pw string) error {
	if len(pw) < MinLength {
		return ErrWeakPassword
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return ErrWeakPassword
	}
	return nil
}
