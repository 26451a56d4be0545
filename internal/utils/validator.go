package utils

import "regexp"

// RFC 5321 limit on a forward path
const maxEmailLength = 254

var emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9\-]+(\.[a-z0-9\-]+)*\.[a-z]{2,}$`)

// ValidateEmail checks an address already normalized with domain.NormalizeEmail
func ValidateEmail(email string) bool {
	return len(email) <= maxEmailLength && emailPattern.MatchString(email)
}
