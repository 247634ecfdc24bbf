package models

import "regexp"

var e164 = regexp.MustCompile(`^\+[1-9][0-9]{1,14}$`)

// ValidPhone reports whether s is an E.164 phone number
func ValidPhone(s string) bool {
	return e164.MatchString(s)
}
