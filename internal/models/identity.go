package models

import "strings"

// Address identifies an account: an airline, an oracle, a passenger or the owner
type Address string

// NormalizeAddress trims whitespace and lowercases hex-like addresses so that
// "0xABC" and "0xabc" name the same account
func NormalizeAddress(s string) Address {
	return Address(strings.ToLower(strings.TrimSpace(s)))
}

// IsZero reports whether the address is empty
func (a Address) IsZero() bool {
	return a == ""
}

func (a Address) String() string {
	return string(a)
}
