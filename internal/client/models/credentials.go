package models

import "github.com/dmitrijs2005/appauth/internal/common"

// Credentials is transient form input. The password is kept as bytes so it
// can be wiped.
type Credentials struct {
	Name     string
	Email    string
	Password []byte
}

// Wipe zeroes the password and clears every field.
func (c *Credentials) Wipe() {
	common.WipeByteArray(c.Password)
	*c = Credentials{}
}

// Empty reports whether nothing is held.
func (c *Credentials) Empty() bool {
	return c.Name == "" && c.Email == "" && len(c.Password) == 0
}
