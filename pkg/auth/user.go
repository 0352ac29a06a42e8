package auth

import "github.com/gmo-common/google-auth-go/pkg/googleidp"

// User is an authenticated identity. It is only ever built from claims
// the identity provider verified; it is recomputed per request and never
// persisted.
type User struct {
	email  string
	claims googleidp.Claims
}

func NewUser(claims googleidp.Claims) *User {
	return &User{
		email:  claims.Email(),
		claims: claims,
	}
}

// Email may be empty when the provider's claims omit it.
func (u *User) Email() string {
	return u.email
}

// Claims exposes the raw verified claim set.
func (u *User) Claims() googleidp.Claims {
	return u.claims
}
