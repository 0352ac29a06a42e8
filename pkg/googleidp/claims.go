package googleidp

// Claims is the verified claim set of an ID token.
type Claims map[string]interface{}

// Email returns the email claim, or "" when the provider omitted it. An
// empty email does not mean the user is anonymous; the subject claim is
// always present on a verified token.
func (c Claims) Email() string {
	email, _ := c["email"].(string)
	return email
}

// Subject returns the provider-stable user identifier.
func (c Claims) Subject() string {
	sub, _ := c["sub"].(string)
	return sub
}
