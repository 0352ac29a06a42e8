// Package sessiontoken encodes a flat key/value session record into a
// compact signed token, suitable for storage in a browser cookie. The
// record entries become the private claims of a JWT signed with a shared
// secret; anything that fails verification decodes to an error, never to
// a partial record.
package sessiontoken

import (
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ErrDecode wraps every decode failure: empty input, malformed token,
// signature mismatch or expired claims. Callers that want to degrade to
// an anonymous session match on this error.
var ErrDecode = errors.New("unable to decode session token")

// Record is the session payload. Keys must not collide with registered
// JWT claim names; values are opaque strings.
type Record map[string]string

type Codec struct {
	secret []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Encode serializes the full record into a signed token.
func (c *Codec) Encode(record Record) (string, error) {
	token := jwt.New()
	for field, value := range record {
		if err := token.Set(field, value); err != nil {
			return "", fmt.Errorf("unable to set claim %q: %w", field, err)
		}
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, c.secret))
	if err != nil {
		return "", fmt.Errorf("unable to sign session token: %w", err)
	}

	return string(signed), nil
}

// Decode verifies the token signature and claims and returns the record.
// All failure modes collapse into ErrDecode.
func (c *Codec) Decode(serialized string) (Record, error) {
	if serialized == "" {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}

	token, err := jwt.ParseString(serialized,
		jwt.WithKey(jwa.HS256, c.secret),
		jwt.WithValidate(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	record := Record{}
	for field, value := range token.PrivateClaims() {
		str, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: claim %q is not a string", ErrDecode, field)
		}
		record[field] = str
	}

	return record, nil
}
