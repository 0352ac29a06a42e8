package googleidp

import (
	"fmt"
	"net/url"
)

// ParameterOption appends or overrides query/form parameters on outgoing
// authorization and token requests.
type ParameterOption func(params url.Values)

// WithParameter sets an arbitrary additional parameter, e.g. Google's
// access_type=offline or prompt=consent.
func WithParameter(name, value string) ParameterOption {
	return func(params url.Values) {
		params.Set(name, value)
	}
}

// TokenResponse is the token endpoint payload for both the user
// authorization-code exchange and the service-account assertion grant.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
}

// Error is the OAuth2 error envelope returned by the provider.
type Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}
