package httpclient

import "net/http"

// AuthConfig is the credential header sent with each request. A non-nil
// AuthConfig with an empty Header sends nothing, which lets a request opt
// out of the adapter's default credentials.
type AuthConfig struct {
	Header string
	Value  string
}

// BearerAuth sends "Authorization: Bearer <token>".
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Header: "Authorization", Value: "Bearer " + token}
}

// APIKeyAuthHeader sends the key in the named header, "X-API-Key" when
// header is empty.
func APIKeyAuthHeader(key, header string) *AuthConfig {
	if header == "" {
		header = "X-API-Key"
	}
	return &AuthConfig{Header: header, Value: key}
}

// RawAuth sends the token as the Authorization header with no scheme, as
// the Discord user API expects.
func RawAuth(token string) *AuthConfig {
	return &AuthConfig{Header: "Authorization", Value: token}
}

// NoAuth suppresses the adapter's default credentials for one request.
func NoAuth() *AuthConfig { return &AuthConfig{} }

func (a *AuthConfig) apply(req *http.Request) {
	if a == nil || a.Header == "" {
		return
	}
	req.Header.Set(a.Header, a.Value)
}
