package transport

import (
	"net/http"

	"golang.org/x/oauth2/clientcredentials"
)

// AuthStrategy applies one outbound authentication scheme to a request,
// the §4.2 "auth strategies" contract. Implementations must never let
// credentials leak into logs or error messages.
type AuthStrategy interface {
	Apply(req *http.Request) error
}

// ApiKeyAuth sets an API key in a configurable header, mirroring the
// teacher's a2a.Client "apiKey" auth branch.
type ApiKeyAuth struct {
	Header string // defaults to "X-API-Key"
	Key    string
}

func (a ApiKeyAuth) Apply(req *http.Request) error {
	header := a.Header
	if header == "" {
		header = "X-API-Key"
	}
	req.Header.Set(header, a.Key)
	return nil
}

// BearerAuth sets a static bearer token in the Authorization header.
type BearerAuth struct {
	Token string
}

func (a BearerAuth) Apply(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+a.Token)
	return nil
}

// OAuth2Auth acquires (and caches/refreshes) an access token via the
// OAuth2 client-credentials flow and sets it as a bearer token. This is
// the one outbound-auth concern the teacher's own v2/auth package does
// not cover (it only verifies inbound JWTs), so it is built on
// golang.org/x/oauth2/clientcredentials, the standard ecosystem library
// for this flow.
type OAuth2Auth struct {
	Config *clientcredentials.Config
}

func (a OAuth2Auth) Apply(req *http.Request) error {
	token, err := a.Config.Token(req.Context())
	if err != nil {
		return err
	}
	token.SetAuthHeader(req)
	return nil
}

// NewOAuth2Auth builds an OAuth2Auth for the client-credentials flow
// against tokenURL with the given client id/secret and optional scopes.
func NewOAuth2Auth(tokenURL, clientID, clientSecret string, scopes ...string) OAuth2Auth {
	return OAuth2Auth{Config: &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
	}}
}
