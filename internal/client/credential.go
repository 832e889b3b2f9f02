package client

import (
	"net/http"
	"net/url"
)

// Credential scopes a call to one of the two chat roles. Admin calls carry a
// bearer token header; customer calls carry the customer's email as a query
// parameter, since customers have no session token. A credential is never
// both at once.
type Credential struct {
	bearer string
	email  string
}

// Anonymous is the zero credential for public endpoints.
func Anonymous() Credential {
	return Credential{}
}

// Bearer builds an admin credential from a session token.
func Bearer(token string) Credential {
	return Credential{bearer: token}
}

// CustomerEmail builds a customer credential.
func CustomerEmail(email string) Credential {
	return Credential{email: email}
}

// IsAdmin reports whether this credential carries a bearer token.
func (c Credential) IsAdmin() bool {
	return c.bearer != ""
}

func (c Credential) applyHeader(req *http.Request) {
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
}

func (c Credential) applyQuery(q url.Values) {
	if c.email != "" {
		q.Set("email", c.email)
	}
}

// streamQuery sets the credential for the SSE endpoint, which cannot carry
// headers and therefore takes the token as a query parameter too.
func (c Credential) streamQuery(q url.Values) {
	if c.email != "" {
		q.Set("email", c.email)
	}
	if c.bearer != "" {
		q.Set("token", c.bearer)
	}
}
