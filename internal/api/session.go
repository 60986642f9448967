package api

import (
	"net/http"
	"strings"
)

// Session carries the credential used for every backend call. It is passed
// to NewClient explicitly; nothing reads tokens from the environment here.
type Session struct {
	Token string
}

func NewSession(token string) Session {
	return Session{Token: strings.TrimSpace(token)}
}

// Valid reports whether the session has a token.
func (s Session) Valid() bool {
	return s.Token != ""
}

func (s Session) authorize(req *http.Request) {
	if s.Valid() {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
}
