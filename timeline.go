package main

import (
	"net/http"
	"strconv"
)

// scope selects which subset of messages a timeline view draws from.
type scope int

const (
	// scopePublic: all unflagged messages, any author.
	scopePublic scope = iota
	// scopeHome: unflagged messages by the viewer or anyone the viewer follows.
	scopeHome
	// scopeProfile: unflagged messages by exactly one user.
	scopeProfile
)

// pageParam reads the ?p= query parameter. Malformed or negative
// values fall back to the first page.
func pageParam(r *http.Request) int {
	p, err := strconv.Atoi(r.URL.Query().Get("p"))
	if err != nil || p < 0 {
		return 0
	}
	return p
}
