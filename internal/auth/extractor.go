// Package auth resolves the acting user for each request. Identity is the
// only access-control input: everything past this boundary authorizes
// through graph reachability from the user node.
package auth

import (
	"net/http"

	"github.com/pkg/errors"
)

// UserHeader carries the caller identity set by the fronting proxy.
const UserHeader = "X-User-Id"

// ErrMissingUser is returned when a request carries no identity.
var ErrMissingUser = errors.New("missing " + UserHeader + " header")

// UserExtractor resolves the acting user id from a request.
type UserExtractor interface {
	UserID(r *http.Request) (string, error)
}

// HeaderExtractor trusts the identity header as-is. The service is meant to
// sit behind a proxy that authenticates and sets it.
type HeaderExtractor struct{}

func NewHeaderExtractor() *HeaderExtractor { return &HeaderExtractor{} }

func (e *HeaderExtractor) UserID(r *http.Request) (string, error) {
	uid := r.Header.Get(UserHeader)
	if uid == "" {
		return "", ErrMissingUser
	}
	return uid, nil
}

// StaticExtractor pins every request to one user. Used in tests and
// single-user development setups.
type StaticExtractor struct{ ID string }

func (e *StaticExtractor) UserID(*http.Request) (string, error) {
	if e.ID == "" {
		return "", ErrMissingUser
	}
	return e.ID, nil
}
