package auth

import (
	"strings"

	"github.com/dmitrijs2005/gophstat/internal/common"
)

// BearerToken extracts the credentials from an Authorization header value.
// A missing header or a scheme other than Bearer (any case) yields
// common.ErrNotAuthenticated. "Bearer" with no value yields an empty
// token and no error; the codec rejects it later.
func BearerToken(authorization string) (string, error) {
	scheme, param, _ := strings.Cut(authorization, " ")
	if authorization == "" || !strings.EqualFold(scheme, "bearer") {
		return "", common.ErrNotAuthenticated
	}
	return strings.TrimSpace(param), nil
}
