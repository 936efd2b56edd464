package api

import (
	"net/http"

	"github.com/phrazzld/tactics-api/internal/api/shared"
	"github.com/phrazzld/tactics-api/internal/domain"
)

// getUsernameFromContext extracts the authenticated username from the
// request context, where the authentication middleware placed it. If it
// is absent an error response is written and false returned.
func getUsernameFromContext(w http.ResponseWriter, r *http.Request) (string, bool) {
	username, ok := shared.GetUsername(r.Context())
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "User identity not found in request")
		return "", false
	}
	return username, true
}
