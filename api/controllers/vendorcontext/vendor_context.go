package vendorcontext

import (
	"net/http"

	"github.com/angelmondragon/vendorportal/api/middleware"
	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
)

// RequireVendorID returns the vendor the session token belongs to. Records kept by
// the portal itself are scoped by this id, so a token without one is rejected.
func RequireVendorID(r *http.Request) (string, error) {
	vendorID := middleware.VendorIDFromContext(r.Context())
	if vendorID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "session does not identify a vendor")
	}
	return vendorID, nil
}
