package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mtlprog/hrscore/internal/handler/dto"
	"github.com/mtlprog/hrscore/internal/logger"
)

// HeaderOrgID carries the tenant of every API request.
const HeaderOrgID = "X-Org-ID"

// Tenant validates the X-Org-ID header and adds the organization to the
// request context. Requests without a valid UUID are rejected with 400.
func Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID := strings.TrimSpace(r.Header.Get(HeaderOrgID))
		if orgID == "" {
			writeError(w, http.StatusBadRequest, dto.CodeInvalidRequest, "missing "+HeaderOrgID+" header", false)
			return
		}

		parsed, err := uuid.Parse(orgID)
		if err != nil {
			writeError(w, http.StatusBadRequest, dto.CodeInvalidRequest, HeaderOrgID+" must be a valid UUID", false)
			return
		}

		ctx := logger.WithOrgID(r.Context(), parsed.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OrgIDFromContext retrieves the organization set by Tenant.
func OrgIDFromContext(ctx context.Context) (string, bool) {
	orgID := logger.OrgIDFromContext(ctx)
	return orgID, orgID != ""
}

func writeError(w http.ResponseWriter, status int, code, message string, retryable bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.NewErrorResponse(code, message, retryable))
}
