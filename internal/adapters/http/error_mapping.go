package httpadapter

import (
	"net/http"

	"github.com/auditstack/docuquery/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrQueryNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrMissingContent):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrClassification):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
