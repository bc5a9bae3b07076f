package httpadapter

import (
	"context"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/auditstack/docuquery/api"
)

// newOpenAPIHandler validates the embedded OpenAPI document once at startup
// and serves its JSON form. An invalid document is a build defect, not a
// runtime condition, so construction fails hard.
func newOpenAPIHandler() (http.Handler, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(api.Spec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}

	payload, err := doc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal openapi document: %w", err)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
	}), nil
}
