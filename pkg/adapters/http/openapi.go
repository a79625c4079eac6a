package http

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/aretw0/lemon/api"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

// loadContract parses and validates the embedded OpenAPI document.
func loadContract(ctx context.Context) (routers.Router, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(api.Spec)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}
	return gorillamux.NewRouter(doc)
}

// getOpenAPI handles GET /openapi.yaml.
func (s *Server) getOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/yaml")
	w.Write(api.Spec)
}

// validateRequests rejects API calls that do not match the contract.
// Multipart bodies are checked by the upload handler instead.
func (s *Server) validateRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, params, err := s.contract.FindRoute(r)
		switch {
		case errors.Is(err, routers.ErrMethodNotAllowed):
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		case err != nil:
			writeError(w, http.StatusNotFound, "not found")
			return
		}

		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes())
		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: params,
			Route:      route,
			Options: &openapi3filter.Options{
				ExcludeRequestBody: mediaType == "multipart/form-data",
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				writeError(w, http.StatusRequestEntityTooLarge, "request too large")
				return
			}
			s.Logger.Debug("Request rejected by contract", "path", r.URL.Path, "err", err)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// maxBodyBytes bounds API request bodies: room for base64 growth and
// multipart framing around one upload.
func (s *Server) maxBodyBytes() int64 {
	return s.MaxUploadBytes*2 + 64<<10
}
