package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/transport"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

// OpenAPIValidator checks request bodies and parameters against the API
// document before handlers run. Security schemes are enforced by
// Authenticate, not here.
type OpenAPIValidator struct {
	router routers.Router
	base   *transport.BaseHandler
}

// LoadOpenAPIValidator parses and validates the document at path.
func LoadOpenAPIValidator(ctx context.Context, path string, base *transport.BaseHandler) (*OpenAPIValidator, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	return NewOpenAPIValidator(ctx, doc, base)
}

func NewOpenAPIValidator(ctx context.Context, doc *openapi3.T, base *transport.BaseHandler) (*OpenAPIValidator, error) {
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	// Match on path only so the router works behind any host.
	doc.Servers = nil
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return &OpenAPIValidator{router: router, base: base}, nil
}

// Middleware validates documented operations and passes everything else
// through untouched.
func (v *OpenAPIValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := v.router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				MultiError:         true,
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			v.base.HandleServiceError(w, r, requestValidationError(err))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestValidationError(err error) *internal.AppError {
	var details []internal.ValidationError

	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		for _, e := range multi {
			details = append(details, describeValidation(e))
		}
	} else {
		details = append(details, describeValidation(err))
	}

	return internal.NewValidationError("Request does not match the API contract", internal.ErrCodeValidationFailed).
		WithDetails(internal.ValidationErrors{Errors: details}).
		WithCause(err)
}

func describeValidation(err error) internal.ValidationError {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		field := "body"
		if reqErr.Parameter != nil {
			field = reqErr.Parameter.Name
		}
		msg := reqErr.Reason
		if msg == "" && reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return internal.ValidationError{Field: field, Message: msg, Code: string(internal.ErrCodeValidationFailed)}
	}
	return internal.ValidationError{Field: "request", Message: err.Error(), Code: string(internal.ErrCodeValidationFailed)}
}
