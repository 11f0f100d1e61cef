package errors

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
)

// HTTPErrorBody is the JSON error body the gateway returns, shaped like an
// OAuth2 error response so OAuth-aware clients parse it natively.
type HTTPErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// RenderHTTP writes err as a JSON error response with the status code its
// error code maps to. Non-gateway errors come out as a generic server_error
// so internals never leak into response bodies.
func RenderHTTP(w http.ResponseWriter, r *http.Request, err error) {
	code := GetCode(err)

	body := HTTPErrorBody{
		Error:            MapErrorCodeToOAuthError(code),
		ErrorDescription: publicMessage(err, code),
	}

	render.Status(r, MapErrorCodeToHTTPStatus(code))
	render.JSON(w, r, body)
}

// publicMessage keeps internal failure detail out of responses.
func publicMessage(err error, code ErrorCode) string {
	switch code {
	case ErrCodeInternal, ErrCodeDirectoryLookupFailed:
		return "internal server error"
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "request failed"
}
