package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/onnwee/metro-map/backend/internal/apierr"
)

// MaxRequestBodySize bounds request bodies. The largest legitimate body is
// an explicit site list at the site cap.
const MaxRequestBodySize = 1 << 20

// ValidateRequestBody limits the body of POST, PUT and PATCH requests.
func ValidateRequestBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
		}
		next.ServeHTTP(w, r)
	})
}

// DecodeJSON decodes a single JSON object from the request body into v,
// rejecting unknown fields and trailing data. An empty body leaves v
// untouched when allowEmpty is set.
func DecodeJSON(r *http.Request, v any, allowEmpty bool) *apierr.Error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return apierr.ValidationInvalidFormat("Content-Type must be application/json")
		}
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF) && allowEmpty:
			return nil
		case errors.Is(err, io.EOF):
			return apierr.ValidationInvalidFormat("Request body is required")
		case errors.As(err, &maxErr):
			return apierr.ValidationInvalidFormat("Request body too large")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			return apierr.ValidationInvalidValue(field, "Unknown field: "+field)
		default:
			return apierr.ValidationInvalidJSON()
		}
	}
	if dec.More() {
		return apierr.ValidationInvalidJSON()
	}
	return nil
}

// SanitizeName trims, lowercases and bounds an enum-like path or body
// value such as a district type or layer name.
func SanitizeName(input string, maxLength int) string {
	input = strings.ToLower(strings.TrimSpace(input))
	if !utf8.ValidString(input) {
		input = strings.ToValidUTF8(input, "")
	}
	if len(input) > maxLength {
		input = input[:maxLength]
	}
	return input
}
