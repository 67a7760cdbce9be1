// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package requestutil reads what handlers need from an HTTP request: a bounded
JSON body, positive integer path ids and the authenticated identity.
*/
package requestutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/ctxutil"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/platform/validate"
)

// MaxBodyBytes bounds every decoded request body. Post bodies are the largest payload.
const MaxBodyBytes = 1 << 20

/*
DecodeJSON decodes a single JSON value from the request body into target.

A body larger than [MaxBodyBytes], malformed JSON or trailing data after the
value all fail the same way.

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target any) error {
	decoder := json.NewDecoder(io.LimitReader(request.Body, MaxBodyBytes))

	if err := decoder.Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
ParamInt64 retrieves a named URL parameter and parses it as a positive integer id.

Returns:
  - int64: The parsed id
  - error: apperr.ValidationError if the parameter is missing or not a positive integer
*/
func ParamInt64(request *http.Request, name string) (int64, error) {
	raw := chi.URLParam(request, name)

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, apperr.ValidationError("Invalid path parameter", apperr.FieldError{
			Field:   name,
			Message: "must be a positive integer",
		})
	}

	return value, nil
}

// RequiredIdentity returns the authenticated identity or 401.
func RequiredIdentity(request *http.Request) (*sec.Identity, error) {
	identity := ctxutil.GetIdentity(request.Context())
	if identity == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return identity, nil
}

// RequiredUserID returns the id of the authenticated user or 401.
func RequiredUserID(request *http.Request) (int64, error) {
	userID, ok := ctxutil.UserID(request.Context())
	if !ok {
		return 0, apperr.Unauthorized("Authentication required")
	}
	return userID, nil
}
