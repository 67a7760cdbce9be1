// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package respond writes the JSON envelopes every Quill endpoint answers with:
// {"data": ...} on success, {"data": [...], "meta": {...}} for pages and
// {"error", "code", "details", "request_id"} on failure.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/ctxutil"
	"github.com/taibuivan/quill/pkg/pagination"
)

// SuccessEnvelope is the JSON envelope for successful single-resource responses.
type SuccessEnvelope struct {
	Data interface{} `json:"data"`
}

// PaginatedEnvelope is the JSON envelope for paginated list responses.
type PaginatedEnvelope struct {
	Data interface{}     `json:"data"`
	Meta pagination.Meta `json:"meta"`
}

// ErrorEnvelope is the JSON envelope for error responses.
//
// RequestID echoes X-Request-ID so a client report can be matched to server logs.
type ErrorEnvelope struct {
	Error     string              `json:"error"`
	Code      string              `json:"code"`
	Details   []apperr.FieldError `json:"details,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload interface{}) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes a 200 OK response with data wrapped in the standard success envelope.
func OK(writer http.ResponseWriter, data interface{}) {
	JSON(writer, http.StatusOK, SuccessEnvelope{Data: data})
}

// Created writes a 201 Created response with data wrapped in the standard success envelope.
func Created(writer http.ResponseWriter, data interface{}) {
	JSON(writer, http.StatusCreated, SuccessEnvelope{Data: data})
}

// Paginated writes a 200 OK response with paginated data and a metadata block.
func Paginated(writer http.ResponseWriter, data interface{}, metadata pagination.Meta) {
	JSON(writer, http.StatusOK, PaginatedEnvelope{Data: data, Meta: metadata})
}

// NoContent writes a 204 No Content response.
func NoContent(writer http.ResponseWriter) {
	writer.WriteHeader(http.StatusNoContent)
}

// Error converts any Go error into a standardized JSON API error response.
//
// Errors that are not an [apperr.AppError] become INTERNAL_ERROR, their text
// stays in the logs. A 401 also carries a WWW-Authenticate challenge.
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	requestID := ctxutil.GetRequestID(request.Context())

	appError := apperr.As(err)
	if appError == nil {
		appError = apperr.Internal(err)
	}

	if appError.HTTPStatus >= http.StatusInternalServerError {
		ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "api_server_error",
			slog.String("code", appError.Code),
			slog.String("request_id", requestID),
			slog.Any("cause", appError.Cause),
		)
	}

	if appError.HTTPStatus == http.StatusUnauthorized {
		writer.Header().Set(HeaderWWWAuthenticate, bearerChallenge(appError.Code))
	}

	JSON(writer, appError.HTTPStatus, ErrorEnvelope{
		Error:     appError.Message,
		Code:      appError.Code,
		Details:   appError.Details,
		RequestID: requestID,
	})
}

// HeaderWWWAuthenticate is the challenge header sent with every 401.
const HeaderWWWAuthenticate = "WWW-Authenticate"

// bearerChallenge renders an RFC 6750 challenge. Token failures are reported
// as invalid_token, every other 401 as a bare challenge.
func bearerChallenge(code string) string {
	switch code {
	case "TOKEN_EXPIRED", "TOKEN_MALFORMED":
		return `Bearer realm="quill", error="invalid_token"`
	default:
		return `Bearer realm="quill"`
	}
}
