// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quill/internal/content"
	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/validate"
	"github.com/taibuivan/quill/internal/users/auth"
)

// fieldsOf returns the failing field names in the order they were recorded.
func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	require.Error(t, err)

	appErr := apperr.As(err)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)

	fields := make([]string, 0, len(appErr.Details))
	for _, detail := range appErr.Details {
		fields = append(fields, detail.Field)
	}
	return fields
}

/*
TestValidator_LoginEmail accepts provider addresses and rejects unusable ones.
*/
func TestValidator_LoginEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{email: "ada@example.com", valid: true},
		{email: auth.NormalizeEmail("  ADA@Example.com "), valid: true},
		{email: auth.SentinelEmail, valid: true},
		{email: "", valid: false},
		{email: "not-an-address", valid: false},
		{email: "ada@", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := (&validate.Validator{}).Email(auth.FieldEmail, tt.email).Err()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, []string{auth.FieldEmail}, fieldsOf(t, err))
		})
	}
}

/*
TestValidator_PostFields checks title and content limits as counted in characters.
*/
func TestValidator_PostFields(t *testing.T) {
	longestTitle := strings.Repeat("é", content.MaxTitleLength)

	tests := []struct {
		name       string
		title      string
		body       string
		wantFields []string
	}{
		{name: "valid", title: "First post", body: "Hello"},
		{name: "multibyte_title_at_limit", title: longestTitle, body: "Hello"},
		{name: "title_over_limit", title: longestTitle + "é", body: "Hello", wantFields: []string{content.FieldTitle}},
		{name: "blank_title", title: "   ", body: "Hello", wantFields: []string{content.FieldTitle}},
		{name: "both_missing", wantFields: []string{content.FieldTitle, content.FieldContent}},
		{
			name:       "content_over_limit",
			title:      "First post",
			body:       strings.Repeat("a", content.MaxContentLength+1),
			wantFields: []string{content.FieldContent},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := &validate.Validator{}
			validator.Required(content.FieldTitle, tt.title).MaxLen(content.FieldTitle, tt.title, content.MaxTitleLength)
			validator.Required(content.FieldContent, tt.body).MaxLen(content.FieldContent, tt.body, content.MaxContentLength)

			if tt.wantFields == nil {
				assert.False(t, validator.HasErrors())
				assert.NoError(t, validator.Err())
				return
			}
			assert.True(t, validator.HasErrors())
			assert.Equal(t, tt.wantFields, fieldsOf(t, validator.Err()))
		})
	}
}

/*
TestValidator_CommentTarget rejects non-positive post ids alongside body errors.
*/
func TestValidator_CommentTarget(t *testing.T) {
	for _, postID := range []int64{0, -3} {
		err := (&validate.Validator{}).
			Positive(content.FieldPostID, postID).
			Required(content.FieldContent, "").
			Err()
		assert.Equal(t, []string{content.FieldPostID, content.FieldContent}, fieldsOf(t, err))
	}

	assert.NoError(t, (&validate.Validator{}).Positive(content.FieldPostID, 42).Err())
}

/*
TestErrInvalidJSON maps undecodable bodies to a 400 validation error.
*/
func TestErrInvalidJSON(t *testing.T) {
	assert.Equal(t, "VALIDATION_ERROR", validate.ErrInvalidJSON.Code)
	assert.Equal(t, http.StatusBadRequest, validate.ErrInvalidJSON.HTTPStatus)
}
