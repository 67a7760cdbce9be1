// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pagination_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/quill/pkg/pagination"
)

/*
TestFromRequest normalizes the page request.
*/
func TestFromRequest(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  pagination.Params
	}{
		{name: "defaults", query: "", want: pagination.Params{Page: 1, Limit: 20}},
		{name: "explicit", query: "?page=3&limit=5", want: pagination.Params{Page: 3, Limit: 5}},
		{name: "clamped", query: "?limit=1000", want: pagination.Params{Page: 1, Limit: pagination.MaxLimit}},
		{name: "garbage", query: "?page=abc&limit=-4", want: pagination.Params{Page: 1, Limit: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pagination.FromRequest(httptest.NewRequest(http.MethodGet, "/posts"+tt.query, nil))
			assert.Equal(t, tt.want, got)
		})
	}
}

/*
TestNewMeta computes the page count, the offset and the next-page flag.
*/
func TestNewMeta(t *testing.T) {
	params := pagination.Params{Page: 2, Limit: 2}
	assert.Equal(t, 2, params.Offset())

	meta := pagination.NewMeta(params, 5)
	assert.Equal(t, 3, meta.TotalPages)
	assert.True(t, meta.HasNext)

	last := pagination.NewMeta(pagination.Params{Page: 3, Limit: 2}, 5)
	assert.False(t, last.HasNext)

	empty := pagination.NewMeta(pagination.Params{Page: 1, Limit: 20}, 0)
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNext)
}
