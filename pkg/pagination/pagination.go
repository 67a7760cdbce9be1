// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination parses page requests for list endpoints and builds the
// metadata returned next to each page.
package pagination

import (
	"net/http"
	"strconv"
)

const (
	// DefaultLimit is the page size when the client names none.
	DefaultLimit = 20
	// MaxLimit caps the page size. Larger requests are clamped to it.
	MaxLimit = 100
	// DefaultPage is the first page (1-indexed).
	DefaultPage = 1
)

// Query parameter names.
const (
	ParamPage  = "page"
	ParamLimit = "limit"
)

// Params is a normalized page request. Page >= 1 and 1 <= Limit <= [MaxLimit].
type Params struct {
	Page  int
	Limit int
}

// Offset returns the number of rows preceding the page.
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Meta describes one page of a list response.
type Meta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// NewMeta builds the metadata for the page p out of total rows.
func NewMeta(p Params, total int) Meta {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = (total + p.Limit - 1) / p.Limit
	}

	return Meta{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
	}
}

// FromRequest reads the page and limit query parameters.
//
// Unparsable or non-positive values fall back to the defaults. A limit above
// [MaxLimit] is clamped rather than reset.
func FromRequest(r *http.Request) Params {
	query := r.URL.Query()

	page := parsePositive(query.Get(ParamPage), DefaultPage)
	limit := min(parsePositive(query.Get(ParamLimit), DefaultLimit), MaxLimit)

	return Params{Page: page, Limit: limit}
}

func parsePositive(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
