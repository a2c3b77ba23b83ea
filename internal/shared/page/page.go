// Package page slices ordered result sets for list endpoints.
package page

import "strconv"

const (
	DefaultSize = 20
	MaxSize     = 200
)

// Request is a zero-based page index and a page size.
type Request struct {
	Index int
	Size  int
}

type Page[T any] struct {
	Items []T `json:"items"`
	Index int `json:"page"`
	Size  int `json:"size"`
	Total int `json:"total"`
}

// Parse reads raw query values, falling back to defaults for anything
// missing or out of range.
func Parse(index, size string) Request {
	req := Request{Index: 0, Size: DefaultSize}
	if n, err := strconv.Atoi(index); err == nil && n >= 0 {
		req.Index = n
	}
	if n, err := strconv.Atoi(size); err == nil && n > 0 {
		req.Size = n
	}
	if req.Size > MaxSize {
		req.Size = MaxSize
	}
	return req
}

// Of returns the requested window of items. Pages past the end are empty.
func Of[T any](items []T, req Request) Page[T] {
	if req.Size <= 0 {
		req.Size = DefaultSize
	}
	if req.Index < 0 {
		req.Index = 0
	}
	start := req.Index * req.Size
	if start > len(items) {
		start = len(items)
	}
	end := start + req.Size
	if end > len(items) {
		end = len(items)
	}
	window := make([]T, end-start)
	copy(window, items[start:end])
	return Page[T]{Items: window, Index: req.Index, Size: req.Size, Total: len(items)}
}
