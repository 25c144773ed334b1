// Package pager resolves a 1-based global result index into the page that
// must be fetched and the offset inside that page.
package pager

import "errors"

// ErrIndexOutOfRange is returned for indices before the first item.
var ErrIndexOutOfRange = errors.New("index must start from 1")

// Location points at one item inside a paged result set.
type Location struct {
	Page   int // 1-based page to fetch
	Offset int // 0-based offset inside that page
}

// Locate computes which page holds the index-th item for the given page size.
// Indices are 1-based; zero and negative indices are rejected.
func Locate(index, pageSize int) (Location, error) {
	if index <= 0 {
		return Location{}, ErrIndexOutOfRange
	}
	if pageSize <= 0 {
		return Location{}, errors.New("page size must be positive")
	}
	return Location{
		Page:   (index-1)/pageSize + 1,
		Offset: (index - 1) % pageSize,
	}, nil
}
