// Package query parses the free-text arguments of a lookup command into a
// keyword plus an optional explicit page or item index.
package query

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrEmptyKeyword is returned when no keyword remains after parsing.
var ErrEmptyKeyword = errors.New("keyword is empty")

var (
	pageToken  = regexp.MustCompile(`^-(\d+)$`)
	indexToken = regexp.MustCompile(`^\d+$`)
)

// Request is the parsed outcome of a lookup command.
type Request struct {
	Keyword  string
	Page     int  // page to fetch, 1 unless the user asked for another one
	Index    int  // 1-based global item index, valid only when HasIndex
	HasIndex bool
}

// Parse tokenizes the argument text. A trailing "-<digits>" token is an
// explicit page request (page 0 collapses to 1); a trailing all-digit token
// is an explicit 1-based item index, where 0 means "no index given" and
// falls back to list mode.
func Parse(args string) (Request, error) {
	tokens := strings.Fields(args)
	req := Request{Page: 1}

	if len(tokens) > 0 {
		last := tokens[len(tokens)-1]
		if m := pageToken.FindStringSubmatch(last); m != nil {
			page, err := strconv.Atoi(m[1])
			if err == nil {
				if page == 0 {
					page = 1
				}
				req.Page = page
				tokens = tokens[:len(tokens)-1]
			}
		} else if indexToken.MatchString(last) {
			index, err := strconv.Atoi(last)
			if err == nil {
				if index > 0 {
					req.Index = index
					req.HasIndex = true
				}
				tokens = tokens[:len(tokens)-1]
			}
		}
	}

	req.Keyword = strings.Join(tokens, " ")
	if req.Keyword == "" {
		return Request{}, ErrEmptyKeyword
	}
	return req, nil
}
