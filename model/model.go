package model

// Unknown is the placeholder rendered for any field the upstream site did not
// provide. A NovelRecord whose Name equals Unknown is "not found".
const Unknown = "无"

// Review is a single reader review attached to a novel detail page.
type Review struct {
	Author  string
	Rating  string
	Content string
}

// NovelRecord is the unified per-novel representation produced by either
// backend generation after parsing its detail response.
type NovelRecord struct {
	ID            int64
	Name          string
	Author        string
	WordCount     float64 // raw character count; <= 0 means unknown
	Score         string
	ScorerCount   string
	Status        string
	UpdateTime    string
	Synopsis      string
	CoverImageURL string
	SourceLink    string
	Tags          []string
	Platform      string // legacy backend only
	Category      string // legacy backend only
	Reviews       []Review
}

// WellFormed reports whether the record represents an actual novel. Records
// parsed from a non-detail page carry the Unknown sentinel as their name.
func (r NovelRecord) WellFormed() bool {
	return r.Name != "" && r.Name != Unknown
}

// SearchResultItem is one entry of a search result page. Only ID and Name are
// guaranteed; the rest is filled when the backend's list response carries it.
type SearchResultItem struct {
	ID          int64
	Name        string
	Author      string
	Score       string
	ScorerCount string
}

// SearchPage is one page of search results together with the total page count
// the backend reported. TotalPages == 0 means the search matched nothing.
type SearchPage struct {
	Items      []SearchResultItem
	TotalPages int
}

// Empty reports whether the page carries no usable results. The legacy
// backend can report one total page with an empty item list; that is
// equivalent to zero total pages.
func (p SearchPage) Empty() bool {
	return p.TotalPages == 0 || len(p.Items) == 0
}

// KeywordCount is one entry of the lookup-log keyword ranking.
type KeywordCount struct {
	Keyword string
	Count   int
}
