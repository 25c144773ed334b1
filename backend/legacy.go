package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"youshu-bot/model"
)

const (
	legacyPageSize   = 15
	legacyMaxReviews = 3
)

// Closed sets of values the legacy site uses. Longer names come first so
// e.g. 起点中文网 wins over 起点.
var (
	legacyPlatforms = []string{
		"起点中文网", "晋江文学城", "纵横中文网", "创世中文网", "17K小说网",
		"飞卢小说网", "SF轻小说", "刺猬猫", "番茄小说", "起点", "晋江", "纵横",
	}
	legacyCategories = []string{
		"玄幻", "奇幻", "武侠", "仙侠", "都市", "现实", "军事", "历史",
		"游戏", "体育", "科幻", "灵异", "二次元", "轻小说",
	}
	legacyStatuses = []string{"连载中", "已完结", "连载", "完结", "太监"}
)

var (
	bookHref        = regexp.MustCompile(`/book/(\d+)`)
	wordCountLabel  = regexp.MustCompile(`字数[:：]\s*([\d.]+)\s*(万)?字`)
	scoreLabel      = regexp.MustCompile(`评分[:：]\s*([\d.]+|N/A)`)
	scorerLabel     = regexp.MustCompile(`(\d+)\s*人评分`)
	updateLabel     = regexp.MustCompile(`更新[:：]\s*([\d]{4}[\d\- :]+)`)
	ratingDigits    = regexp.MustCompile(`([\d.]+)\s*分`)
	noResultsMarker = "没有找到"
)

// legacyBackend scrapes the legacy HTML site generation. It needs a session
// cookie and a Referer to get past the site's bot filtering.
type legacyBackend struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

func newLegacyBackend(baseURL, sessionCookie string, client *http.Client) *legacyBackend {
	return &legacyBackend{
		baseURL: baseURL,
		client:  client,
		headers: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "zh-CN,zh;q=0.9,en-US;q=0.8,en;q=0.7",
			"Referer":         baseURL,
			"Cookie":          sessionCookie,
		},
	}
}

func (b *legacyBackend) Name() string  { return "legacy" }
func (b *legacyBackend) PageSize() int { return legacyPageSize }

func (b *legacyBackend) Search(ctx context.Context, keyword string, page int) (model.SearchPage, error) {
	rawURL := resolveURL(b.baseURL, fmt.Sprintf("search/%s/%d", url.PathEscape(keyword), page))
	body, err := get(ctx, b.client, rawURL, b.headers)
	if err != nil {
		return model.SearchPage{}, fmt.Errorf("legacy search: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return model.SearchPage{}, fmt.Errorf("legacy search: parse html: %w", err)
	}
	if strings.Contains(doc.Text(), noResultsMarker) {
		return model.SearchPage{TotalPages: 0}, nil
	}

	var result model.SearchPage
	doc.Find(".bookbox").Each(func(_ int, s *goquery.Selection) {
		item, ok := legacySearchItem(s)
		if ok {
			result.Items = append(result.Items, item)
		}
	})
	result.TotalPages = legacyTotalPages(doc)
	return result, nil
}

func legacySearchItem(s *goquery.Selection) (model.SearchResultItem, bool) {
	link := s.Find(`a[href*="/book/"]`).First()
	m := bookHref.FindStringSubmatch(link.AttrOr("href", ""))
	if m == nil {
		return model.SearchResultItem{}, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || id <= 0 {
		return model.SearchResultItem{}, false
	}

	name := strings.TrimSpace(link.Text())
	if name == "" {
		name = strings.TrimSpace(link.AttrOr("title", ""))
	}
	if name == "" {
		return model.SearchResultItem{}, false
	}

	item := model.SearchResultItem{
		ID:     id,
		Name:   name,
		Author: trimLabel(s.Find(".author").First().Text(), "作者"),
		Score:  strings.TrimSpace(s.Find(".score").First().Text()),
	}
	if m := scorerLabel.FindStringSubmatch(s.Text()); m != nil {
		item.ScorerCount = m[1]
	}
	return item, true
}

// legacyTotalPages reads the largest page number from the pagination block.
// A result list without pagination is a single page.
func legacyTotalPages(doc *goquery.Document) int {
	max := 0
	doc.Find(".pagelink a, .pagelink em, .pagelink span").Each(func(_ int, s *goquery.Selection) {
		if n, err := strconv.Atoi(strings.TrimSpace(s.Text())); err == nil && n > max {
			max = n
		}
	})
	if max == 0 {
		return 1
	}
	return max
}

func (b *legacyBackend) LatestID(ctx context.Context) (int64, error) {
	body, err := get(ctx, b.client, b.baseURL, b.headers)
	if err != nil {
		return 0, fmt.Errorf("legacy newest: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("legacy newest: parse html: %w", err)
	}

	var max int64
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		m := bookHref.FindStringSubmatch(s.AttrOr("href", ""))
		if m == nil {
			return
		}
		if id, err := strconv.ParseInt(m[1], 10, 64); err == nil && id > max {
			max = id
		}
	})
	if max == 0 {
		return 0, fmt.Errorf("legacy newest: no book links on front page")
	}
	return max, nil
}

func (b *legacyBackend) FetchDetail(ctx context.Context, id int64) (string, error) {
	rawURL := resolveURL(b.baseURL, fmt.Sprintf("book/%d.html", id))
	body, err := get(ctx, b.client, rawURL, b.headers)
	if err != nil {
		return "", fmt.Errorf("legacy detail %d: %w", id, err)
	}
	return body, nil
}

// ParseDetail extracts every field independently; one missing field never
// blocks the others, and a page without a recognizable title yields a
// sentinel-name record.
func (b *legacyBackend) ParseDetail(raw string, id int64) model.NovelRecord {
	rec := model.NovelRecord{
		ID:          id,
		Name:        model.Unknown,
		Author:      model.Unknown,
		Score:       model.Unknown,
		ScorerCount: model.Unknown,
		Status:      model.Unknown,
		UpdateTime:  model.Unknown,
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return rec
	}
	pageText := doc.Text()

	if name := strings.TrimSpace(doc.Find(".booknav h1, h1").First().Text()); name != "" {
		rec.Name = name
	}
	if author := trimLabel(doc.Find(`.booknav a[href*="author"]`).First().Text(), "作者"); author != "" {
		rec.Author = author
	}
	if m := wordCountLabel.FindStringSubmatch(pageText); m != nil {
		if n, err := strconv.ParseFloat(m[1], 64); err == nil {
			if m[2] != "" {
				n *= 10000
			}
			rec.WordCount = n
		}
	}
	if score := strings.TrimSpace(doc.Find(".scoretag .score, .booknav .score").First().Text()); score != "" {
		rec.Score = score
	} else if m := scoreLabel.FindStringSubmatch(pageText); m != nil {
		rec.Score = m[1]
	}
	if m := scorerLabel.FindStringSubmatch(pageText); m != nil {
		rec.ScorerCount = m[1]
	}
	if m := updateLabel.FindStringSubmatch(pageText); m != nil {
		rec.UpdateTime = strings.TrimSpace(m[1])
	}
	if synopsis := strings.TrimSpace(doc.Find(".bookintro, #bookintro").First().Text()); synopsis != "" {
		rec.Synopsis = synopsis
	}
	if src := doc.Find(".bookimg img, img.cover").First().AttrOr("src", ""); src != "" {
		rec.CoverImageURL = resolveURL(b.baseURL, src)
	}
	if origin := doc.Find("a.origin").First().AttrOr("href", ""); origin != "" {
		rec.SourceLink = resolveURL(b.baseURL, origin)
	}

	tagTexts := collectTexts(doc.Find(".booktag a, .booktag span, .tagbox a"))
	rec.Platform = matchClosedSet(tagTexts, legacyPlatforms)
	rec.Category = matchClosedSet(tagTexts, legacyCategories)
	rec.Status = statusOrUnknown(matchClosedSet(tagTexts, legacyStatuses))
	for _, t := range tagTexts {
		if !inSet(t, legacyPlatforms) && !inSet(t, legacyCategories) && !inSet(t, legacyStatuses) {
			rec.Tags = append(rec.Tags, t)
		}
	}

	doc.Find(".commentlist .comment").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= legacyMaxReviews {
			return false
		}
		review := model.Review{
			Author:  strings.TrimSpace(s.Find(".username").First().Text()),
			Content: strings.TrimSpace(s.Find(".commenttext").First().Text()),
		}
		if m := ratingDigits.FindStringSubmatch(s.Find(".rating").First().Text()); m != nil {
			review.Rating = m[1]
		}
		if review.Author != "" || review.Content != "" {
			rec.Reviews = append(rec.Reviews, review)
		}
		return true
	})

	return rec
}

func trimLabel(text, label string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, label+"：")
	text = strings.TrimPrefix(text, label+":")
	return strings.TrimSpace(text)
}

func collectTexts(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

func matchClosedSet(texts, set []string) string {
	for _, want := range set {
		for _, t := range texts {
			if t == want {
				return want
			}
		}
	}
	return ""
}

func inSet(text string, set []string) bool {
	for _, want := range set {
		if text == want {
			return true
		}
	}
	return false
}

func statusOrUnknown(status string) string {
	if status == "" {
		return model.Unknown
	}
	return status
}
