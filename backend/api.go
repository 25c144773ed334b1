package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"youshu-bot/model"
)

const (
	apiPageSize       = 20
	apiSearchEndpoint = "api/novel/search"
	apiDetailEndpoint = "api/novel/getInfo"
	apiNewestEndpoint = "api/novel/newest"
	apiOKCode         = "00"
	apiMaxReviews     = 5
)

// apiBackend talks to the structured-API site generation.
type apiBackend struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

func newAPIBackend(baseURL string, client *http.Client) *apiBackend {
	return &apiBackend{
		baseURL: baseURL,
		client:  client,
		headers: map[string]string{
			"Accept":          "application/json, text/plain, */*",
			"Accept-Language": "zh-CN,zh;q=0.9,en-US;q=0.8,en;q=0.7",
		},
	}
}

func (b *apiBackend) Name() string  { return "api" }
func (b *apiBackend) PageSize() int { return apiPageSize }

// flexString tolerates upstream fields that arrive as JSON strings, numbers
// or null, and keeps them as display text.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type apiEnvelope struct {
	Code string          `json:"code"`
	Data json.RawMessage `json:"data"`
}

type apiSearchData struct {
	Data    []apiNovel `json:"data"`
	PageAll int        `json:"pageAll"`
	Total   int        `json:"total"`
}

type apiNovel struct {
	ID         int64        `json:"id"`
	NovelName  string       `json:"novel_name"`
	AuthorName string       `json:"author_name"`
	WordNumber *float64     `json:"word_number"`
	Status     *int         `json:"status"`
	Score      flexString   `json:"score"`
	Scorer     flexString   `json:"scorer"`
	UpdateTime *int64       `json:"update_time"`
	Synopsis   string       `json:"synopsis"`
	Source     string       `json:"source"`
	NovelImg   string       `json:"novel_img"`
	Label      string       `json:"label"`
	Comments   []apiComment `json:"comments"`
}

type apiComment struct {
	UserName string     `json:"user_name"`
	Score    flexString `json:"score"`
	Content  string     `json:"content"`
}

func (b *apiBackend) Search(ctx context.Context, keyword string, page int) (model.SearchPage, error) {
	endpoint := resolveURL(b.baseURL, apiSearchEndpoint)
	params := url.Values{}
	params.Set("keyword", keyword)
	params.Set("page", fmt.Sprintf("%d", page))

	body, err := get(ctx, b.client, endpoint+"?"+params.Encode(), b.headers)
	if err != nil {
		return model.SearchPage{}, fmt.Errorf("api search: %w", err)
	}

	var env apiEnvelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return model.SearchPage{}, fmt.Errorf("api search: decode envelope: %w", err)
	}
	if env.Code != apiOKCode {
		return model.SearchPage{}, fmt.Errorf("api search: upstream code %q", env.Code)
	}

	var data apiSearchData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return model.SearchPage{}, fmt.Errorf("api search: decode data: %w", err)
	}

	result := model.SearchPage{TotalPages: data.PageAll}
	if result.TotalPages == 0 && data.Total > 0 {
		result.TotalPages = (data.Total + apiPageSize - 1) / apiPageSize
	}
	for _, n := range data.Data {
		result.Items = append(result.Items, model.SearchResultItem{
			ID:          n.ID,
			Name:        n.NovelName,
			Author:      n.AuthorName,
			Score:       string(n.Score),
			ScorerCount: string(n.Scorer),
		})
	}
	if result.TotalPages == 0 && len(result.Items) > 0 {
		result.TotalPages = 1
	}
	return result, nil
}

func (b *apiBackend) LatestID(ctx context.Context) (int64, error) {
	body, err := get(ctx, b.client, resolveURL(b.baseURL, apiNewestEndpoint), b.headers)
	if err != nil {
		return 0, fmt.Errorf("api newest: %w", err)
	}
	var env apiEnvelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return 0, fmt.Errorf("api newest: decode envelope: %w", err)
	}
	if env.Code != apiOKCode {
		return 0, fmt.Errorf("api newest: upstream code %q", env.Code)
	}
	var data struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return 0, fmt.Errorf("api newest: decode data: %w", err)
	}
	if data.ID <= 0 {
		return 0, fmt.Errorf("api newest: no id in response")
	}
	return data.ID, nil
}

func (b *apiBackend) FetchDetail(ctx context.Context, id int64) (string, error) {
	endpoint := resolveURL(b.baseURL, apiDetailEndpoint)
	body, err := get(ctx, b.client, fmt.Sprintf("%s?novelId=%d", endpoint, id), b.headers)
	if err != nil {
		return "", fmt.Errorf("api detail %d: %w", id, err)
	}
	return body, nil
}

// ParseDetail maps the detail JSON into a NovelRecord. Unit normalization
// happens here: word_number arrives in units of 10,000 characters and the
// numeric status and unix update time become display strings.
func (b *apiBackend) ParseDetail(raw string, id int64) model.NovelRecord {
	rec := model.NovelRecord{
		ID:          id,
		Name:        model.Unknown,
		Author:      model.Unknown,
		Score:       model.Unknown,
		ScorerCount: model.Unknown,
		Status:      model.Unknown,
		UpdateTime:  model.Unknown,
	}

	var env apiEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil || env.Code != apiOKCode {
		return rec
	}
	var n apiNovel
	if err := json.Unmarshal(env.Data, &n); err != nil {
		return rec
	}

	if n.NovelName != "" {
		rec.Name = n.NovelName
	}
	if n.AuthorName != "" {
		rec.Author = n.AuthorName
	}
	if n.WordNumber != nil {
		rec.WordCount = *n.WordNumber * 10000
	}
	if n.Status != nil {
		rec.Status = apiStatusText(*n.Status)
	}
	if n.Score != "" {
		rec.Score = string(n.Score)
	}
	if n.Scorer != "" {
		rec.ScorerCount = string(n.Scorer)
	}
	if n.UpdateTime != nil {
		rec.UpdateTime = time.Unix(*n.UpdateTime, 0).Format("2006-01-02 15:04:05")
	}
	rec.Synopsis = n.Synopsis
	rec.CoverImageURL = resolveURL(b.baseURL, n.NovelImg)
	rec.SourceLink = firstSourceLink(n.Source)
	rec.Tags = splitLabels(n.Label)
	for i, c := range n.Comments {
		if i >= apiMaxReviews {
			break
		}
		rec.Reviews = append(rec.Reviews, model.Review{
			Author:  c.UserName,
			Rating:  string(c.Score),
			Content: c.Content,
		})
	}
	return rec
}

func apiStatusText(status int) string {
	switch status {
	case 0:
		return "连载中"
	case 1, 2:
		return "已完结"
	default:
		return model.Unknown
	}
}

// firstSourceLink unpacks the "source" field, a JSON string holding a list
// of source sites, and returns the first book page link.
func firstSourceLink(source string) string {
	if source == "" {
		return ""
	}
	var entries []struct {
		BookPage string `json:"bookPage"`
	}
	if err := json.Unmarshal([]byte(source), &entries); err != nil {
		return ""
	}
	if len(entries) == 0 {
		return ""
	}
	return entries[0].BookPage
}

func splitLabels(label string) []string {
	if label == "" {
		return nil
	}
	var tags []string
	for _, part := range strings.FieldsFunc(label, func(r rune) bool {
		return r == ',' || r == '，' || r == '、'
	}) {
		part = strings.TrimSpace(part)
		if part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}
