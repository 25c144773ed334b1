package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"youshu-bot/backend"
	"youshu-bot/model"
	"youshu-bot/query"
)

type stubBackend struct {
	pageSize    int
	pages       map[int]model.SearchPage
	records     map[int64]model.NovelRecord
	latest      int64
	latestErr   error
	fetchErr    error
	searchCalls []int
	fetchCalls  []int64
}

func (s *stubBackend) Search(ctx context.Context, keyword string, page int) (model.SearchPage, error) {
	s.searchCalls = append(s.searchCalls, page)
	return s.pages[page], nil
}

func (s *stubBackend) LatestID(ctx context.Context) (int64, error) {
	if s.latestErr != nil {
		return 0, s.latestErr
	}
	return s.latest, nil
}

func (s *stubBackend) FetchDetail(ctx context.Context, id int64) (string, error) {
	s.fetchCalls = append(s.fetchCalls, id)
	if s.fetchErr != nil {
		return "", s.fetchErr
	}
	if _, ok := s.records[id]; !ok {
		return "", backend.ErrNotFound
	}
	return fmt.Sprintf("raw-%d", id), nil
}

func (s *stubBackend) ParseDetail(raw string, id int64) model.NovelRecord {
	if rec, ok := s.records[id]; ok {
		return rec
	}
	return model.NovelRecord{ID: id, Name: model.Unknown}
}

func (s *stubBackend) PageSize() int {
	if s.pageSize == 0 {
		return 20
	}
	return s.pageSize
}

func (s *stubBackend) Name() string { return "stub" }

func makeItems(start, n int) []model.SearchResultItem {
	items := make([]model.SearchResultItem, 0, n)
	for i := 0; i < n; i++ {
		id := int64(start + i)
		items = append(items, model.SearchResultItem{ID: id, Name: fmt.Sprintf("novel-%d", id)})
	}
	return items
}

func userErrorContaining(t *testing.T, err error, want string) {
	t.Helper()
	var uerr UserError
	if !errors.As(err, &uerr) {
		t.Fatalf("error = %v, want UserError", err)
	}
	if !strings.Contains(string(uerr), want) {
		t.Fatalf("user error %q does not contain %q", uerr, want)
	}
}

func TestSearchNoResults(t *testing.T) {
	stub := &stubBackend{pages: map[int]model.SearchPage{1: {TotalPages: 0}}}
	e := &Engine{Backend: stub}

	_, err := e.Search(context.Background(), query.Request{Keyword: "xxxx", Page: 1})
	userErrorContaining(t, err, "未找到")
}

func TestSearchEmptyItemsSinglePageIsNoResults(t *testing.T) {
	// The legacy backend can report one total page with zero items.
	stub := &stubBackend{pages: map[int]model.SearchPage{1: {TotalPages: 1}}}
	e := &Engine{Backend: stub}

	_, err := e.Search(context.Background(), query.Request{Keyword: "xxxx", Page: 1})
	userErrorContaining(t, err, "未找到")
}

func TestSearchListView(t *testing.T) {
	stub := &stubBackend{pages: map[int]model.SearchPage{
		1: {Items: makeItems(1, 20), TotalPages: 3},
	}}
	e := &Engine{Backend: stub}

	view, err := e.Search(context.Background(), query.Request{Keyword: "仙侠", Page: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if view.List == nil || view.Detail != nil {
		t.Fatalf("expected list view, got %+v", view)
	}
	if view.List.Page != 1 || view.List.TotalPages != 3 || view.List.PageSize != 20 {
		t.Fatalf("unexpected list view: %+v", view.List)
	}
	if len(view.List.Items) != 20 {
		t.Fatalf("items = %d", len(view.List.Items))
	}
}

func TestSearchExplicitPage(t *testing.T) {
	stub := &stubBackend{pages: map[int]model.SearchPage{
		1: {Items: makeItems(1, 20), TotalPages: 2},
		2: {Items: makeItems(21, 5), TotalPages: 2},
	}}
	e := &Engine{Backend: stub}

	view, err := e.Search(context.Background(), query.Request{Keyword: "仙侠", Page: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if view.List == nil || view.List.Page != 2 || len(view.List.Items) != 5 {
		t.Fatalf("unexpected view: %+v", view.List)
	}
}

func TestSearchPageBeyondTotalNeverFetched(t *testing.T) {
	stub := &stubBackend{pages: map[int]model.SearchPage{
		1: {Items: makeItems(1, 20), TotalPages: 3},
	}}
	e := &Engine{Backend: stub}

	_, err := e.Search(context.Background(), query.Request{Keyword: "仙侠", Page: 9})
	userErrorContaining(t, err, "不存在")
	if len(stub.searchCalls) != 1 || stub.searchCalls[0] != 1 {
		t.Fatalf("search calls = %v, the missing page must not be fetched", stub.searchCalls)
	}
}

func TestSearchSingleResultShortcut(t *testing.T) {
	stub := &stubBackend{
		pages:   map[int]model.SearchPage{1: {Items: makeItems(42, 1), TotalPages: 1}},
		records: map[int64]model.NovelRecord{42: {ID: 42, Name: "孤本"}},
	}
	e := &Engine{Backend: stub}

	view, err := e.Search(context.Background(), query.Request{Keyword: "孤本", Page: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if view.Detail == nil {
		t.Fatalf("expected detail view, got %+v", view)
	}
	if view.Detail.Record.ID != 42 || view.Detail.FullSynopsis {
		t.Fatalf("unexpected detail: %+v", view.Detail)
	}
}

func TestSearchNoShortcutWhenMorePagesExist(t *testing.T) {
	stub := &stubBackend{pages: map[int]model.SearchPage{
		1: {Items: makeItems(42, 1), TotalPages: 2},
	}}
	e := &Engine{Backend: stub}

	view, err := e.Search(context.Background(), query.Request{Keyword: "孤本", Page: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if view.List == nil {
		t.Fatalf("expected list view when more pages exist, got %+v", view)
	}
}

func TestSearchIndexCrossesPageBoundary(t *testing.T) {
	stub := &stubBackend{
		pages: map[int]model.SearchPage{
			1: {Items: makeItems(1, 20), TotalPages: 2},
			2: {Items: makeItems(21, 5), TotalPages: 2},
		},
		records: map[int64]model.NovelRecord{21: {ID: 21, Name: "novel-21"}},
	}
	e := &Engine{Backend: stub}

	view, err := e.Search(context.Background(), query.Request{Keyword: "仙侠", Page: 1, Index: 21, HasIndex: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if view.Detail == nil || view.Detail.Record.ID != 21 {
		t.Fatalf("expected detail of first item on page 2, got %+v", view)
	}
	if len(stub.searchCalls) != 2 || stub.searchCalls[1] != 2 {
		t.Fatalf("search calls = %v, want page 1 then page 2", stub.searchCalls)
	}
}

func TestSearchIndexBeyondShortLastPage(t *testing.T) {
	stub := &stubBackend{pages: map[int]model.SearchPage{
		1: {Items: makeItems(1, 20), TotalPages: 2},
		2: {Items: makeItems(21, 5), TotalPages: 2},
	}}
	e := &Engine{Backend: stub}

	_, err := e.Search(context.Background(), query.Request{Keyword: "仙侠", Page: 1, Index: 26, HasIndex: true})
	userErrorContaining(t, err, "超出范围")
}

func TestSearchIndexOnMissingPageNeverFetched(t *testing.T) {
	stub := &stubBackend{pages: map[int]model.SearchPage{
		1: {Items: makeItems(1, 20), TotalPages: 2},
	}}
	e := &Engine{Backend: stub}

	_, err := e.Search(context.Background(), query.Request{Keyword: "仙侠", Page: 1, Index: 100, HasIndex: true})
	userErrorContaining(t, err, "超出范围")
	if len(stub.searchCalls) != 1 {
		t.Fatalf("search calls = %v, page 5 must not be fetched", stub.searchCalls)
	}
}

func TestByID(t *testing.T) {
	stub := &stubBackend{records: map[int64]model.NovelRecord{7: {ID: 7, Name: "novel-7"}}}
	e := &Engine{Backend: stub}

	view, err := e.ByID(context.Background(), 7)
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if view.Detail == nil || !view.Detail.FullSynopsis {
		t.Fatalf("explicit id lookup must use the full synopsis: %+v", view)
	}
}

func TestByIDNotFound(t *testing.T) {
	stub := &stubBackend{}
	e := &Engine{Backend: stub}

	_, err := e.ByID(context.Background(), 9)
	userErrorContaining(t, err, "未找到")
}

func TestByIDRejectsNonPositive(t *testing.T) {
	e := &Engine{Backend: &stubBackend{}}
	_, err := e.ByID(context.Background(), 0)
	userErrorContaining(t, err, "正整数")
}

func TestByIDParseEmptyIsNotFound(t *testing.T) {
	// Fetch succeeds but the page is not a valid detail page.
	stub := &stubBackend{records: map[int64]model.NovelRecord{3: {ID: 3, Name: model.Unknown}}}
	e := &Engine{Backend: stub}

	_, err := e.ByID(context.Background(), 3)
	userErrorContaining(t, err, "未找到")
}

func TestRandomExhaustsBudget(t *testing.T) {
	stub := &stubBackend{latest: 100}
	e := &Engine{Backend: stub, IntN: func(n int64) int64 { return 41 }}

	_, err := e.Random(context.Background())
	userErrorContaining(t, err, "10")
	if len(stub.fetchCalls) != 10 {
		t.Fatalf("fetch calls = %d, want exactly the budget of 10", len(stub.fetchCalls))
	}
}

func TestRandomFatalTransportError(t *testing.T) {
	stub := &stubBackend{latest: 100, fetchErr: errors.New("connection reset")}
	e := &Engine{Backend: stub, IntN: func(n int64) int64 { return 0 }}

	_, err := e.Random(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var uerr UserError
	if errors.As(err, &uerr) {
		t.Fatalf("transport error must not be a user error: %v", err)
	}
	if len(stub.fetchCalls) != 1 {
		t.Fatalf("fetch calls = %d, a fatal error must abort immediately", len(stub.fetchCalls))
	}
}

func TestRandomRetriesPastMissesAndEmptyParses(t *testing.T) {
	stub := &stubBackend{
		latest: 100,
		records: map[int64]model.NovelRecord{
			6: {ID: 6, Name: model.Unknown}, // fetch ok, parse empty
			7: {ID: 7, Name: "novel-7"},
		},
	}
	draws := []int64{4, 5, 6} // ids 5 (404), 6 (empty), 7 (valid)
	i := 0
	e := &Engine{Backend: stub, IntN: func(n int64) int64 {
		d := draws[i%len(draws)]
		i++
		return d
	}}

	view, err := e.Random(context.Background())
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	if view.Detail == nil || view.Detail.Record.ID != 7 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if len(stub.fetchCalls) != 3 {
		t.Fatalf("fetch calls = %v", stub.fetchCalls)
	}
}

func TestRandomLatestIDFailureIsHard(t *testing.T) {
	stub := &stubBackend{latestErr: errors.New("newest endpoint gone")}
	e := &Engine{Backend: stub}

	_, err := e.Random(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(stub.fetchCalls) != 0 {
		t.Fatalf("no draws may happen without an upper bound, got %v", stub.fetchCalls)
	}
}
