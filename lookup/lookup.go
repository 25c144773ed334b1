// Package lookup resolves a parsed command into a list view or a detail
// view, crossing page boundaries for global indices, and drives the bounded
// random sampling over the id space.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"youshu-bot/backend"
	"youshu-bot/model"
	"youshu-bot/pager"
	"youshu-bot/query"
)

// randomAttempts is the retry budget of the random sampler.
const randomAttempts = 10

// UserError is a failure caused by user input or an empty result. Its text
// is shown to the user verbatim; it is never logged as an error.
type UserError string

func (e UserError) Error() string { return string(e) }

// ListView is one rendered-ready page of search results.
type ListView struct {
	Keyword    string
	Page       int
	TotalPages int
	PageSize   int
	Items      []model.SearchResultItem
}

// DetailView is a single novel ready for rendering. FullSynopsis is set for
// explicit by-id lookups; search-triggered details truncate the synopsis.
type DetailView struct {
	Record       model.NovelRecord
	FullSynopsis bool
}

// View is the outcome of a lookup: exactly one of List or Detail is set.
type View struct {
	List   *ListView
	Detail *DetailView
}

// Engine performs lookups against the selected backend.
type Engine struct {
	Backend backend.Backend
	Logger  *slog.Logger
	// IntN draws a uniform value in [0, n); tests inject a deterministic one.
	IntN func(n int64) int64
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Search turns a parsed request into a list or detail view. Page one is
// always fetched first so a page or index beyond the known total is
// reported without trying to fetch the missing page.
func (e *Engine) Search(ctx context.Context, req query.Request) (View, error) {
	first, err := e.Backend.Search(ctx, req.Keyword, 1)
	if err != nil {
		return View{}, fmt.Errorf("search %q: %w", req.Keyword, err)
	}
	if first.Empty() {
		return View{}, UserError(fmt.Sprintf("😢 未找到关于【%s】的书籍信息。", req.Keyword))
	}

	if req.HasIndex {
		return e.searchByIndex(ctx, req, first)
	}

	if req.Page > 1 {
		if req.Page > first.TotalPages {
			return View{}, UserError(fmt.Sprintf("❌ 第 %d 页不存在，搜索结果共 %d 页。", req.Page, first.TotalPages))
		}
		page, err := e.Backend.Search(ctx, req.Keyword, req.Page)
		if err != nil {
			return View{}, fmt.Errorf("search %q page %d: %w", req.Keyword, req.Page, err)
		}
		return View{List: &ListView{
			Keyword:    req.Keyword,
			Page:       req.Page,
			TotalPages: first.TotalPages,
			PageSize:   e.Backend.PageSize(),
			Items:      page.Items,
		}}, nil
	}

	// Single-result shortcut: the only result on the only page goes straight
	// to its detail view. Never taken when more pages exist.
	if first.TotalPages == 1 && len(first.Items) == 1 {
		return e.detail(ctx, first.Items[0].ID, false)
	}

	return View{List: &ListView{
		Keyword:    req.Keyword,
		Page:       1,
		TotalPages: first.TotalPages,
		PageSize:   e.Backend.PageSize(),
		Items:      first.Items,
	}}, nil
}

func (e *Engine) searchByIndex(ctx context.Context, req query.Request, first model.SearchPage) (View, error) {
	loc, err := pager.Locate(req.Index, e.Backend.PageSize())
	if err != nil {
		return View{}, UserError("❌ 序号必须从1开始。")
	}
	if loc.Page > first.TotalPages {
		return View{}, UserError(fmt.Sprintf("❌ 序号 %d 超出范围，搜索结果共 %d 页。", req.Index, first.TotalPages))
	}

	page := first
	if loc.Page > 1 {
		page, err = e.Backend.Search(ctx, req.Keyword, loc.Page)
		if err != nil {
			return View{}, fmt.Errorf("search %q page %d: %w", req.Keyword, loc.Page, err)
		}
	}
	if loc.Offset >= len(page.Items) {
		return View{}, UserError(fmt.Sprintf("❌ 序号 %d 超出范围。", req.Index))
	}
	return e.detail(ctx, page.Items[loc.Offset].ID, false)
}

// ByID fetches a single novel by its id, bypassing search.
func (e *Engine) ByID(ctx context.Context, id int64) (View, error) {
	if id <= 0 {
		return View{}, UserError("❌ 书籍ID必须为正整数。")
	}
	return e.detail(ctx, id, true)
}

// Random draws ids in [1, latestID] until one parses into a well-formed
// record or the attempt budget runs out. A 404 or an empty parse consumes
// one attempt silently; any other transport error aborts immediately.
func (e *Engine) Random(ctx context.Context) (View, error) {
	latest, err := e.Backend.LatestID(ctx)
	if err != nil {
		return View{}, fmt.Errorf("latest id: %w", err)
	}

	intN := e.IntN
	if intN == nil {
		intN = rand.Int64N
	}
	for attempt := 1; attempt <= randomAttempts; attempt++ {
		id := intN(latest) + 1
		raw, err := e.Backend.FetchDetail(ctx, id)
		if errors.Is(err, backend.ErrNotFound) {
			e.logger().Debug("random_attempt_miss", slog.Int("attempt", attempt), slog.Int64("id", id))
			continue
		}
		if err != nil {
			return View{}, fmt.Errorf("random detail %d: %w", id, err)
		}
		rec := e.Backend.ParseDetail(raw, id)
		if !rec.WellFormed() {
			e.logger().Debug("random_attempt_empty", slog.Int("attempt", attempt), slog.Int64("id", id))
			continue
		}
		return View{Detail: &DetailView{Record: rec}}, nil
	}
	return View{}, UserError(fmt.Sprintf("😢 抽取 %d 次仍未找到有效书籍，请稍后再试。", randomAttempts))
}

func (e *Engine) detail(ctx context.Context, id int64, full bool) (View, error) {
	raw, err := e.Backend.FetchDetail(ctx, id)
	if errors.Is(err, backend.ErrNotFound) {
		return View{}, UserError("😢 未找到该书籍。")
	}
	if err != nil {
		return View{}, fmt.Errorf("detail %d: %w", id, err)
	}
	rec := e.Backend.ParseDetail(raw, id)
	if !rec.WellFormed() {
		return View{}, UserError("😢 未找到该书籍。")
	}
	return View{Detail: &DetailView{Record: rec, FullSynopsis: full}}, nil
}
