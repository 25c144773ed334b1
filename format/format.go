// Package format renders lookup views as chat messages.
package format

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"youshu-bot/lookup"
	"youshu-bot/model"
)

// synopsisPreviewRunes caps synopsis length in search-triggered detail views.
const synopsisPreviewRunes = 200

const coverFailedNotice = "[封面加载失败]"

// Message is one outgoing chat message: a text block plus an optional inline
// cover image, base64-encoded.
type Message struct {
	Text        string
	CoverBase64 string
}

// Formatter renders views. The cover fetch is the only network call it makes
// and it is best-effort: failure degrades to a text-only message.
type Formatter struct {
	CoverTimeout time.Duration
	Client       *http.Client
}

// New returns a Formatter with its own short-timeout cover client.
func New(coverTimeout time.Duration) *Formatter {
	if coverTimeout <= 0 {
		coverTimeout = 5 * time.Second
	}
	return &Formatter{
		CoverTimeout: coverTimeout,
		Client:       &http.Client{Timeout: coverTimeout},
	}
}

// Render produces the chat message for a view.
func (f *Formatter) Render(ctx context.Context, v lookup.View) Message {
	if v.List != nil {
		return Message{Text: ListText(*v.List)}
	}
	if v.Detail == nil {
		return Message{}
	}

	text := DetailText(v.Detail.Record, v.Detail.FullSynopsis)
	cover := ""
	if url := v.Detail.Record.CoverImageURL; url != "" {
		cover = f.fetchCover(ctx, url)
		if cover == "" {
			text = coverFailedNotice + "\n" + text
		}
	}
	return Message{Text: text, CoverBase64: cover}
}

// DetailText renders the full-detail block in its fixed field order.
func DetailText(rec model.NovelRecord, fullSynopsis bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- 📚 【%s】详细信息 ---\n", rec.Name)
	fmt.Fprintf(&b, "✍️ 作者: %s\n", orUnknown(rec.Author))
	if rec.Platform != "" {
		fmt.Fprintf(&b, "平台: %s\n", rec.Platform)
	}
	if rec.Category != "" {
		fmt.Fprintf(&b, "分类: %s\n", rec.Category)
	}
	if len(rec.Tags) > 0 {
		fmt.Fprintf(&b, "标签: %s\n", strings.Join(rec.Tags, " / "))
	}
	fmt.Fprintf(&b, "字数: %s\n", wordCountText(rec.WordCount))
	fmt.Fprintf(&b, "评分: %s (%s人评分)\n", orUnknown(rec.Score), orUnknown(rec.ScorerCount))
	fmt.Fprintf(&b, "状态: %s\n", orUnknown(rec.Status))
	fmt.Fprintf(&b, "更新: %s\n", orUnknown(rec.UpdateTime))
	fmt.Fprintf(&b, "简介: %s\n", synopsisText(rec.Synopsis, fullSynopsis))
	fmt.Fprintf(&b, "🔗 链接: %s", orUnknown(rec.SourceLink))
	if len(rec.Reviews) > 0 {
		b.WriteString("\n--- 书评 ---")
		for _, r := range rec.Reviews {
			fmt.Fprintf(&b, "\n%s (%s分): %s", orUnknown(r.Author), orUnknown(r.Rating), r.Content)
		}
	}
	return b.String()
}

// ListText renders a numbered result page. Numbering is global across pages
// so the printed number can be fed back as a lookup index.
func ListText(v lookup.ListView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "以下是关于【%s】的搜索结果 (第%d/%d页):\n", v.Keyword, v.Page, v.TotalPages)
	start := (v.Page-1)*v.PageSize + 1
	for i, item := range v.Items {
		fmt.Fprintf(&b, "%d. %s", start+i, item.Name)
		if item.Author != "" {
			fmt.Fprintf(&b, " — %s", item.Author)
		}
		if item.Score != "" {
			fmt.Fprintf(&b, " (%s分", item.Score)
			if item.ScorerCount != "" {
				fmt.Fprintf(&b, "/%s人", item.ScorerCount)
			}
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n💡 发送「ys 关键词 序号」查看详情，「ys 关键词 -页码」翻页。")
	return b.String()
}

func (f *Formatter) fetchCover(ctx context.Context, url string) string {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: f.CoverTimeout}
	}
	ctx, cancel := context.WithTimeout(ctx, f.CoverTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	resp, err := client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil || len(data) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

func wordCountText(wordCount float64) string {
	if wordCount <= 0 {
		return model.Unknown
	}
	return fmt.Sprintf("%.2f万字", wordCount/10000)
}

func synopsisText(synopsis string, full bool) string {
	synopsis = strings.TrimSpace(synopsis)
	if synopsis == "" {
		return model.Unknown
	}
	if full {
		return synopsis
	}
	runes := []rune(synopsis)
	if len(runes) <= synopsisPreviewRunes {
		return synopsis
	}
	return string(runes[:synopsisPreviewRunes]) + "..."
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return model.Unknown
	}
	return s
}
