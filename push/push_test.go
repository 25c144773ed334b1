package push

import (
	"context"
	"errors"
	"testing"

	"youshu-bot/format"
	"youshu-bot/lookup"
	"youshu-bot/model"
)

type mockEngine struct {
	view lookup.View
	err  error
}

func (m *mockEngine) Random(ctx context.Context) (lookup.View, error) {
	return m.view, m.err
}

type mockRenderer struct {
	msg format.Message
}

func (m *mockRenderer) Render(ctx context.Context, v lookup.View) format.Message {
	return m.msg
}

type mockSender struct {
	texts   []string
	photos  []string
	sendErr error
}

func (m *mockSender) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	m.texts = append(m.texts, text)
	return 1, m.sendErr
}

func (m *mockSender) SendPhoto(ctx context.Context, chatID int64, photoBase64, caption string) (int, error) {
	m.photos = append(m.photos, caption)
	return 1, m.sendErr
}

func newRunner(engine Engine, renderer Renderer, sender Sender, chatID int64) *Runner {
	return &Runner{
		Engine:   engine,
		Renderer: renderer,
		Sender:   sender,
		ChatID:   func() int64 { return chatID },
	}
}

func TestRunWithoutChatFails(t *testing.T) {
	sender := &mockSender{}
	r := newRunner(&mockEngine{}, &mockRenderer{}, sender, 0)

	if err := r.Run(context.Background()); err == nil {
		t.Fatal("expected error for unregistered chat")
	}
	if len(sender.texts) != 0 || len(sender.photos) != 0 {
		t.Fatal("nothing may be sent without a chat")
	}
}

func TestRunSendsText(t *testing.T) {
	view := lookup.View{Detail: &lookup.DetailView{Record: model.NovelRecord{ID: 5, Name: "a"}}}
	sender := &mockSender{}
	r := newRunner(&mockEngine{view: view}, &mockRenderer{msg: format.Message{Text: "今日推荐"}}, sender, 123)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sender.texts) != 1 || sender.texts[0] != "今日推荐" {
		t.Fatalf("unexpected texts: %v", sender.texts)
	}
}

func TestRunSendsPhotoWhenCoverPresent(t *testing.T) {
	sender := &mockSender{}
	msg := format.Message{Text: "今日推荐", CoverBase64: "Y292ZXI="}
	r := newRunner(&mockEngine{}, &mockRenderer{msg: msg}, sender, 123)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sender.photos) != 1 || sender.photos[0] != "今日推荐" {
		t.Fatalf("unexpected photos: %v", sender.photos)
	}
	if len(sender.texts) != 0 {
		t.Fatalf("unexpected texts: %v", sender.texts)
	}
}

func TestRunDeliversSamplingExhaustion(t *testing.T) {
	sender := &mockSender{}
	engine := &mockEngine{err: lookup.UserError("😢 抽取 10 次仍未找到有效书籍。")}
	r := newRunner(engine, &mockRenderer{}, sender, 123)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sender.texts) != 1 || sender.texts[0] != "😢 抽取 10 次仍未找到有效书籍。" {
		t.Fatalf("unexpected texts: %v", sender.texts)
	}
}

func TestRunPropagatesHardErrors(t *testing.T) {
	sender := &mockSender{}
	engine := &mockEngine{err: errors.New("connection reset")}
	r := newRunner(engine, &mockRenderer{}, sender, 123)

	if err := r.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(sender.texts) != 0 {
		t.Fatalf("unexpected texts: %v", sender.texts)
	}
}

func TestRunPropagatesSendFailure(t *testing.T) {
	sender := &mockSender{sendErr: errors.New("telegram down")}
	r := newRunner(&mockEngine{}, &mockRenderer{msg: format.Message{Text: "x"}}, sender, 123)

	if err := r.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
