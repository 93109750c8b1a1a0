package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"linkbrief/internal/domain"
	"linkbrief/internal/pipeline"
)

type stubSender struct {
	mu       sync.Mutex
	messages []tgbotapi.MessageConfig
	actions  int
}

func (s *stubSender) Send(_ context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := c.(tgbotapi.MessageConfig); ok {
		s.messages = append(s.messages, m)
	}

	return tgbotapi.Message{}, nil
}

func (s *stubSender) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions++

	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (s *stubSender) sent() []tgbotapi.MessageConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]tgbotapi.MessageConfig(nil), s.messages...)
}

type stubRunner struct {
	mu     sync.Mutex
	texts  []string
	result *pipeline.Result
	err    error
}

func (s *stubRunner) Run(_ context.Context, text string) (*pipeline.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.texts = append(s.texts, text)

	return s.result, s.err
}

func (s *stubRunner) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.texts...)
}

func textUpdate(chatID int64, text string) *tgbotapi.Update {
	return &tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 77,
			From:      &tgbotapi.User{ID: 5, UserName: "reader"},
			Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
			Text:      text,
		},
	}
}

func sampleResult() *pipeline.Result {
	return &pipeline.Result{
		URL:      "https://blog.example.com/post",
		Category: domain.CategoryWebpage,
		Author:   "Jane Doe",
		Summary: domain.Summary{
			Title:          "Go 1.26 is out!",
			KeyPoints:      []string{"Faster GC", "New iterators", "Better tooling"},
			ConciseSummary: "The release (finally) ships.",
		},
		Backend: "stub",
	}
}

func TestHandleUpdateSummarizesLink(t *testing.T) {
	s := &stubSender{}
	r := &stubRunner{result: sampleResult()}
	b := newBot(s, r, Options{}, slog.Default())

	b.handleUpdate(context.Background(), textUpdate(10, "look https://blog.example.com/post"))

	if calls := r.calls(); len(calls) != 1 || calls[0] != "look https://blog.example.com/post" {
		t.Fatalf("unexpected runner calls: %v", calls)
	}

	sent := s.sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}

	msg := sent[0]
	if msg.ParseMode != tgbotapi.ModeMarkdownV2 || msg.ReplyToMessageID != 77 || msg.ChatID != 10 {
		t.Fatalf("unexpected message config: %+v", msg)
	}

	for _, want := range []string{`*Go 1\.26 is out\!*`, `_by Jane Doe_`, "• Faster GC", `The release \(finally\) ships\.`} {
		if !strings.Contains(msg.Text, want) {
			t.Fatalf("expected %q in message:\n%s", want, msg.Text)
		}
	}

	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(markup.InlineKeyboard) != 1 {
		t.Fatalf("expected source keyboard, got %#v", msg.ReplyMarkup)
	}

	if btn := markup.InlineKeyboard[0][0]; btn.URL == nil || *btn.URL != "https://blog.example.com/post" {
		t.Fatalf("unexpected button: %+v", btn)
	}
}

func TestHandleUpdateFailureSendsGenericMessage(t *testing.T) {
	s := &stubSender{}
	r := &stubRunner{err: &pipeline.Failure{
		Stage:  pipeline.StageExtract,
		Kind:   pipeline.KindExtractionAccessDenied,
		Detail: "status 403 from secret.example.com",
	}}
	b := newBot(s, r, Options{}, slog.Default())

	b.handleUpdate(context.Background(), textUpdate(10, "https://secret.example.com/doc"))

	sent := s.sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}

	if sent[0].Text != `Sorry, I couldn't summarize that link\.` {
		t.Fatalf("unexpected failure text: %q", sent[0].Text)
	}

	if sent[0].ReplyMarkup != nil {
		t.Fatalf("expected no keyboard on failure")
	}
}

func TestHandleUpdateUnknownErrorStillGeneric(t *testing.T) {
	s := &stubSender{}
	b := newBot(s, &stubRunner{err: errors.New("boom")}, Options{}, slog.Default())

	b.handleUpdate(context.Background(), textUpdate(10, "https://blog.example.com/post"))

	if sent := s.sent(); len(sent) != 1 || !strings.HasPrefix(sent[0].Text, "Sorry") {
		t.Fatalf("unexpected messages: %+v", sent)
	}
}

func TestHandleUpdateChatNotAllowed(t *testing.T) {
	s := &stubSender{}
	r := &stubRunner{result: sampleResult()}
	b := newBot(s, r, Options{AllowedChats: []int64{1, 2}}, slog.Default())

	b.handleUpdate(context.Background(), textUpdate(10, "https://blog.example.com/post"))

	if len(r.calls()) != 0 || len(s.sent()) != 0 {
		t.Fatalf("expected disallowed chat to be ignored")
	}
}

func TestHandleUpdateIgnoresTextWithoutLink(t *testing.T) {
	s := &stubSender{}
	r := &stubRunner{result: sampleResult()}
	b := newBot(s, r, Options{}, slog.Default())

	b.handleUpdate(context.Background(), textUpdate(10, "just saying hi"))

	if len(r.calls()) != 0 || len(s.sent()) != 0 {
		t.Fatalf("expected message without link to be ignored")
	}
}

func TestHandleUpdateStartCommand(t *testing.T) {
	s := &stubSender{}
	r := &stubRunner{}
	b := newBot(s, r, Options{}, slog.Default())

	b.handleUpdate(context.Background(), textUpdate(10, "/start"))

	sent := s.sent()
	if len(sent) != 1 || sent[0].Text != welcomeText || len(r.calls()) != 0 {
		t.Fatalf("expected welcome text, got %+v", sent)
	}
}

func TestMessageTextIncludesTextLinks(t *testing.T) {
	message := &tgbotapi.Message{
		Text: "read this",
		Entities: []tgbotapi.MessageEntity{
			{Type: "bold", Offset: 0, Length: 4},
			{Type: "text_link", Offset: 5, Length: 4, URL: "https://blog.example.com/hidden"},
		},
	}

	if got := messageText(message); got != "read this\nhttps://blog.example.com/hidden" {
		t.Fatalf("unexpected text: %q", got)
	}

	caption := &tgbotapi.Message{Caption: "  https://youtu.be/dQw4w9WgXcQ  "}
	if got := messageText(caption); got != "https://youtu.be/dQw4w9WgXcQ" {
		t.Fatalf("unexpected caption text: %q", got)
	}
}

func TestDispatchBoundsConcurrency(t *testing.T) {
	release := make(chan struct{})
	r := &blockingRunner{release: release}
	b := newBot(&stubSender{}, r, Options{MaxConcurrentUpdates: 2}, slog.Default())

	ctx := context.Background()
	dispatched := make(chan struct{})

	go func() {
		for range 3 {
			b.dispatch(ctx, *textUpdate(10, "https://blog.example.com/post"))
		}
		close(dispatched)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for r.inFlight() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 updates in flight")
		}
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(50 * time.Millisecond)

	if got := r.maxSeen(); got != 2 {
		t.Fatalf("expected at most 2 concurrent updates, saw %d", got)
	}

	close(release)
	<-dispatched
	b.wg.Wait()

	if got := r.total(); got != 3 {
		t.Fatalf("expected 3 runs, got %d", got)
	}
}

type blockingRunner struct {
	mu      sync.Mutex
	current int
	peak    int
	runs    int
	release chan struct{}
}

func (r *blockingRunner) Run(context.Context, string) (*pipeline.Result, error) {
	r.mu.Lock()
	r.current++
	r.runs++
	r.peak = max(r.peak, r.current)
	r.mu.Unlock()

	<-r.release

	r.mu.Lock()
	r.current--
	r.mu.Unlock()

	return sampleResult(), nil
}

func (r *blockingRunner) inFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.current
}

func (r *blockingRunner) maxSeen() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.peak
}

func (r *blockingRunner) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.runs
}

func TestUpdateBackoffSeconds(t *testing.T) {
	if got := updateBackoffSeconds(3); got != 6 {
		t.Fatalf("expected 6, got %d", got)
	}

	if got := updateBackoffSeconds(48); got != maxBackoffSeconds {
		t.Fatalf("expected cap, got %d", got)
	}
}
