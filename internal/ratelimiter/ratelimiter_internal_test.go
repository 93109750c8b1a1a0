package ratelimiter

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type stubClient struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	sentAt   []time.Time
	requests int
	err      error
}

func (s *stubClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, c)
	s.sentAt = append(s.sentAt, time.Now())

	return tgbotapi.Message{MessageID: len(s.sent)}, s.err
}

func (s *stubClient) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++

	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (s *stubClient) times() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]time.Time(nil), s.sentAt...)
}

func TestSendSpacesMessagesPerChat(t *testing.T) {
	client := &stubClient{}
	rl := New(client, slog.Default())
	defer rl.Stop()

	ctx := context.Background()

	for range 2 {
		if _, err := rl.Send(ctx, tgbotapi.NewMessage(42, "hi")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	times := client.times()
	if len(times) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(times))
	}

	if gap := times[1].Sub(times[0]); gap < privateChatRate-50*time.Millisecond {
		t.Fatalf("expected spacing near %s, got %s", privateChatRate, gap)
	}
}

func TestSendReturnsClientError(t *testing.T) {
	client := &stubClient{err: errors.New("bad request")}
	rl := New(client, slog.Default())
	defer rl.Stop()

	msg, err := rl.Send(context.Background(), tgbotapi.NewMessage(1, "hi"))
	if err == nil || err.Error() != "bad request" {
		t.Fatalf("expected client error, got %v", err)
	}

	if msg.MessageID != 1 {
		t.Fatalf("expected message to be returned alongside error")
	}
}

func TestSendCanceledWhileWaiting(t *testing.T) {
	client := &stubClient{}
	rl := New(client, slog.Default())
	defer rl.Stop()

	if _, err := rl.Send(context.Background(), tgbotapi.NewMessage(-100, "first")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := rl.Send(ctx, tgbotapi.NewMessage(-100, "second"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestSendAfterStop(t *testing.T) {
	rl := New(&stubClient{}, slog.Default())
	rl.Stop()

	if _, err := rl.Send(context.Background(), tgbotapi.NewMessage(1, "hi")); err == nil {
		t.Fatalf("expected error after stop")
	}
}

func TestSweepRemovesIdleChats(t *testing.T) {
	rl := New(&stubClient{}, slog.Default())
	defer rl.Stop()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.mu.Lock()
	rl.lastSent[1] = now.Add(-2 * time.Hour)
	rl.lastSent[2] = now.Add(-time.Minute)
	rl.lastSent[-3] = now.Add(-90 * time.Minute)
	rl.mu.Unlock()

	if removed := rl.Sweep(time.Hour); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}

	if rl.Tracked() != 1 {
		t.Fatalf("expected 1 tracked chat, got %d", rl.Tracked())
	}
}

func TestGetDelay(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		chatID   int64
		lastSent time.Time
		want     time.Duration
	}{
		{
			"Private chat - no delay needed",
			123456789,
			now.Add(-2 * time.Second),
			0,
		},
		{
			"Private chat - delay needed",
			123456789,
			now.Add(-200 * time.Millisecond),
			800 * time.Millisecond,
		},
		{
			"Group chat - no delay needed",
			-123456789,
			now.Add(-4 * time.Second),
			0,
		},
		{
			"Group chat - delay needed",
			-123456789,
			now.Add(-1 * time.Second),
			2 * time.Second,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := getDelay(test.chatID, test.lastSent, now); got != test.want {
				t.Errorf("Expected %v delay, got %v", test.want, got)
			}
		})
	}
}

func TestGetChatID(t *testing.T) {
	tests := []struct {
		name    string
		message tgbotapi.Chattable
		want    int64
	}{
		{
			"MessageConfig",
			tgbotapi.NewMessage(12345, "test"),
			12345,
		},
		{
			"ChatActionConfig",
			tgbotapi.NewChatAction(67890, tgbotapi.ChatTyping),
			67890,
		},
		{
			"Unknown",
			tgbotapi.NewCallback("id", "text"),
			0,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := getChatID(test.message); got != test.want {
				t.Errorf("Expected %v chatID, got %v", test.want, got)
			}
		})
	}
}

func TestRequestBypassesQueue(t *testing.T) {
	client := &stubClient{}
	rl := New(client, slog.Default())
	defer rl.Stop()

	if _, err := rl.Request(tgbotapi.NewChatAction(1, tgbotapi.ChatTyping)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	client.mu.Lock()
	defer client.mu.Unlock()

	if client.requests != 1 || len(client.sent) != 0 {
		t.Fatalf("unexpected client usage: requests=%d sent=%d", client.requests, len(client.sent))
	}
}
