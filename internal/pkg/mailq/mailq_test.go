package mailq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testStream = "joyxora:mail:queue"

// stubSender 记录发送调用，可配置失败。
type stubSender struct {
	mu       sync.Mutex
	welcomes []string
	resets   []string
	failWith error
}

func (s *stubSender) SendWelcome(ctx context.Context, email string, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.welcomes = append(s.welcomes, email)
	return nil
}

func (s *stubSender) SendResetLink(ctx context.Context, email string, username string, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.resets = append(s.resets, token)
	return nil
}

func TestProducerConsumerRoundTrip(t *testing.T) {
	ctx := context.Background()
	rdb, cleanup := newMiniRedis(t)
	defer cleanup()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	producer := NewProducer(rdb, logger, testStream)
	consumer, err := NewConsumer(rdb, logger, testStream, "test_group", "c1")
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	if err := producer.EnqueueReset(ctx, "ada@example.com", "ada", "reset-token-64", 7); err != nil {
		t.Fatalf("enqueue reset: %v", err)
	}

	read := readOneMail(t, consumer, ctx)
	m := read.Message
	if m.Kind != KindReset || m.To != "ada@example.com" || m.Username != "ada" {
		t.Fatalf("unexpected message: %+v", m)
	}
	if m.Token != "reset-token-64" || m.UserID != 7 {
		t.Fatalf("reset fields lost: %+v", m)
	}
	if m.ID == "" {
		t.Fatal("expected generated mail id")
	}

	if err := consumer.Ack(ctx, read.ID); err != nil {
		t.Fatalf("ack: %v", err)
	}
	waitForPendingCount(t, rdb, testStream, "test_group", 0)
}

func TestProducerValidation(t *testing.T) {
	ctx := context.Background()
	rdb, cleanup := newMiniRedis(t)
	defer cleanup()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	producer := NewProducer(rdb, logger, testStream)

	if err := producer.EnqueueWelcome(ctx, "", "ada"); err == nil {
		t.Fatal("expected error for empty recipient")
	}
	if err := producer.EnqueueReset(ctx, "ada@example.com", "ada", "", 7); err == nil {
		t.Fatal("expected error for empty token")
	}
	if n := xlen(t, rdb, testStream); n != 0 {
		t.Fatalf("expected empty stream, got %d", n)
	}
}

func TestRunnerHandleMessage_SuccessAck(t *testing.T) {
	ctx := context.Background()
	rdb, cleanup := newMiniRedis(t)
	defer cleanup()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	consumer, err := NewConsumer(rdb, logger, testStream, "test_group", "c1")
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	addMailMessage(t, rdb, NewWelcomeMessage("ada@example.com", "ada"))
	read := readOneMail(t, consumer, ctx)

	sender := &stubSender{}
	r := NewRunner(consumer, sender, logger, time.Second)
	r.handleMessage(ctx, read)

	waitForPendingCount(t, rdb, testStream, "test_group", 0)
	if len(sender.welcomes) != 1 || sender.welcomes[0] != "ada@example.com" {
		t.Fatalf("expected welcome sent, got %+v", sender.welcomes)
	}
}

func TestRunnerHandleMessage_Retry(t *testing.T) {
	ctx := context.Background()
	rdb, cleanup := newMiniRedis(t)
	defer cleanup()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	consumer, err := NewConsumer(rdb, logger, testStream, "test_group", "c1", WithMaxRetry(2))
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	addMailMessage(t, rdb, NewResetMessage("ada@example.com", "ada", "reset-token", 7))
	read := readOneMail(t, consumer, ctx)

	sender := &stubSender{failWith: errors.New("smtp boom")}
	r := NewRunner(consumer, sender, logger, time.Second)
	r.handleMessage(ctx, read)

	waitForPendingCount(t, rdb, testStream, "test_group", 0)

	last := lastStreamMessage(t, rdb, testStream)
	if last == "" {
		t.Fatal("expected retry message republished")
	}
	var parsed MailMessage
	if err := json.Unmarshal([]byte(last), &parsed); err != nil {
		t.Fatalf("unmarshal retry msg: %v", err)
	}
	if parsed.Retry != 1 {
		t.Fatalf("expected retry=1, got %d", parsed.Retry)
	}
	if parsed.Token != "reset-token" {
		t.Fatal("retry message lost the reset token")
	}
}

func TestRunnerHandleMessage_DLQ(t *testing.T) {
	ctx := context.Background()
	rdb, cleanup := newMiniRedis(t)
	defer cleanup()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	consumer, err := NewConsumer(rdb, logger, testStream, "test_group", "c1", WithMaxRetry(0))
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	addMailMessage(t, rdb, NewResetMessage("ada@example.com", "ada", "reset-token", 7))
	read := readOneMail(t, consumer, ctx)

	var dead *MailMessage
	var deadCause error
	sender := &stubSender{failWith: errors.New("smtp boom")}
	r := NewRunner(consumer, sender, logger, time.Second)
	r.SetDeadMailHandler(func(msg *MailMessage, cause error) {
		dead = msg
		deadCause = cause
	})
	r.handleMessage(ctx, read)

	waitForPendingCount(t, rdb, testStream, "test_group", 0)
	if n := xlen(t, rdb, testStream+":dlq"); n == 0 {
		t.Fatal("expected DLQ message")
	}
	if dead == nil {
		t.Fatal("expected dead mail handler to be called")
	}
	if dead.UserID != 7 || dead.Kind != KindReset {
		t.Fatalf("dead mail handler got wrong message: %+v", dead)
	}
	if deadCause == nil {
		t.Fatal("expected dead mail cause")
	}
}

func TestConsumer_PoisonMessage(t *testing.T) {
	ctx := context.Background()
	rdb, cleanup := newMiniRedis(t)
	defer cleanup()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	consumer, err := NewConsumer(rdb, logger, testStream, "test_group", "c1")
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	_, err = rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: testStream,
		Values: map[string]interface{}{"data": "not json"},
	}).Result()
	if err != nil {
		t.Fatalf("xadd: %v", err)
	}

	msgs, err := consumer.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected poison message to be filtered, got %d", len(msgs))
	}

	if n := xlen(t, rdb, testStream+":dlq"); n == 0 {
		t.Fatal("expected poison message in DLQ")
	}
	waitForPendingCount(t, rdb, testStream, "test_group", 0)
}

func TestRunnerStartStop(t *testing.T) {
	rdb, cleanup := newMiniRedis(t)
	defer cleanup()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	producer := NewProducer(rdb, logger, testStream)
	consumer, err := NewConsumer(rdb, logger, testStream, "test_group", "c1", WithBlockTime(50*time.Millisecond))
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	sender := &stubSender{}
	r := NewRunner(consumer, sender, logger, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	if err := producer.EnqueueWelcome(context.Background(), "ada@example.com", "ada"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sender.mu.Lock()
		n := len(sender.welcomes)
		sender.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	r.Stop()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.welcomes) != 1 {
		t.Fatalf("expected 1 welcome sent by the loop, got %d", len(sender.welcomes))
	}
}

func newMiniRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	return rdb, func() {
		_ = rdb.Close()
		s.Close()
	}
}

func addMailMessage(t *testing.T, rdb *redis.Client, msg *MailMessage) string {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal msg: %v", err)
	}
	id, err := rdb.XAdd(context.Background(), &redis.XAddArgs{
		Stream: testStream,
		Values: map[string]interface{}{"data": string(data)},
	}).Result()
	if err != nil {
		t.Fatalf("xadd: %v", err)
	}
	return id
}

func readOneMail(t *testing.T, consumer *Consumer, ctx context.Context) *MessageWithID {
	t.Helper()
	msgs, err := consumer.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(msgs) == 0 {
		t.Fatalf("expected message")
	}
	return msgs[0]
}

func waitForPendingCount(t *testing.T, rdb *redis.Client, stream, group string, want int64) {
	t.Helper()
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		info, err := rdb.XPending(context.Background(), stream, group).Result()
		if err == nil && info.Count == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("pending count not %d", want)
}

func lastStreamMessage(t *testing.T, rdb *redis.Client, stream string) string {
	t.Helper()
	msgs, err := rdb.XRevRangeN(context.Background(), stream, "+", "-", 1).Result()
	if err != nil || len(msgs) == 0 {
		return ""
	}
	val, ok := msgs[0].Values["data"].(string)
	if !ok {
		return ""
	}
	return val
}

func xlen(t *testing.T, rdb *redis.Client, stream string) int64 {
	t.Helper()
	val, err := rdb.XLen(context.Background(), stream).Result()
	if err != nil {
		t.Fatalf("xlen: %v", err)
	}
	return val
}
