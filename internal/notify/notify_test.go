// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// # Templates

func TestOTPCode(t *testing.T) {
	message := OTPCode("a@x.com", "012345", PurposeVerification, 10*time.Minute)
	assert.Equal(t, KindOTP, message.Kind)
	assert.Contains(t, message.Body, "012345")
	assert.Contains(t, message.Body, "10 minutes")

	reset := OTPCode("a@x.com", "999999", PurposeReset, 10*time.Minute)
	assert.Contains(t, reset.Subject, "reset")
}

func TestMinutes(t *testing.T) {
	assert.Equal(t, 15, Minutes(15*time.Minute))
	assert.Equal(t, 2, Minutes(61*time.Second))
	assert.Equal(t, 1, Minutes(0))
}

// # SMTP

func TestSMTPNotifier_Compose(t *testing.T) {
	var gotTo string
	var gotBody []byte

	notifier := NewSMTPNotifier(SMTPConfig{Host: "smtp.local", Port: 25, From: "noreply@x.com"})
	notifier.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	notifier.deliver = func(_ context.Context, to string, message []byte) error {
		gotTo, gotBody = to, message
		return nil
	}

	err := notifier.Send(context.Background(), Message{
		To:      "alice@x.com",
		Subject: "Hi\r\nBcc: evil@x.com",
		Body:    "line1\nline2",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice@x.com", gotTo)
	raw := string(gotBody)
	assert.Contains(t, raw, "From: noreply@x.com\r\n")
	assert.Contains(t, raw, "To: alice@x.com\r\n")
	assert.NotContains(t, raw, "\r\nBcc:")
	assert.True(t, strings.HasSuffix(raw, "line1\r\nline2\r\n"))
}

func TestSMTPNotifier_WrapsDeliveryError(t *testing.T) {
	notifier := NewSMTPNotifier(SMTPConfig{Host: "smtp.local", Port: 25, From: "f@x.com"})
	notifier.deliver = func(context.Context, string, []byte) error { return errors.New("refused") }

	err := notifier.Send(context.Background(), Message{To: "a@x.com"})
	assert.ErrorContains(t, err, "notify_smtp_send_failed")
}

// # Kafka

type fakeWriter struct {
	messages []kafka.Message
	closed   bool
}

func (writer *fakeWriter) WriteMessages(_ context.Context, messages ...kafka.Message) error {
	writer.messages = append(writer.messages, messages...)
	return nil
}

func (writer *fakeWriter) Close() error {
	writer.closed = true
	return nil
}

func TestKafkaNotifier_Send(t *testing.T) {
	writer := &fakeWriter{}
	notifier := newKafkaNotifier(writer)

	require.NoError(t, notifier.Send(context.Background(), AccountLocked("bob@x.com", 15*time.Minute)))
	require.NoError(t, notifier.Close())

	require.Len(t, writer.messages, 1)
	assert.Equal(t, []byte("bob@x.com"), writer.messages[0].Key)

	var decoded Message
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &decoded))
	assert.Equal(t, KindAccountLocked, decoded.Kind)
	assert.Contains(t, decoded.Body, "15 minutes")
	assert.True(t, writer.closed)
}

// # Dispatcher

type recordingNotifier struct {
	mu       sync.Mutex
	messages []Message
	block    chan struct{}
}

func (notifier *recordingNotifier) Send(_ context.Context, message Message) error {
	if notifier.block != nil {
		<-notifier.block
	}
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	notifier.messages = append(notifier.messages, message)
	return nil
}

func (notifier *recordingNotifier) count() int {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	return len(notifier.messages)
}

func TestDispatcher_CloseDrainsQueue(t *testing.T) {
	backend := &recordingNotifier{}
	dispatcher := NewDispatcher(backend, 16, discardLogger())

	for i := 0; i < 10; i++ {
		require.NoError(t, dispatcher.Send(context.Background(), Message{To: "a@x.com"}))
	}
	dispatcher.Close()

	assert.Equal(t, 10, backend.count())
	assert.Zero(t, dispatcher.Dropped())
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	backend := &recordingNotifier{block: make(chan struct{})}
	dispatcher := NewDispatcher(backend, 1, discardLogger())

	// The worker holds one message while blocked, the queue holds one more.
	for i := 0; i < 5; i++ {
		_ = dispatcher.Send(context.Background(), Message{To: "a@x.com"})
	}
	close(backend.block)
	dispatcher.Close()

	assert.Equal(t, uint64(5), dispatcher.Dropped()+uint64(backend.count()))
	assert.Positive(t, dispatcher.Dropped())
}

func TestDispatcher_SendAfterClose(t *testing.T) {
	backend := &recordingNotifier{}
	dispatcher := NewDispatcher(backend, 4, discardLogger())
	dispatcher.Close()
	dispatcher.Close()

	require.NoError(t, dispatcher.Send(context.Background(), Message{To: "a@x.com"}))
	assert.Equal(t, uint64(1), dispatcher.Dropped())
	assert.Zero(t, backend.count())
}

func TestDispatcher_ConcurrentCloseLosesNothing(t *testing.T) {
	for round := 0; round < 50; round++ {
		backend := &recordingNotifier{}
		dispatcher := NewDispatcher(backend, 64, discardLogger())

		const senders, perSender = 8, 20
		var wg sync.WaitGroup
		for i := 0; i < senders; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < perSender; j++ {
					_ = dispatcher.Send(context.Background(), Message{To: "a@x.com"})
				}
			}()
		}
		dispatcher.Close()
		wg.Wait()

		// Every message is either delivered or counted as dropped.
		assert.Equal(t, uint64(senders*perSender), dispatcher.Dropped()+uint64(backend.count()))
	}
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, NewLogNotifier(discardLogger()).Send(context.Background(), UserApproved("a@x.com")))
}
