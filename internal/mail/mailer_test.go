package mail

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmanager/internal/logging"
)

type recordingSender struct {
	mu      sync.Mutex
	sent    []Message
	started chan struct{}
	release chan struct{}
	err     error
}

func (s *recordingSender) Send(msg Message) error {
	if s.started != nil {
		s.started <- struct{}{}
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *recordingSender) messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}

func TestAsyncMailer_SendWelcome(t *testing.T) {
	sender := &recordingSender{}
	m, err := NewAsyncMailer(sender, logging.Nop(), 10)
	require.NoError(t, err)

	m.SendWelcome(context.Background(), "mike@gmail.com", "mike")
	m.Close()

	sent := sender.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "mike@gmail.com", sent[0].To)
	assert.Equal(t, "Thanks for joining in!", sent[0].Subject)
	assert.Contains(t, sent[0].PlainBody, "Welcome to the app, mike.")
	assert.Contains(t, sent[0].HTMLBody, "Welcome to the app, mike.")
}

func TestAsyncMailer_SendCancellation(t *testing.T) {
	sender := &recordingSender{}
	m, err := NewAsyncMailer(sender, logging.Nop(), 10)
	require.NoError(t, err)

	m.SendCancellation(context.Background(), "jess@example.com", "Jess")
	m.Close()

	sent := sender.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Sorry to see you go!", sent[0].Subject)
	assert.Contains(t, sent[0].PlainBody, "Goodbye, Jess.")
}

func TestAsyncMailer_EscapesNameInHTML(t *testing.T) {
	sender := &recordingSender{}
	m, err := NewAsyncMailer(sender, logging.Nop(), 10)
	require.NoError(t, err)

	m.SendWelcome(context.Background(), "x@example.com", "<b>x</b>")
	m.Close()

	sent := sender.messages()
	require.Len(t, sent, 1)
	assert.NotContains(t, sent[0].HTMLBody, "<b>x</b>")
	assert.Contains(t, sent[0].HTMLBody, "&lt;b&gt;x&lt;/b&gt;")
}

func TestAsyncMailer_PlainPartsAreNotEscaped(t *testing.T) {
	sender := &recordingSender{}
	m, err := NewAsyncMailer(sender, logging.Nop(), 10)
	require.NoError(t, err)

	m.SendCancellation(context.Background(), "ob@example.com", "O'Brien")
	m.Close()

	sent := sender.messages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].PlainBody, "Goodbye, O'Brien.")
	assert.NotContains(t, sent[0].PlainBody, "&#39;")
	assert.NotContains(t, sent[0].Subject, "&")
	assert.Contains(t, sent[0].HTMLBody, "O&#39;Brien")
}

func TestAsyncMailer_DropsWhenQueueFull(t *testing.T) {
	var buf bytes.Buffer
	sender := &recordingSender{
		started: make(chan struct{}, 3),
		release: make(chan struct{}),
	}
	m, err := NewAsyncMailer(sender, logging.New(&buf, "warn"), 1)
	require.NoError(t, err)
	ctx := context.Background()

	m.SendWelcome(ctx, "a@example.com", "a")
	<-sender.started // worker is busy with the first message

	m.SendWelcome(ctx, "b@example.com", "b") // fills the queue
	m.SendWelcome(ctx, "c@example.com", "c") // dropped

	close(sender.release)
	m.Close()

	sent := sender.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, "a@example.com", sent[0].To)
	assert.Equal(t, "b@example.com", sent[1].To)
	assert.Contains(t, buf.String(), "mail queue full")
	assert.Contains(t, buf.String(), "c@example.com")
}

func TestAsyncMailer_LogsSendErrors(t *testing.T) {
	var buf bytes.Buffer
	sender := &recordingSender{err: errors.New("relay down")}
	m, err := NewAsyncMailer(sender, logging.New(&buf, "error"), 10)
	require.NoError(t, err)

	m.SendWelcome(context.Background(), "mike@gmail.com", "mike")
	m.Close()

	assert.Contains(t, buf.String(), "relay down")
}

func TestAsyncMailer_CloseIsIdempotent(t *testing.T) {
	m, err := NewAsyncMailer(&recordingSender{}, logging.Nop(), 0)
	require.NoError(t, err)
	m.Close()
	m.Close()
}

func TestAsyncMailer_SendAfterCloseIsDropped(t *testing.T) {
	var buf bytes.Buffer
	sender := &recordingSender{}
	m, err := NewAsyncMailer(sender, logging.New(&buf, "warn"), 10)
	require.NoError(t, err)
	m.Close()

	assert.NotPanics(t, func() {
		m.SendWelcome(context.Background(), "late@example.com", "late")
	})
	assert.Empty(t, sender.messages())
	assert.Contains(t, buf.String(), "mailer closed")
	assert.Contains(t, buf.String(), "late@example.com")
}
