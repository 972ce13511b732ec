package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"sync"
	"text/template"

	"github.com/go-mail/mail/v2"

	"taskmanager/internal/logging"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	templateWelcome      = "welcome.tmpl"
	templateCancellation = "cancellation.tmpl"

	sendAttempts = 3
)

// Message is a rendered e-mail.
type Message struct {
	To        string
	Subject   string
	PlainBody string
	HTMLBody  string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(msg Message) error
}

// Mailer sends account e-mails without blocking the caller.
type Mailer interface {
	SendWelcome(ctx context.Context, email, name string)
	SendCancellation(ctx context.Context, email, name string)
}

// SMTPSender delivers messages through an SMTP relay.
type SMTPSender struct {
	dialer *mail.Dialer
	sender string
}

// NewSMTPSender creates a sender for the given relay.
func NewSMTPSender(host string, port int, username, password, sender string) *SMTPSender {
	return &SMTPSender{
		dialer: mail.NewDialer(host, port, username, password),
		sender: sender,
	}
}

// Send dials the relay and sends msg, retrying a bounded number of times.
func (s *SMTPSender) Send(msg Message) error {
	m := mail.NewMessage()
	m.SetHeader("To", msg.To)
	m.SetHeader("From", s.sender)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.PlainBody)
	m.AddAlternative("text/html", msg.HTMLBody)

	var err error
	for i := 0; i < sendAttempts; i++ {
		if err = s.dialer.DialAndSend(m); err == nil {
			return nil
		}
	}
	return err
}

// LogSender only logs messages. Used when no SMTP relay is configured.
type LogSender struct {
	log logging.Logger
}

// NewLogSender creates a sender that writes messages to the log.
func NewLogSender(log logging.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send logs the message envelope.
func (s *LogSender) Send(msg Message) error {
	s.log.Info(context.Background(), "mail delivery disabled, message not sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

// mailTemplate holds one template file parsed twice: subject and plain
// body render as text, the HTML body with contextual escaping.
type mailTemplate struct {
	text *template.Template
	html *htmltemplate.Template
}

// AsyncMailer renders messages and hands them to a single background
// worker. A full queue drops the message with a warning.
type AsyncMailer struct {
	sender    Sender
	log       logging.Logger
	templates map[string]mailTemplate
	queue     chan Message
	wg        sync.WaitGroup

	mu     sync.Mutex // guards closed and sends on queue
	closed bool
}

// Ensure AsyncMailer implements Mailer
var _ Mailer = (*AsyncMailer)(nil)

// NewAsyncMailer parses the templates and starts the delivery worker.
func NewAsyncMailer(sender Sender, log logging.Logger, queueSize int) (*AsyncMailer, error) {
	templates := make(map[string]mailTemplate)
	for _, name := range []string{templateWelcome, templateCancellation} {
		text, err := template.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse mail template %s: %w", name, err)
		}
		html, err := htmltemplate.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse mail template %s: %w", name, err)
		}
		templates[name] = mailTemplate{text: text, html: html}
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	m := &AsyncMailer{
		sender:    sender,
		log:       log,
		templates: templates,
		queue:     make(chan Message, queueSize),
	}
	m.wg.Add(1)
	go m.worker()
	return m, nil
}

// SendWelcome queues the signup e-mail.
func (m *AsyncMailer) SendWelcome(ctx context.Context, email, name string) {
	m.enqueue(ctx, templateWelcome, email, name)
}

// SendCancellation queues the account deletion e-mail.
func (m *AsyncMailer) SendCancellation(ctx context.Context, email, name string) {
	m.enqueue(ctx, templateCancellation, email, name)
}

// Close stops accepting messages and waits for the queue to drain.
// Messages sent after Close are dropped with a warning.
func (m *AsyncMailer) Close() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.queue)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *AsyncMailer) enqueue(ctx context.Context, name, to, userName string) {
	msg, err := m.render(name, to, map[string]string{"Name": userName})
	if err != nil {
		m.log.Error(ctx, "render mail", "template", name, "error", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		m.log.Warn(ctx, "mailer closed, dropping message", "to", to, "subject", msg.Subject)
		return
	}
	select {
	case m.queue <- msg:
	default:
		m.log.Warn(ctx, "mail queue full, dropping message", "to", to, "subject", msg.Subject)
	}
}

func (m *AsyncMailer) render(name, to string, data any) (Message, error) {
	tmpl, ok := m.templates[name]
	if !ok {
		return Message{}, fmt.Errorf("template %q not found", name)
	}

	var subject, plain, html bytes.Buffer
	if err := tmpl.text.ExecuteTemplate(&subject, "subject", data); err != nil {
		return Message{}, err
	}
	if err := tmpl.text.ExecuteTemplate(&plain, "plainBody", data); err != nil {
		return Message{}, err
	}
	if err := tmpl.html.ExecuteTemplate(&html, "htmlBody", data); err != nil {
		return Message{}, err
	}

	return Message{
		To:        to,
		Subject:   subject.String(),
		PlainBody: plain.String(),
		HTMLBody:  html.String(),
	}, nil
}

func (m *AsyncMailer) worker() {
	defer m.wg.Done()
	for msg := range m.queue {
		if err := m.sender.Send(msg); err != nil {
			m.log.Error(context.Background(), "send mail", "to", msg.To, "subject", msg.Subject, "error", err)
		}
	}
}
