// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// SMTPConfig holds the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// deliverFunc sends one RFC 5322 message to a single recipient.
type deliverFunc func(ctx context.Context, to string, message []byte) error

// SMTPNotifier sends plain-text email through an SMTP relay.
type SMTPNotifier struct {
	config  SMTPConfig
	deliver deliverFunc
	now     func() time.Time
}

// NewSMTPNotifier creates an [SMTPNotifier].
func NewSMTPNotifier(config SMTPConfig) *SMTPNotifier {
	notifier := &SMTPNotifier{config: config, now: time.Now}
	notifier.deliver = notifier.dial
	return notifier
}

// Send implements [Notifier].
func (notifier *SMTPNotifier) Send(ctx context.Context, message Message) error {
	if err := notifier.deliver(ctx, message.To, notifier.compose(message)); err != nil {
		return fmt.Errorf("notify_smtp_send_failed: %w", err)
	}
	return nil
}

// compose renders the headers and body. Header values are stripped of line
// breaks so user-supplied data cannot inject extra headers.
func (notifier *SMTPNotifier) compose(message Message) []byte {
	var buffer bytes.Buffer

	writeHeader := func(name, value string) {
		buffer.WriteString(name)
		buffer.WriteString(": ")
		buffer.WriteString(stripLineBreaks(value))
		buffer.WriteString("\r\n")
	}

	writeHeader("From", notifier.config.From)
	writeHeader("To", message.To)
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", message.Subject))
	writeHeader("Date", notifier.now().Format(time.RFC1123Z))
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", `text/plain; charset="UTF-8"`)
	buffer.WriteString("\r\n")
	buffer.WriteString(strings.ReplaceAll(message.Body, "\n", "\r\n"))
	buffer.WriteString("\r\n")

	return buffer.Bytes()
}

// dial opens a connection bounded by ctx, upgrades to TLS when offered,
// authenticates when credentials are configured and submits the message.
func (notifier *SMTPNotifier) dial(ctx context.Context, to string, message []byte) error {
	address := net.JoinHostPort(notifier.config.Host, strconv.Itoa(notifier.config.Port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, notifier.config.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer func() { _ = client.Close() }()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: notifier.config.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}

	if notifier.config.Username != "" {
		auth := smtp.PlainAuth("", notifier.config.Username, notifier.config.Password, notifier.config.Host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(notifier.config.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	writer, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := writer.Write(message); err != nil {
		_ = writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	return client.Quit()
}

func stripLineBreaks(value string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(value)
}
