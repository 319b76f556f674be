// Package mail は認証コードメールの送信を提供する。
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
)

// SMTPConfig はSMTP送信の設定。
type SMTPConfig struct {
	Addr     string // host:port
	From     string
	Username string
	Password string
}

// SMTPSender はnet/smtpを使った認証コードメールのセンダー。
type SMTPSender struct {
	config SMTPConfig
}

// NewSMTPSender はSMTPSenderを生成する。
func NewSMTPSender(config SMTPConfig) *SMTPSender {
	return &SMTPSender{config: config}
}

// Send は認証コードをメールで送信する。
func (s *SMTPSender) Send(ctx context.Context, email, code string) error {
	var auth smtp.Auth
	if s.config.Username != "" {
		host, _, err := net.SplitHostPort(s.config.Addr)
		if err != nil {
			return fmt.Errorf("invalid smtp address %q: %w", s.config.Addr, err)
		}
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, host)
	}

	msg := buildMessage(s.config.From, email, code)
	if err := smtp.SendMail(s.config.Addr, auth, s.config.From, []string{email}, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// buildMessage は認証コードメールの本文を組み立てる。
func buildMessage(from, to, code string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: =?UTF-8?B?7J247Kad7ZmV7J24IOy9lOuTnA==?=\r\n") // 인증확인 코드
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString("인증 코드: " + code + "\r\n")
	b.WriteString("5분 안에 입력해 주세요.\r\n")
	return []byte(b.String())
}

// LogSender は配送の代わりにログへ書き出すセンダー。
// SMTPが未設定のローカル環境で使用する。
type LogSender struct{}

// Send は認証コードをログに出力する。
func (LogSender) Send(ctx context.Context, email, code string) error {
	slog.Info("verification mail",
		slog.String("email", email),
		slog.String("code", code),
	)
	return nil
}
