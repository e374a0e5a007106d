// Package sender 各通知通道的发送器实现
package sender

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/risevoices/risevoices/internal/notification/domain"
	"github.com/risevoices/risevoices/pkg/logger"
)

// SMTPSender 管理员邮件发送器
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// NewSMTPSender 构造邮件发送器
func NewSMTPSender(host, port, username, password, from string) domain.Sender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (s *SMTPSender) Channel() domain.Channel { return domain.ChannelEmail }

func (s *SMTPSender) Send(ctx context.Context, target, subject, content string) error {
	logger.Info(ctx, "sending admin email", "target", target, "subject", subject)

	msg := []byte("To: " + target + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		content + "\r\n")

	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	return smtp.SendMail(addr, auth, s.from, []string{target}, msg)
}
