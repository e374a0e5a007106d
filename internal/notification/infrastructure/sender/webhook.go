package sender

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/risevoices/risevoices/internal/notification/domain"
	"github.com/risevoices/risevoices/pkg/logger"
)

// WebhookSender 团队群 Webhook 发送器（Slack 兼容的 text 负载）
type WebhookSender struct {
	client *resty.Client
}

// NewWebhookSender 构造 Webhook 发送器
func NewWebhookSender() domain.Sender {
	return &WebhookSender{
		client: resty.New().SetTimeout(10 * time.Second),
	}
}

func (s *WebhookSender) Channel() domain.Channel { return domain.ChannelWebhook }

func (s *WebhookSender) Send(ctx context.Context, target, subject, content string) error {
	logger.Info(ctx, "sending webhook notification", "subject", subject)

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"text": fmt.Sprintf("*%s*\n%s", subject, content),
		}).
		Post(target)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("webhook status %d", resp.StatusCode())
	}
	return nil
}
