// Package application 通知服务的应用层。
// 通知是提交管线的后置副作用：任何通道失败只记日志和状态，不向上传播为提交失败。
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	intakedomain "github.com/risevoices/risevoices/internal/intake/domain"
	"github.com/risevoices/risevoices/internal/notification/domain"
	"github.com/risevoices/risevoices/pkg/logger"
)

// NotificationService 通知服务
type NotificationService struct {
	repo    domain.NotificationRepository
	senders []domain.Sender
	// adminEmail 邮件通道的收件人
	adminEmail string
	// webhookURL Webhook 通道的目标地址
	webhookURL string
	// topic Kafka 通道的主题
	topic string
	now   func() time.Time
}

// NewNotificationService 构造通知服务。senders 为空时服务只落库不投递。
func NewNotificationService(
	repo domain.NotificationRepository,
	senders []domain.Sender,
	adminEmail, webhookURL, topic string,
) *NotificationService {
	return &NotificationService{
		repo:       repo,
		senders:    senders,
		adminEmail: adminEmail,
		webhookURL: webhookURL,
		topic:      topic,
		now:        time.Now,
	}
}

// SubmissionReceived 新提交到达，向所有已配置通道投递管理员通知。
// 每个通道独立落库、独立成败。
func (s *NotificationService) SubmissionReceived(
	ctx context.Context,
	typ intakedomain.SubmissionType,
	submissionID, displayName, email string,
	flagged bool,
) error {
	subject := fmt.Sprintf("New %s submission", typ)
	if flagged {
		subject = fmt.Sprintf("New %s submission [needs review]", typ)
	}
	content := fmt.Sprintf(
		"submission_id: %s\nname: %s\nemail: %s\nflagged: %t",
		submissionID, displayName, email, flagged,
	)

	for _, sender := range s.senders {
		target := s.targetFor(sender.Channel())
		if target == "" {
			continue
		}

		n := &domain.Notification{
			NotificationID: uuid.New().String(),
			SubmissionID:   submissionID,
			Channel:        sender.Channel(),
			Subject:        subject,
			Content:        content,
			Target:         target,
			Status:         domain.StatusPending,
		}
		if s.repo != nil {
			if err := s.repo.Create(ctx, n); err != nil {
				logger.Error(ctx, "persist notification record failed",
					"submission_id", submissionID, "channel", sender.Channel(), "error", err)
			}
		}

		if err := sender.Send(ctx, target, subject, content); err != nil {
			n.MarkFailed(err)
			logger.Error(ctx, "notification send failed",
				"submission_id", submissionID, "channel", sender.Channel(), "error", err)
		} else {
			n.MarkSent(s.now())
		}

		if s.repo != nil {
			if err := s.repo.Save(ctx, n); err != nil {
				logger.Error(ctx, "update notification record failed",
					"notification_id", n.NotificationID, "error", err)
			}
		}
	}
	return nil
}

func (s *NotificationService) targetFor(ch domain.Channel) string {
	switch ch {
	case domain.ChannelEmail:
		return s.adminEmail
	case domain.ChannelWebhook:
		return s.webhookURL
	case domain.ChannelKafka:
		return s.topic
	default:
		return ""
	}
}
