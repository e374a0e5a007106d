// Package domain 通知服务的领域模型
package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Channel 通知通道
type Channel string

const (
	ChannelEmail   Channel = "EMAIL"   // 管理员邮件
	ChannelWebhook Channel = "WEBHOOK" // 团队群 Webhook
	ChannelKafka   Channel = "KAFKA"   // 消息队列，由下游消费者执行投递
)

// Status 通知状态
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

// Notification 通知记录。每次提交触发的管理员通知都落库，便于排查漏通知。
type Notification struct {
	gorm.Model
	// NotificationID 通知 ID
	NotificationID string `gorm:"column:notification_id;type:varchar(36);uniqueIndex;not null" json:"notification_id"`
	// SubmissionID 关联的提交 ID
	SubmissionID string `gorm:"column:submission_id;type:varchar(36);index;not null" json:"submission_id"`
	// Channel 通知通道
	Channel Channel `gorm:"column:channel;type:varchar(20);not null" json:"channel"`
	// Subject 通知主题
	Subject string `gorm:"column:subject;type:varchar(200)" json:"subject"`
	// Content 通知内容
	Content string `gorm:"column:content;type:text" json:"content"`
	// Target 通知目标（邮箱地址、Webhook URL 或 topic）
	Target string `gorm:"column:target;type:varchar(200)" json:"target"`
	// Status 通知状态
	Status Status `gorm:"column:status;type:varchar(20);index;not null;default:'PENDING'" json:"status"`
	// ErrorMessage 发送失败原因
	ErrorMessage string `gorm:"column:error_message;type:text" json:"error_message"`
	// SentAt 发送成功时间
	SentAt *time.Time `gorm:"column:sent_at;type:datetime" json:"sent_at"`
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}

// MarkSent 标记发送成功
func (n *Notification) MarkSent(at time.Time) {
	n.Status = StatusSent
	n.SentAt = &at
}

// MarkFailed 标记发送失败并记录原因
func (n *Notification) MarkFailed(err error) {
	n.Status = StatusFailed
	if err != nil {
		n.ErrorMessage = err.Error()
	}
}

// Sender 单一通道的发送器
type Sender interface {
	Channel() Channel
	Send(ctx context.Context, target, subject, content string) error
}

// NotificationRepository 通知记录仓储
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	Save(ctx context.Context, n *Notification) error
	ListBySubmissionID(ctx context.Context, submissionID string) ([]*Notification, error)
}
