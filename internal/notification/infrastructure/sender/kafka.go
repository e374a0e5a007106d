package sender

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/risevoices/risevoices/internal/notification/domain"
	"github.com/segmentio/kafka-go"
)

// KafkaSender 将通知指令推送到 Kafka，由下游消费者（邮件网关、IM 机器人）执行投递
type KafkaSender struct {
	writer *kafka.Writer
}

// notificationMessage 推送到 Kafka 的统一指令格式
type notificationMessage struct {
	Target  string `json:"target"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// NewKafkaSender 构造 Kafka 发送器
func NewKafkaSender(brokers []string, topic string) *KafkaSender {
	return &KafkaSender{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (s *KafkaSender) Channel() domain.Channel { return domain.ChannelKafka }

// Send 推送消息。Key 取 target，保证同一接收者的消息时序。
func (s *KafkaSender) Send(ctx context.Context, target, subject, content string) error {
	payload, err := json.Marshal(notificationMessage{
		Target:  target,
		Subject: subject,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("marshal notification message: %w", err)
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(target),
		Value: payload,
	})
}

// Close 关闭底层 writer
func (s *KafkaSender) Close() error {
	return s.writer.Close()
}
