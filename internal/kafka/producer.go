package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/notebase/backend-go/internal/logger"
	"go.uber.org/zap"
)

// 文档生命周期事件类型
const (
	EventIngestionStarted = "ingestion_started"
	EventDocumentReady    = "document_ready"
	EventDocumentFailed   = "document_failed"
)

// DocumentEvent 文档生命周期事件
type DocumentEvent struct {
	Event      string    `json:"event"`
	DocumentID uint      `json:"document_id"`
	OwnerID    uint      `json:"owner_id"`
	FileName   string    `json:"file_name"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Producer Kafka生产者
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer 创建Kafka生产者
func NewProducer(brokers []string, topic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	logger.Info("Kafka producer initialized", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return &Producer{
		producer: producer,
		topic:    topic,
	}, nil
}

// SendDocumentEvent 发送文档生命周期事件。生产者为空时静默跳过，
// 事件投递失败只记录日志，不影响主流程。
func (p *Producer) SendDocumentEvent(event *DocumentEvent) error {
	if p == nil || p.producer == nil {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(fmt.Sprintf("doc-%d", event.DocumentID)),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send kafka message: %w", err)
	}

	logger.Debug("document event sent",
		zap.String("event", event.Event),
		zap.Uint("document_id", event.DocumentID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
