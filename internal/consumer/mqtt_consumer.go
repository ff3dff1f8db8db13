package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"wisefido-vitals/internal/evaluator"
	"wisefido-vitals/internal/models"
	mqttclient "wisefido-vitals/internal/mqtt"

	"go.uber.org/zap"
)

// SourceMQTT MQTT 采样来源标识
const SourceMQTT = "mqtt"

// Subscriber MQTT 订阅端（mqtt.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttclient.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// MQTTConsumer 订阅 vitals/{patient_id}/sample 并送入评估器
type MQTTConsumer struct {
	monitor    *evaluator.Monitor
	subscriber Subscriber
	topic      string
	qos        byte
	logger     *zap.Logger

	mu  sync.RWMutex
	ctx context.Context
}

// NewMQTTConsumer 创建 MQTT 采样消费者
func NewMQTTConsumer(monitor *evaluator.Monitor, subscriber Subscriber, topic string, qos byte, logger *zap.Logger) *MQTTConsumer {
	return &MQTTConsumer{
		monitor:    monitor,
		subscriber: subscriber,
		topic:      topic,
		qos:        qos,
		logger:     logger,
		ctx:        context.Background(),
	}
}

// Start 订阅采样主题，ctx 用于下游调用
func (c *MQTTConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	if err := c.subscriber.Subscribe(c.topic, c.qos, c.HandleMessage); err != nil {
		return fmt.Errorf("failed to start mqtt consumer: %w", err)
	}
	c.logger.Info("MQTT consumer started", zap.String("topic", c.topic))
	return nil
}

// Stop 取消订阅
func (c *MQTTConsumer) Stop() error {
	return c.subscriber.Unsubscribe(c.topic)
}

// HandleMessage 解析一条采样消息
func (c *MQTTConsumer) HandleMessage(topic string, payload []byte) error {
	patientID, err := PatientIDFromTopic(topic)
	if err != nil {
		return err
	}

	var sample models.VitalSample
	if err := json.Unmarshal(payload, &sample); err != nil {
		return fmt.Errorf("failed to decode sample for patient %s: %w", patientID, err)
	}

	c.mu.RLock()
	ctx := c.ctx
	c.mu.RUnlock()

	obs, err := c.monitor.Observe(ctx, patientID, sample, SourceMQTT)
	if err != nil {
		return fmt.Errorf("failed to observe sample for patient %s: %w", patientID, err)
	}

	c.logger.Debug("MQTT sample observed",
		zap.String("patient_id", patientID),
		zap.String("level", obs.Level.String()),
	)
	return nil
}

// PatientIDFromTopic 从 vitals/{patient_id}/sample 中取出 patient_id
func PatientIDFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "vitals" || parts[2] != "sample" || parts[1] == "" {
		return "", fmt.Errorf("unexpected sample topic: %s", topic)
	}
	return parts[1], nil
}
