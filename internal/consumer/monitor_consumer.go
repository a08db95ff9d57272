package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mediwatch-vitals/internal/config"
	"mediwatch-vitals/internal/models"
	"mediwatch-vitals/internal/service"

	mqttclient "mediwatch-vitals/internal/mqtt"

	"go.uber.org/zap"
)

// MonitorResolver 根据序列号解析监护仪绑定的患者
type MonitorResolver interface {
	GetMonitorBySerial(ctx context.Context, serialNumber string) (*models.Monitor, error)
}

// Ingester 读数接入管道（与 HTTP 入口共用）
type Ingester interface {
	Ingest(ctx context.Context, patientID string, vitals models.VitalReading, source string, recordedAt time.Time) (*service.IngestResult, error)
}

// monitorPayload 监护仪上报的 JSON 读数
// The device does not know its patient; the serial in the topic is resolved
// against the monitors table.
type monitorPayload struct {
	HeartRate       *float64 `json:"heart_rate"`
	SpO2            *float64 `json:"spo2"`
	Temperature     *float64 `json:"temperature"`
	Systolic        *float64 `json:"systolic"`
	Diastolic       *float64 `json:"diastolic"`
	RespiratoryRate *float64 `json:"respiratory_rate"`
	Timestamp       *int64   `json:"timestamp"` // Unix seconds
}

// MonitorConsumer 床旁监护仪 MQTT 消费者
type MonitorConsumer struct {
	config     *config.Config
	mqttClient *mqttclient.Client
	monitors   MonitorResolver
	ingester   Ingester
	logger     *zap.Logger
}

// NewMonitorConsumer 创建监护仪消费者
func NewMonitorConsumer(
	cfg *config.Config,
	mqttClient *mqttclient.Client,
	monitors MonitorResolver,
	ingester Ingester,
	logger *zap.Logger,
) *MonitorConsumer {
	return &MonitorConsumer{
		config:     cfg,
		mqttClient: mqttClient,
		monitors:   monitors,
		ingester:   ingester,
		logger:     logger,
	}
}

// Start 启动消费者
func (c *MonitorConsumer) Start(ctx context.Context) error {
	if err := c.mqttClient.Subscribe(c.config.MQTT.ReadingTopic, c.config.MQTT.QoS, c.HandleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to reading topic: %w", err)
	}

	c.logger.Info("Monitor consumer started",
		zap.String("topic", c.config.MQTT.ReadingTopic),
	)

	<-ctx.Done()
	return nil
}

// Stop 停止消费者
func (c *MonitorConsumer) Stop() error {
	if err := c.mqttClient.Unsubscribe(c.config.MQTT.ReadingTopic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}

	c.logger.Info("Monitor consumer stopped")
	return nil
}

// HandleMessage 处理一条监护仪消息
// Topic format: vitals/{serial}/reading. Malformed payloads and unknown
// monitors are logged and dropped; the subscription must survive bad input.
func (c *MonitorConsumer) HandleMessage(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return fmt.Errorf("invalid topic format: %s", topic)
	}
	serial := parts[1]

	var data monitorPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return fmt.Errorf("failed to unmarshal monitor payload: %w", err)
	}
	if data.HeartRate == nil || data.SpO2 == nil || data.Temperature == nil {
		return fmt.Errorf("monitor payload missing required channels: serial=%s", serial)
	}

	ctx := context.Background()

	monitor, err := c.monitors.GetMonitorBySerial(ctx, serial)
	if err != nil {
		c.logger.Warn("Monitor not found, dropping reading",
			zap.String("serial_number", serial),
			zap.Error(err),
		)
		return fmt.Errorf("monitor not found: %s", serial)
	}

	vitals := models.VitalReading{
		HeartRate:       *data.HeartRate,
		SpO2:            *data.SpO2,
		Temperature:     *data.Temperature,
		RespiratoryRate: data.RespiratoryRate,
	}
	if data.Systolic != nil && data.Diastolic != nil {
		vitals.BloodPressure = &models.BloodPressure{
			Systolic:  *data.Systolic,
			Diastolic: *data.Diastolic,
		}
	}

	var recordedAt time.Time
	if data.Timestamp != nil {
		recordedAt = time.Unix(*data.Timestamp, 0)
	}

	result, err := c.ingester.Ingest(ctx, monitor.PatientID, vitals, "monitor", recordedAt)
	if err != nil {
		return fmt.Errorf("failed to ingest monitor reading: %w", err)
	}

	c.logger.Debug("Monitor reading ingested",
		zap.String("serial_number", serial),
		zap.String("patient_id", monitor.PatientID),
		zap.String("reading_id", result.Reading.ReadingID),
		zap.Bool("is_critical", result.IsCritical),
	)

	return nil
}
