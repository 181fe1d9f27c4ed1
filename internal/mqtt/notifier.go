package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"rackwise-topology/internal/config"
	"rackwise-topology/internal/domain"
)

// Notifier MQTT 告警通知发布器
// 按严重级别分主题发布：rackwise/alerts/<severity>
type Notifier struct {
	client mqtt.Client
	config *config.MQTTConfig
	logger *zap.Logger
}

// NewNotifier 创建并连接 MQTT 发布器
func NewNotifier(cfg *config.MQTTConfig, logger *zap.Logger) (*Notifier, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	logger.Info("MQTT notifier connected", zap.String("broker", cfg.Broker))

	return &Notifier{
		client: client,
		config: cfg,
		logger: logger,
	}, nil
}

// NotifyAlert 发布告警消息
func (n *Notifier) NotifyAlert(ctx context.Context, alert *domain.Alert) error {
	topic := fmt.Sprintf("rackwise/alerts/%s", alert.Severity)

	payload, err := json.Marshal(alert.ToJSON())
	if err != nil {
		return fmt.Errorf("failed to marshal alert payload: %w", err)
	}

	token := n.client.Publish(topic, n.config.QoS, false, payload)
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

	n.logger.Debug("alert published",
		zap.String("topic", topic),
		zap.String("alert_id", alert.AlertID),
	)
	return nil
}

// Disconnect 断开连接
func (n *Notifier) Disconnect() {
	n.client.Disconnect(250)
}

// IsConnected 检查连接状态
func (n *Notifier) IsConnected() bool {
	return n.client.IsConnected()
}
