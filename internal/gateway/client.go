package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"rackwise-topology/internal/config"
	"rackwise-topology/internal/domain"
)

// notifyRequest 消息网关通知请求
type notifyRequest struct {
	Channel  string         `json:"channel"`
	Severity string         `json:"severity"`
	Subject  string         `json:"subject"`
	Body     string         `json:"body"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// notifyResponse 消息网关响应
type notifyResponse struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
}

// Client 外部消息网关客户端（告警通知的第二投递通道）
// 投递语义（去重、限流、收件人路由）全部在网关侧，这里只做一次可重试的 POST。
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient 创建消息网关客户端
func NewClient(cfg *config.GatewayConfig, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if cfg.APIKey != "" {
		client.SetHeader("X-API-Key", cfg.APIKey)
	}

	return &Client{
		httpClient: client,
		logger:     logger,
	}
}

// NotifyAlert 向消息网关投递一条告警通知
func (c *Client) NotifyAlert(ctx context.Context, alert *domain.Alert) error {
	subject := fmt.Sprintf("[%s] %s alert for %s %s",
		alert.Severity, alert.AlertType, alert.EntityKind, alert.EntityID)

	request := notifyRequest{
		Channel:  "capacity-alerts",
		Severity: alert.Severity,
		Subject:  subject,
		Body:     alert.Message.String,
		Metadata: map[string]any{
			"alert_id":     alert.AlertID,
			"entity_kind":  alert.EntityKind,
			"entity_id":    alert.EntityID,
			"measured_pct": alert.MeasuredPct,
		},
	}

	var response notifyResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("/v1/notifications")

	if err != nil {
		c.logger.Error("gateway notification failed",
			zap.Error(err),
			zap.Int("status_code", resp.StatusCode()),
		)
		return fmt.Errorf("failed to call messaging gateway: %w", err)
	}

	if response.Status != 0 {
		c.logger.Error("gateway returned error",
			zap.Int("status", response.Status),
			zap.String("msg", response.Msg),
		)
		return fmt.Errorf("messaging gateway error: %s (status: %d)", response.Msg, response.Status)
	}

	c.logger.Debug("alert delivered to gateway", zap.String("alert_id", alert.AlertID))
	return nil
}
