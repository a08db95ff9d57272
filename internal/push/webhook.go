package push

import (
	"context"
	"time"

	"mediwatch-vitals/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client 通知推送网关客户端
// The real-time layer (socket rooms) lives in a separate gateway service;
// this client feeds it freshly created notifications over a webhook.
// Delivery is best-effort: failures are logged and the notification record
// stays authoritative.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient 创建推送客户端
func NewClient(gatewayURL string, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(gatewayURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		logger:     logger,
	}
}

// Push 推送一条通知到网关
func (c *Client) Push(ctx context.Context, n models.Notification) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(n).
		Post("/push/api/v1/notify")

	if err != nil {
		c.logger.Warn("Push gateway unreachable",
			zap.String("notification_id", n.NotificationID),
			zap.String("user_id", n.UserID),
			zap.Error(err),
		)
		return
	}

	if resp.IsError() {
		c.logger.Warn("Push gateway rejected notification",
			zap.String("notification_id", n.NotificationID),
			zap.String("user_id", n.UserID),
			zap.Int("status", resp.StatusCode()),
		)
		return
	}

	c.logger.Debug("Notification pushed",
		zap.String("notification_id", n.NotificationID),
		zap.String("user_id", n.UserID),
	)
}
