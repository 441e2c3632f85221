package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stratbot/gostrat/internal/domain"
)

// ListVaultEntries 获取凭证库列表（掩码摘要，不含密钥明文）
func (c *Client) ListVaultEntries(ctx context.Context) ([]domain.VaultEntry, error) {
	var entries []domain.VaultEntry
	if err := c.call(ctx, http.MethodGet, EndpointListVault, nil, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetVaultEntry 获取单个凭证条目（含完整密钥）
func (c *Client) GetVaultEntry(ctx context.Context, id int64) (*domain.VaultEntry, error) {
	var entry domain.VaultEntry
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf(EndpointGetVault, id), nil, nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// CreateVaultEntry 保存一条交易所凭证
func (c *Client) CreateVaultEntry(ctx context.Context, entry *domain.VaultEntry) error {
	return c.call(ctx, http.MethodPost, EndpointCreateVault, nil, entry, nil)
}

// ConnectionTestRequest 交易所连接测试请求
type ConnectionTestRequest struct {
	ExchangeID string `json:"exchange_id"`
	APIKey     string `json:"api_key"`
	APISecret  string `json:"api_secret"`
	Passphrase string `json:"passphrase,omitempty"`
	MarketType string `json:"market_type"`
}

// ConnectionTestResult 连接测试结果
type ConnectionTestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TestExchangeConnection 测试加密货币交易所连接
func (c *Client) TestExchangeConnection(ctx context.Context, req *ConnectionTestRequest) (*ConnectionTestResult, error) {
	var result ConnectionTestResult
	if err := c.call(ctx, http.MethodPost, EndpointTestExchange, nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TestIBKRConnection 测试 IBKR 券商连接
func (c *Client) TestIBKRConnection(ctx context.Context, cfg *domain.IBKRBrokerConfig) (*ConnectionTestResult, error) {
	var result ConnectionTestResult
	if err := c.call(ctx, http.MethodPost, EndpointTestIBKR, nil, cfg, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TestMT5Connection 测试 MT5 终端连接
func (c *Client) TestMT5Connection(ctx context.Context, cfg *domain.MT5BrokerConfig) (*ConnectionTestResult, error) {
	var result ConnectionTestResult
	if err := c.call(ctx, http.MethodPost, EndpointTestMT5, nil, cfg, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// NotificationSettings 用户默认通知设置
type NotificationSettings struct {
	DefaultChannels []domain.NotificationChannel `json:"default_channels"`
	Email           string                       `json:"email,omitempty"`
	Phone           string                       `json:"phone,omitempty"`
	TelegramBot     string                       `json:"telegram_bot_token,omitempty"`
	TelegramChat    string                       `json:"telegram_chat_id,omitempty"`
	DiscordWebhook  string                       `json:"discord_webhook,omitempty"`
	WebhookURL      string                       `json:"webhook_url,omitempty"`
	WebhookToken    string                       `json:"webhook_token,omitempty"`
}

// GetNotificationSettings 获取用户默认通知设置
func (c *Client) GetNotificationSettings(ctx context.Context) (*NotificationSettings, error) {
	var settings NotificationSettings
	if err := c.call(ctx, http.MethodGet, EndpointNotificationSettings, nil, nil, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}
