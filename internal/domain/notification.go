package domain

// NotificationChannel 通知渠道
type NotificationChannel string

const (
	ChannelEmail    NotificationChannel = "email"
	ChannelSMS      NotificationChannel = "sms"
	ChannelTelegram NotificationChannel = "telegram"
	ChannelDiscord  NotificationChannel = "discord"
	ChannelWebhook  NotificationChannel = "webhook"
)

// NotificationConfig 通知配置：启用的渠道加各渠道目标
type NotificationConfig struct {
	Channels []NotificationChannel `json:"channels"`

	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	TelegramBot    string `json:"telegram_bot_token,omitempty"`
	TelegramChat   string `json:"telegram_chat_id,omitempty"`
	DiscordWebhook string `json:"discord_webhook,omitempty"`
	WebhookURL     string `json:"webhook_url,omitempty"`
	WebhookToken   string `json:"webhook_token,omitempty"`
}

// Clone 返回独立副本，渠道列表不共享底层数组
func (n NotificationConfig) Clone() NotificationConfig {
	out := n
	if len(n.Channels) > 0 {
		out.Channels = append([]NotificationChannel(nil), n.Channels...)
	}
	return out
}

// HasChannel 是否启用了某个渠道
func (n *NotificationConfig) HasChannel(ch NotificationChannel) bool {
	for _, c := range n.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// Indicator 指标目录条目
type Indicator struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	IndicatorType string `json:"indicator_type"`
	Code          string `json:"code,omitempty"`
}

// IndicatorParam 指标参数定义
type IndicatorParam struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // int / float / bool / string
	Default     interface{} `json:"default"`
	Description string      `json:"description,omitempty"`
}
