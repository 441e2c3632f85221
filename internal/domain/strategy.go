package domain

import "strings"

// StrategyStatus 策略运行状态
type StrategyStatus string

const (
	StatusRunning StrategyStatus = "running"
	StatusStopped StrategyStatus = "stopped"
	StatusError   StrategyStatus = "error"
)

// IsRunning 是否处于运行状态
// 除 running 以外的所有状态（包括 error 和未知状态）都按已停止统计
func (s StrategyStatus) IsRunning() bool {
	return s == StatusRunning
}

// ExecutionMode 执行模式：signal 只发通知不下单，live 实盘下单
type ExecutionMode string

const (
	ModeSignal ExecutionMode = "signal"
	ModeLive   ExecutionMode = "live"
)

// TradeDirection 交易方向
type TradeDirection string

const (
	DirectionLong  TradeDirection = "long"
	DirectionShort TradeDirection = "short"
	DirectionBoth  TradeDirection = "both"
)

// Strategy 策略领域模型（后端拥有数据，本地只持有瞬态副本）
type Strategy struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	Status          StrategyStatus `json:"status"`
	StrategyGroupID string         `json:"strategy_group_id,omitempty"`
	GroupBaseName   string         `json:"group_base_name,omitempty"`
	CreatedAt       int64          `json:"created_at"`

	TradingConfig      TradingConfig      `json:"trading_config"`
	IndicatorConfig    IndicatorConfig    `json:"indicator_config"`
	ExchangeConfig     *ExchangeConfig    `json:"exchange_config,omitempty"`
	ExecutionMode      ExecutionMode      `json:"execution_mode"`
	NotificationConfig NotificationConfig `json:"notification_config"`
	MarketCategory     MarketCategory     `json:"market_category"`
}

// GroupLabel 分组显示名：优先 group_base_name，否则取名称第一个 '-' 之前的前缀
func (s *Strategy) GroupLabel() string {
	if s.GroupBaseName != "" {
		return s.GroupBaseName
	}
	if idx := strings.Index(s.Name, "-"); idx > 0 {
		return s.Name[:idx]
	}
	return s.Name
}

// TradingConfig 交易配置
type TradingConfig struct {
	Symbol         string         `json:"symbol"`
	InitialCapital float64        `json:"initial_capital"`
	Leverage       int            `json:"leverage"`
	TradeDirection TradeDirection `json:"trade_direction"`
	Timeframe      string         `json:"timeframe"`
	MarketType     string         `json:"market_type"` // spot / swap

	// 仓位与风控参数（全部可选）
	EntryPct          float64 `json:"entry_pct,omitempty"`
	StopLossPct       float64 `json:"stop_loss_pct,omitempty"`
	TakeProfitPct     float64 `json:"take_profit_pct,omitempty"`
	TrailingEnabled   bool    `json:"trailing_enabled,omitempty"`
	TrailingPct       float64 `json:"trailing_pct,omitempty"`
	TrailingActivate  float64 `json:"trailing_activate_pct,omitempty"`
	AIFilterEnabled   bool    `json:"ai_filter_enabled,omitempty"`
	TrendAddEnabled   bool    `json:"trend_add_enabled,omitempty"`
	TrendAddMaxTimes  int     `json:"trend_add_max_times,omitempty"`
	TrendAddSizePct   float64 `json:"trend_add_size_pct,omitempty"`
	DCAAddEnabled     bool    `json:"dca_add_enabled,omitempty"`
	DCAAddMaxTimes    int     `json:"dca_add_max_times,omitempty"`
	DCAAddSizePct     float64 `json:"dca_add_size_pct,omitempty"`
	ReducePct         float64 `json:"reduce_pct,omitempty"`
	ReduceTriggerPct  float64 `json:"reduce_trigger_pct,omitempty"`
}

// Normalize 规范化市场类型：1倍杠杆视为现货，大于1倍统一为合约
// 与后端执行器的归一化逻辑保持一致
func (c *TradingConfig) Normalize() {
	if c.Leverage <= 1 {
		c.Leverage = 1
		c.MarketType = "spot"
		return
	}
	c.MarketType = "swap"
}

// IndicatorConfig 指标配置
type IndicatorConfig struct {
	IndicatorID   int64                  `json:"indicator_id"`
	IndicatorName string                 `json:"indicator_name"`
	Params        map[string]interface{} `json:"params,omitempty"`
}
