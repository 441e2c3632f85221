package wizard

import (
	"strings"

	"github.com/stratbot/gostrat/internal/domain"
)

// Draft 向导工作状态
// 表单即数据：所有条件渲染都直接从这里派生，不维护镜像状态
type Draft struct {
	// ===== 第一步：指标 + 符号 + 基础参数 =====
	IndicatorID     int64
	IndicatorName   string
	IndicatorParams map[string]interface{}
	Name            string
	InitialCapital  float64
	MarketType      string // spot / swap
	Leverage        int
	TradeDirection  domain.TradeDirection
	Timeframe       string
	MarketCategory  domain.MarketCategory
	Symbol          string   // 编辑模式：单符号
	SelectedSymbols []string // 创建模式：多选，形如 "Crypto:BTC/USDT"

	// ===== 第二步：风控 / 加仓 / 减仓（全部可选）=====
	EntryPct         float64
	TrendAddEnabled  bool
	TrendAddMaxTimes int
	TrendAddSizePct  float64
	DCAAddEnabled    bool
	DCAAddMaxTimes   int
	DCAAddSizePct    float64
	StopLossPct      float64
	TakeProfitPct    float64
	TrailingEnabled  bool
	TrailingPct      float64
	TrailingActivate float64
	AIFilterEnabled  bool
	ReducePct        float64
	ReduceTriggerPct float64

	// ===== 第三步：执行 / 通知 / 凭证 =====
	ExecutionMode  domain.ExecutionMode
	Notification   domain.NotificationConfig
	BrokerID       domain.BrokerID
	ExchangeID     string
	APIKey         string
	APISecret      string
	Passphrase     string
	IBKR           domain.IBKRBrokerConfig
	MT5            domain.MT5BrokerConfig
	SaveCredential bool
	CredentialName string
}

// NewDraft 创建带默认值的草稿
func NewDraft() Draft {
	return Draft{
		MarketType:     "swap",
		Leverage:       1,
		TradeDirection: domain.DirectionLong,
		Timeframe:      "1h",
		MarketCategory: domain.MarketCrypto,
		EntryPct:       100,
		ExecutionMode:  domain.ModeSignal,
	}
}

// SpotLocked 现货模式下杠杆与方向控件锁定
func (d *Draft) SpotLocked() bool {
	return d.MarketType == "spot"
}

// SetMarketType 设置市场类型
// 选择现货时强制 1 倍杠杆和只做多
func (d *Draft) SetMarketType(marketType string) {
	d.MarketType = marketType
	if marketType == "spot" {
		d.Leverage = 1
		d.TradeDirection = domain.DirectionLong
	}
}

// ExchangeKind 当前市场分类对应的交易通道类型
func (d *Draft) ExchangeKind() domain.ExchangeKind {
	return domain.KindForMarket(d.MarketCategory)
}

// SelectWatchlistSymbol 从自选列表选择符号
// 市场分类变化时：自动设置券商、清空已填的交易所凭证字段；
// 新市场不支持实盘时强制回到 signal 模式。
// multi 为 true 表示加入多选（创建模式），否则覆盖单符号（编辑模式）
func (d *Draft) SelectWatchlistSymbol(entry domain.WatchlistEntry, multi bool) {
	if entry.Market != "" && entry.Market != d.MarketCategory {
		d.MarketCategory = entry.Market
		d.BrokerID = domain.BrokerForMarket(entry.Market)
		d.clearCryptoCredentials()
		if !entry.Market.SupportsLive() {
			d.ExecutionMode = domain.ModeSignal
		}
	}

	if multi {
		key := string(entry.Market) + ":" + entry.Symbol
		for _, s := range d.SelectedSymbols {
			if s == key {
				return
			}
		}
		d.SelectedSymbols = append(d.SelectedSymbols, key)
		return
	}
	d.Symbol = entry.Symbol
}

// SetExchange 选择交易所
// 交易所变化会清空已填密钥（换所必须重新填 key）
func (d *Draft) SetExchange(exchangeID string) {
	if exchangeID == d.ExchangeID {
		return
	}
	d.ExchangeID = exchangeID
	d.APIKey = ""
	d.APISecret = ""
	d.Passphrase = ""
}

// ApplyVaultEntry 用凭证库条目填充交易所字段
// 注意：这里直接赋值，不走 SetExchange，避免触发"换所清空密钥"的副作用
func (d *Draft) ApplyVaultEntry(entry *domain.VaultEntry) {
	if entry == nil {
		return
	}
	d.ExchangeID = entry.ExchangeID
	d.APIKey = entry.APIKey
	d.APISecret = entry.APISecret
	d.Passphrase = entry.Passphrase
}

func (d *Draft) clearCryptoCredentials() {
	d.ExchangeID = ""
	d.APIKey = ""
	d.APISecret = ""
	d.Passphrase = ""
}

// SetTrendAddEnabled 启停趋势加仓
// 趋势加仓与 DCA 加仓互斥，避免同一根K线上双重加仓
func (d *Draft) SetTrendAddEnabled(enabled bool) {
	d.TrendAddEnabled = enabled
	if enabled {
		d.DCAAddEnabled = false
	}
	d.ClampEntryPct()
}

// SetDCAAddEnabled 启停 DCA 加仓（与趋势加仓互斥）
func (d *Draft) SetDCAAddEnabled(enabled bool) {
	d.DCAAddEnabled = enabled
	if enabled {
		d.TrendAddEnabled = false
	}
	d.ClampEntryPct()
}

// SetTrendAddParams 设置趋势加仓参数并重新收紧入场比例
func (d *Draft) SetTrendAddParams(maxTimes int, sizePct float64) {
	d.TrendAddMaxTimes = maxTimes
	d.TrendAddSizePct = sizePct
	d.ClampEntryPct()
}

// SetDCAAddParams 设置 DCA 加仓参数并重新收紧入场比例
func (d *Draft) SetDCAAddParams(maxTimes int, sizePct float64) {
	d.DCAAddMaxTimes = maxTimes
	d.DCAAddSizePct = sizePct
	d.ClampEntryPct()
}

// EntryPctMax 入场比例上限 = 100 - 已启用加仓分支预留的比例，夹在 [0,100]
func (d *Draft) EntryPctMax() float64 {
	var reserved float64
	if d.TrendAddEnabled {
		reserved = float64(d.TrendAddMaxTimes) * d.TrendAddSizePct
	} else if d.DCAAddEnabled {
		reserved = float64(d.DCAAddMaxTimes) * d.DCAAddSizePct
	}
	max := 100 - reserved
	if max < 0 {
		return 0
	}
	if max > 100 {
		return 100
	}
	return max
}

// ClampEntryPct 入场比例超过上限时向下收紧
func (d *Draft) ClampEntryPct() {
	if max := d.EntryPctMax(); d.EntryPct > max {
		d.EntryPct = max
	}
}

// SetEntryPct 设置入场比例（直接收紧到上限内）
func (d *Draft) SetEntryPct(pct float64) {
	d.EntryPct = pct
	if d.EntryPct < 0 {
		d.EntryPct = 0
	}
	d.ClampEntryPct()
}

// SplitSymbolKey 拆分 "Market:SYMBOL" 形式的多选键
func SplitSymbolKey(key string) (domain.MarketCategory, string) {
	if idx := strings.Index(key, ":"); idx >= 0 {
		return domain.MarketCategory(key[:idx]), key[idx+1:]
	}
	return "", key
}
