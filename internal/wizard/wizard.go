package wizard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stratbot/gostrat/internal/domain"
)

var log = logrus.WithField("component", "wizard")

// Step 向导步骤
type Step int

const (
	// StepBasics 指标 + 符号 + 基础参数
	StepBasics Step = iota
	// StepRisk 风控 / 加仓 / 仓位参数（全部可选）
	StepRisk
	// StepExecution 执行模式 / 通知 / 实盘凭证（终点，提交由独立动作触发）
	StepExecution
)

// Mode 向导模式
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

// FieldErrors 字段级校验错误（逐字段内联展示，不发往服务端）
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e[k]))
	}
	return strings.Join(parts, "; ")
}

// Has 是否包含某字段的错误
func (e FieldErrors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// ConnectionTest 一次连接测试的结果快照
type ConnectionTest struct {
	Key     string // 测试目标标识（通道 + 关键连接参数）
	Success bool
	Message string
}

// Wizard 策略创建/编辑向导（三步状态机，只能通过 Next/Prev 前后移动）
type Wizard struct {
	mode    Mode
	step    Step
	draft   Draft
	editID  int64
	draftID string

	indicators       []domain.Indicator
	indicatorsLoaded bool
	watchlist        []domain.WatchlistEntry
	vault            []domain.VaultEntry

	connTest *ConnectionTest
}

// NewCreate 创建模式向导
func NewCreate() *Wizard {
	return &Wizard{
		mode:    ModeCreate,
		step:    StepBasics,
		draft:   NewDraft(),
		draftID: uuid.NewString(),
	}
}

// NewEdit 编辑模式向导，用已有策略回填草稿
func NewEdit(s domain.Strategy) *Wizard {
	d := NewDraft()
	d.Name = s.Name
	d.IndicatorID = s.IndicatorConfig.IndicatorID
	d.IndicatorName = s.IndicatorConfig.IndicatorName
	d.IndicatorParams = s.IndicatorConfig.Params
	d.InitialCapital = s.TradingConfig.InitialCapital
	d.MarketType = s.TradingConfig.MarketType
	d.Leverage = s.TradingConfig.Leverage
	d.TradeDirection = s.TradingConfig.TradeDirection
	d.Timeframe = s.TradingConfig.Timeframe
	d.MarketCategory = s.MarketCategory
	d.Symbol = s.TradingConfig.Symbol
	d.EntryPct = s.TradingConfig.EntryPct
	d.TrendAddEnabled = s.TradingConfig.TrendAddEnabled
	d.TrendAddMaxTimes = s.TradingConfig.TrendAddMaxTimes
	d.TrendAddSizePct = s.TradingConfig.TrendAddSizePct
	d.DCAAddEnabled = s.TradingConfig.DCAAddEnabled
	d.DCAAddMaxTimes = s.TradingConfig.DCAAddMaxTimes
	d.DCAAddSizePct = s.TradingConfig.DCAAddSizePct
	d.StopLossPct = s.TradingConfig.StopLossPct
	d.TakeProfitPct = s.TradingConfig.TakeProfitPct
	d.TrailingEnabled = s.TradingConfig.TrailingEnabled
	d.TrailingPct = s.TradingConfig.TrailingPct
	d.TrailingActivate = s.TradingConfig.TrailingActivate
	d.AIFilterEnabled = s.TradingConfig.AIFilterEnabled
	d.ReducePct = s.TradingConfig.ReducePct
	d.ReduceTriggerPct = s.TradingConfig.ReduceTriggerPct
	d.ExecutionMode = s.ExecutionMode
	d.Notification = s.NotificationConfig
	d.BrokerID = domain.BrokerForMarket(s.MarketCategory)
	if s.ExchangeConfig != nil && s.ExchangeConfig.Crypto != nil {
		d.ExchangeID = s.ExchangeConfig.Crypto.ExchangeID
	}
	if s.ExchangeConfig != nil && s.ExchangeConfig.IBKR != nil {
		d.IBKR = *s.ExchangeConfig.IBKR
	}
	if s.ExchangeConfig != nil && s.ExchangeConfig.MT5 != nil {
		d.MT5 = *s.ExchangeConfig.MT5
	}

	return &Wizard{
		mode:    ModeEdit,
		step:    StepBasics,
		draft:   d,
		editID:  s.ID,
		draftID: uuid.NewString(),
	}
}

// Mode 向导模式
func (w *Wizard) Mode() Mode { return w.mode }

// Step 当前步骤
func (w *Wizard) Step() Step { return w.step }

// DraftID 本次草稿的标识（用于日志关联）
func (w *Wizard) DraftID() string { return w.draftID }

// Draft 草稿访问（指针，界面直接读写）
func (w *Wizard) Draft() *Draft { return &w.draft }

// EditID 编辑模式下的目标策略 ID
func (w *Wizard) EditID() int64 { return w.editID }

// Next 前进一步
// 第一步校验必填集合，校验失败返回 FieldErrors 且停在原步骤；
// 第二步无必填项，只做入场比例收紧；第三步不可前进
func (w *Wizard) Next() error {
	switch w.step {
	case StepBasics:
		if errs := w.validateBasics(); len(errs) > 0 {
			return errs
		}
		w.step = StepRisk
		return nil
	case StepRisk:
		w.draft.ClampEntryPct()
		w.step = StepExecution
		return nil
	default:
		return fmt.Errorf("已是最后一步")
	}
}

// Prev 后退一步（第一步不可后退）
func (w *Wizard) Prev() {
	if w.step > StepBasics {
		w.step--
	}
}

// validateBasics 第一步必填校验
func (w *Wizard) validateBasics() FieldErrors {
	errs := make(FieldErrors)
	d := &w.draft

	if d.IndicatorID == 0 {
		errs["indicator"] = "请选择指标"
	}
	if strings.TrimSpace(d.Name) == "" {
		errs["name"] = "请输入策略名称"
	}
	if d.InitialCapital <= 0 {
		errs["initial_capital"] = "初始资金必须大于0"
	}
	if d.MarketType != "spot" && d.MarketType != "swap" {
		errs["market_type"] = "请选择市场类型"
	}
	if d.Leverage < 1 {
		errs["leverage"] = "杠杆倍数无效"
	}
	if d.TradeDirection == "" {
		errs["trade_direction"] = "请选择交易方向"
	}
	if d.Timeframe == "" {
		errs["timeframe"] = "请选择时间周期"
	}

	if w.mode == ModeEdit {
		if strings.TrimSpace(d.Symbol) == "" {
			errs["symbol"] = "请选择交易符号"
		}
	} else if len(d.SelectedSymbols) == 0 {
		errs["symbols"] = "请至少选择一个交易符号"
	}

	return errs
}

// ===== 下拉数据 =====

// SetIndicators 指标目录加载完成（会话内缓存，向导关闭前不重复加载）
func (w *Wizard) SetIndicators(indicators []domain.Indicator) {
	w.indicators = indicators
	w.indicatorsLoaded = true
}

// Indicators 已加载的指标目录
func (w *Wizard) Indicators() []domain.Indicator { return w.indicators }

// IndicatorsLoaded 指标目录是否已加载
func (w *Wizard) IndicatorsLoaded() bool { return w.indicatorsLoaded }

// SetWatchlist 自选列表加载完成
func (w *Wizard) SetWatchlist(entries []domain.WatchlistEntry) { w.watchlist = entries }

// Watchlist 已加载的自选列表
func (w *Wizard) Watchlist() []domain.WatchlistEntry { return w.watchlist }

// SetVault 凭证库列表加载完成
func (w *Wizard) SetVault(entries []domain.VaultEntry) { w.vault = entries }

// Vault 已加载的凭证库列表
func (w *Wizard) Vault() []domain.VaultEntry { return w.vault }

// VaultSummary 按 ID 查本地缓存的凭证摘要（GetOne 失败时的回退）
func (w *Wizard) VaultSummary(id int64) *domain.VaultEntry {
	for i := range w.vault {
		if w.vault[i].ID == id {
			return &w.vault[i]
		}
	}
	return nil
}

// ===== 连接测试 =====

// ConnTestKey 当前通道的测试目标标识
// 关键连接参数变化后旧的测试结果随之失效。
// 发起测试时取好快照，结果回来按发起时的参数入账
func (w *Wizard) ConnTestKey() string {
	d := &w.draft
	switch d.ExchangeKind() {
	case domain.ExchangeKindIBKR:
		return fmt.Sprintf("ibkr:%s:%d:%s", d.IBKR.Host, d.IBKR.Port, d.IBKR.Account)
	case domain.ExchangeKindMT5:
		return fmt.Sprintf("mt5:%s:%s", d.MT5.Server, d.MT5.Login)
	default:
		return fmt.Sprintf("crypto:%s:%s", d.ExchangeID, d.APIKey)
	}
}

// RecordConnectionTest 记录一次连接测试结果
// key 是发起测试时的 ConnTestKey 快照：结果在途期间用户改了连接参数时，
// 迟到的结果挂在旧参数上，不为未测过的新参数背书
func (w *Wizard) RecordConnectionTest(key string, success bool, message string) {
	w.connTest = &ConnectionTest{
		Key:     key,
		Success: success,
		Message: message,
	}
	log.Infof("草稿 %s 连接测试: success=%v key=%s", w.draftID, success, key)
}

// ConnectionTested 当前通道是否持有一次成功的连接测试结果
func (w *Wizard) ConnectionTested() bool {
	return w.connTest != nil && w.connTest.Success && w.connTest.Key == w.ConnTestKey()
}
