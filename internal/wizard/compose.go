package wizard

import (
	"fmt"
	"strings"

	"github.com/stratbot/gostrat/internal/domain"
	"github.com/stratbot/gostrat/pkg/api"
)

// ErrConnectionTestRequired 实盘提交被拦截：缺少成功的连接测试
var ErrConnectionTestRequired = fmt.Errorf("实盘模式需要先通过连接测试")

// ErrNotificationRequired 提交被拦截：未选择任何通知渠道
var ErrNotificationRequired = fmt.Errorf("请至少选择一个通知渠道")

// validateSubmit 提交前的终校验
// 实盘模式必须持有当前通道的成功连接测试；至少启用一个通知渠道
func (w *Wizard) validateSubmit() error {
	if len(w.draft.Notification.Channels) == 0 {
		return ErrNotificationRequired
	}
	if w.draft.ExecutionMode == domain.ModeLive && !w.ConnectionTested() {
		return ErrConnectionTestRequired
	}
	return nil
}

// tradingConfig 从草稿组装交易配置（提交前统一做市场类型归一化）
func (w *Wizard) tradingConfig(symbol string) domain.TradingConfig {
	d := &w.draft
	cfg := domain.TradingConfig{
		Symbol:           symbol,
		InitialCapital:   d.InitialCapital,
		Leverage:         d.Leverage,
		TradeDirection:   d.TradeDirection,
		Timeframe:        d.Timeframe,
		MarketType:       d.MarketType,
		EntryPct:         d.EntryPct,
		StopLossPct:      d.StopLossPct,
		TakeProfitPct:    d.TakeProfitPct,
		TrailingEnabled:  d.TrailingEnabled,
		TrailingPct:      d.TrailingPct,
		TrailingActivate: d.TrailingActivate,
		AIFilterEnabled:  d.AIFilterEnabled,
		TrendAddEnabled:  d.TrendAddEnabled,
		TrendAddMaxTimes: d.TrendAddMaxTimes,
		TrendAddSizePct:  d.TrendAddSizePct,
		DCAAddEnabled:    d.DCAAddEnabled,
		DCAAddMaxTimes:   d.DCAAddMaxTimes,
		DCAAddSizePct:    d.DCAAddSizePct,
		ReducePct:        d.ReducePct,
		ReduceTriggerPct: d.ReduceTriggerPct,
	}
	cfg.Normalize()
	return cfg
}

// exchangeConfig 组装按通道标记的交易配置联合结构
// 仅实盘模式提交；signal 模式不携带凭证
func (w *Wizard) exchangeConfig() (*domain.ExchangeConfig, error) {
	d := &w.draft
	cfg := &domain.ExchangeConfig{Kind: d.ExchangeKind()}
	switch cfg.Kind {
	case domain.ExchangeKindCrypto:
		cfg.Crypto = &domain.CryptoExchangeConfig{
			ExchangeID: d.ExchangeID,
			APIKey:     d.APIKey,
			APISecret:  d.APISecret,
			Passphrase: d.Passphrase,
		}
	case domain.ExchangeKindIBKR:
		ibkr := d.IBKR
		cfg.IBKR = &ibkr
	case domain.ExchangeKindMT5:
		mt5 := d.MT5
		cfg.MT5 = &mt5
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// indicatorConfig 组装指标配置
// 参数表取拷贝：请求发出后草稿继续编辑不影响在途请求
func (w *Wizard) indicatorConfig() domain.IndicatorConfig {
	var params map[string]interface{}
	if len(w.draft.IndicatorParams) > 0 {
		params = make(map[string]interface{}, len(w.draft.IndicatorParams))
		for k, v := range w.draft.IndicatorParams {
			params[k] = v
		}
	}
	return domain.IndicatorConfig{
		IndicatorID:   w.draft.IndicatorID,
		IndicatorName: w.draft.IndicatorName,
		Params:        params,
	}
}

// ComposeCreate 组装批量创建请求：每个选中符号一个实例，共享其余配置
func (w *Wizard) ComposeCreate() (*api.BatchCreateRequest, error) {
	if w.mode != ModeCreate {
		return nil, fmt.Errorf("当前不是创建模式")
	}
	if err := w.validateSubmit(); err != nil {
		return nil, err
	}

	d := &w.draft
	req := &api.BatchCreateRequest{
		IndicatorConfig:    w.indicatorConfig(),
		ExecutionMode:      d.ExecutionMode,
		NotificationConfig: d.Notification.Clone(),
		MarketCategory:     d.MarketCategory,
		RequestID:          w.draftID,
	}

	for _, key := range d.SelectedSymbols {
		_, symbol := SplitSymbolKey(key)
		req.Items = append(req.Items, api.CreateItem{
			Symbol: symbol,
			Name:   itemName(d.Name, symbol),
		})
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("未选择任何交易符号")
	}

	// 共享的 trading_config 不携带符号，符号在 items 里逐个给出
	req.TradingConfig = w.tradingConfig("")

	if d.ExecutionMode == domain.ModeLive {
		exchangeCfg, err := w.exchangeConfig()
		if err != nil {
			return nil, err
		}
		req.ExchangeConfig = exchangeCfg
	}
	return req, nil
}

// ComposeUpdate 组装单策略更新请求（整体替换配置）
func (w *Wizard) ComposeUpdate() (*api.UpdateRequest, error) {
	if w.mode != ModeEdit {
		return nil, fmt.Errorf("当前不是编辑模式")
	}
	if err := w.validateSubmit(); err != nil {
		return nil, err
	}

	d := &w.draft
	req := &api.UpdateRequest{
		Name:               d.Name,
		TradingConfig:      w.tradingConfig(d.Symbol),
		IndicatorConfig:    w.indicatorConfig(),
		ExecutionMode:      d.ExecutionMode,
		NotificationConfig: d.Notification.Clone(),
		MarketCategory:     d.MarketCategory,
	}
	if d.ExecutionMode == domain.ModeLive {
		exchangeCfg, err := w.exchangeConfig()
		if err != nil {
			return nil, err
		}
		req.ExchangeConfig = exchangeCfg
	}
	return req, nil
}

// VaultEntryToSave 用户勾选保存且实盘使用加密货币交易所时，返回待入库的凭证
func (w *Wizard) VaultEntryToSave() *domain.VaultEntry {
	d := &w.draft
	if !d.SaveCredential || d.ExecutionMode != domain.ModeLive {
		return nil
	}
	if d.ExchangeKind() != domain.ExchangeKindCrypto || d.ExchangeID == "" {
		return nil
	}
	name := d.CredentialName
	if name == "" {
		name = d.ExchangeID
	}
	return &domain.VaultEntry{
		Name:       name,
		ExchangeID: d.ExchangeID,
		APIKey:     d.APIKey,
		APISecret:  d.APISecret,
		Passphrase: d.Passphrase,
	}
}

// itemName 批量创建时为每个符号生成实例名：基础名-符号基币
func itemName(base, symbol string) string {
	b := symbol
	if idx := strings.IndexAny(symbol, "/:"); idx > 0 {
		b = symbol[:idx]
	}
	if base == "" {
		return b
	}
	return base + "-" + b
}
