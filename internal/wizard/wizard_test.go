package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratbot/gostrat/internal/domain"
)

// fillBasics 填满第一步必填项（创建模式）
func fillBasics(w *Wizard) {
	d := w.Draft()
	d.IndicatorID = 7
	d.IndicatorName = "MACD"
	d.Name = "macd组合"
	d.InitialCapital = 1000
	d.MarketType = "swap"
	d.Leverage = 3
	d.TradeDirection = domain.DirectionLong
	d.Timeframe = "1h"
	d.SelectedSymbols = []string{"Crypto:BTC/USDT"}
}

func TestNext_BlocksOnMissingRequiredFields(t *testing.T) {
	w := NewCreate()
	err := w.Next()
	require.Error(t, err)

	errs, ok := err.(FieldErrors)
	require.True(t, ok, "expected FieldErrors, got %T", err)
	assert.True(t, errs.Has("indicator"))
	assert.True(t, errs.Has("name"))
	assert.True(t, errs.Has("initial_capital"))
	assert.True(t, errs.Has("symbols"))
	assert.Equal(t, StepBasics, w.Step(), "validation failure must not advance")
}

func TestNext_AdvancesThroughSteps(t *testing.T) {
	w := NewCreate()
	fillBasics(w)

	require.NoError(t, w.Next())
	assert.Equal(t, StepRisk, w.Step())

	// 第二步无必填项
	require.NoError(t, w.Next())
	assert.Equal(t, StepExecution, w.Step())

	// 第三步是终点，提交走独立动作
	require.Error(t, w.Next())
	assert.Equal(t, StepExecution, w.Step())
}

func TestPrev_StopsAtFirstStep(t *testing.T) {
	w := NewCreate()
	fillBasics(w)
	require.NoError(t, w.Next())

	w.Prev()
	assert.Equal(t, StepBasics, w.Step())
	w.Prev()
	assert.Equal(t, StepBasics, w.Step())
}

func TestEditMode_RequiresSingleSymbol(t *testing.T) {
	w := NewEdit(domain.Strategy{
		ID:   5,
		Name: "macd-btc",
		TradingConfig: domain.TradingConfig{
			Symbol: "", InitialCapital: 1000, Leverage: 2,
			TradeDirection: domain.DirectionLong, Timeframe: "1h", MarketType: "swap",
		},
		IndicatorConfig: domain.IndicatorConfig{IndicatorID: 7},
		MarketCategory:  domain.MarketCrypto,
	})

	err := w.Next()
	require.Error(t, err)
	errs := err.(FieldErrors)
	assert.True(t, errs.Has("symbol"))
	assert.False(t, errs.Has("symbols"))
}

func TestEditMode_PrefillsDraft(t *testing.T) {
	s := domain.Strategy{
		ID:     9,
		Name:   "rsi-eur",
		Status: domain.StatusStopped,
		TradingConfig: domain.TradingConfig{
			Symbol: "EURUSD", InitialCapital: 2000, Leverage: 1,
			TradeDirection: domain.DirectionLong, Timeframe: "4h", MarketType: "spot",
			EntryPct: 60, TrendAddEnabled: true, TrendAddMaxTimes: 2, TrendAddSizePct: 10,
		},
		IndicatorConfig: domain.IndicatorConfig{IndicatorID: 3, IndicatorName: "RSI"},
		ExecutionMode:   domain.ModeSignal,
		MarketCategory:  domain.MarketForex,
	}
	w := NewEdit(s)
	d := w.Draft()

	assert.Equal(t, int64(9), w.EditID())
	assert.Equal(t, "EURUSD", d.Symbol)
	assert.Equal(t, domain.MarketForex, d.MarketCategory)
	assert.Equal(t, domain.BrokerMT5, d.BrokerID)
	assert.Equal(t, 60.0, d.EntryPct)
	assert.True(t, d.TrendAddEnabled)
}

// 规格场景：选择 "Forex:EURUSD" 后市场变为 Forex、券商 mt5、交易所凭证字段清空
func TestSelectWatchlistSymbol_MarketCoupling(t *testing.T) {
	w := NewCreate()
	d := w.Draft()
	d.ExchangeID = "okx"
	d.APIKey = "k"
	d.APISecret = "s"
	d.Passphrase = "p"

	d.SelectWatchlistSymbol(domain.WatchlistEntry{Market: domain.MarketForex, Symbol: "EURUSD"}, false)

	assert.Equal(t, domain.MarketForex, d.MarketCategory)
	assert.Equal(t, domain.BrokerMT5, d.BrokerID)
	assert.Empty(t, d.ExchangeID)
	assert.Empty(t, d.APIKey)
	assert.Empty(t, d.APISecret)
	assert.Empty(t, d.Passphrase)
	assert.Equal(t, "EURUSD", d.Symbol)
}

func TestSelectWatchlistSymbol_ForcesSignalForNonLiveMarket(t *testing.T) {
	w := NewCreate()
	d := w.Draft()
	d.ExecutionMode = domain.ModeLive

	// AShare 不支持实盘
	d.SelectWatchlistSymbol(domain.WatchlistEntry{Market: domain.MarketAShare, Symbol: "600519"}, false)
	assert.Equal(t, domain.ModeSignal, d.ExecutionMode)

	// 美股支持实盘，模式保留
	d.ExecutionMode = domain.ModeLive
	d.SelectWatchlistSymbol(domain.WatchlistEntry{Market: domain.MarketUSStock, Symbol: "AAPL"}, false)
	assert.Equal(t, domain.ModeLive, d.ExecutionMode)
	assert.Equal(t, domain.BrokerIBKR, d.BrokerID)
}

func TestSelectWatchlistSymbol_MultiDedup(t *testing.T) {
	w := NewCreate()
	d := w.Draft()

	d.SelectWatchlistSymbol(domain.WatchlistEntry{Market: domain.MarketCrypto, Symbol: "BTC/USDT"}, true)
	d.SelectWatchlistSymbol(domain.WatchlistEntry{Market: domain.MarketCrypto, Symbol: "BTC/USDT"}, true)
	d.SelectWatchlistSymbol(domain.WatchlistEntry{Market: domain.MarketCrypto, Symbol: "ETH/USDT"}, true)

	assert.Equal(t, []string{"Crypto:BTC/USDT", "Crypto:ETH/USDT"}, d.SelectedSymbols)
}

func TestSetMarketType_SpotForcesLeverageAndDirection(t *testing.T) {
	w := NewCreate()
	d := w.Draft()
	d.Leverage = 5
	d.TradeDirection = domain.DirectionShort

	d.SetMarketType("spot")
	assert.Equal(t, 1, d.Leverage)
	assert.Equal(t, domain.DirectionLong, d.TradeDirection)
	assert.True(t, d.SpotLocked())

	d.SetMarketType("swap")
	assert.False(t, d.SpotLocked())
}

func TestSetExchange_ClearsSecretsOnChange(t *testing.T) {
	w := NewCreate()
	d := w.Draft()
	d.SetExchange("binance")
	d.APIKey = "k"
	d.APISecret = "s"

	// 相同交易所不清空
	d.SetExchange("binance")
	assert.Equal(t, "k", d.APIKey)

	// 换所清空
	d.SetExchange("okx")
	assert.Empty(t, d.APIKey)
	assert.Empty(t, d.APISecret)
}

func TestApplyVaultEntry_FillsWithoutClearing(t *testing.T) {
	w := NewCreate()
	d := w.Draft()
	d.SetExchange("binance")

	d.ApplyVaultEntry(&domain.VaultEntry{
		ID: 1, ExchangeID: "okx", APIKey: "vk", APISecret: "vs", Passphrase: "vp",
	})

	assert.Equal(t, "okx", d.ExchangeID)
	assert.Equal(t, "vk", d.APIKey)
	assert.Equal(t, "vs", d.APISecret)
	assert.Equal(t, "vp", d.Passphrase)
}

func TestVaultSummary_FallbackLookup(t *testing.T) {
	w := NewCreate()
	w.SetVault([]domain.VaultEntry{
		{ID: 1, Name: "main", ExchangeID: "binance"},
		{ID: 2, Name: "backup", ExchangeID: "okx"},
	})

	require.NotNil(t, w.VaultSummary(2))
	assert.Equal(t, "okx", w.VaultSummary(2).ExchangeID)
	assert.Nil(t, w.VaultSummary(99))
}

func TestConnectionTest_InvalidatedByParamChange(t *testing.T) {
	w := NewCreate()
	d := w.Draft()
	d.SetExchange("binance")
	d.APIKey = "k"

	w.RecordConnectionTest(w.ConnTestKey(), true, "ok")
	assert.True(t, w.ConnectionTested())

	// 换所后旧结果失效
	d.SetExchange("okx")
	assert.False(t, w.ConnectionTested())
}

func TestConnectionTest_FailureDoesNotGate(t *testing.T) {
	w := NewCreate()
	w.RecordConnectionTest(w.ConnTestKey(), false, "bad key")
	assert.False(t, w.ConnectionTested())
}

// 结果在途期间用户改了密钥：迟到的结果按发起时的参数入账，
// 不为没测过的新密钥放行
func TestConnectionTest_LateResultKeyedToLaunchParams(t *testing.T) {
	w := NewCreate()
	d := w.Draft()
	d.SetExchange("binance")
	d.APIKey = "old-key"

	key := w.ConnTestKey()
	d.APIKey = "new-key"
	w.RecordConnectionTest(key, true, "ok")

	assert.False(t, w.ConnectionTested())

	// 改回发起时的密钥后结果重新生效
	d.APIKey = "old-key"
	assert.True(t, w.ConnectionTested())
}
