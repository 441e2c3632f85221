package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratbot/gostrat/internal/domain"
)

func readyCreateWizard() *Wizard {
	w := NewCreate()
	fillBasics(w)
	w.Draft().Notification.Channels = []domain.NotificationChannel{domain.ChannelTelegram}
	return w
}

// 规格场景：selectedSymbols=["Crypto:BTC/USDT","Crypto:ETH/USDT"] 时
// 生成一个包含两个符号、共享 trading/indicator 配置的批量创建请求
func TestComposeCreate_MultiSymbolBatch(t *testing.T) {
	w := readyCreateWizard()
	d := w.Draft()
	d.SelectedSymbols = []string{"Crypto:BTC/USDT", "Crypto:ETH/USDT"}

	req, err := w.ComposeCreate()
	require.NoError(t, err)

	require.Len(t, req.Items, 2)
	assert.Equal(t, "BTC/USDT", req.Items[0].Symbol)
	assert.Equal(t, "ETH/USDT", req.Items[1].Symbol)
	assert.Equal(t, "macd组合-BTC", req.Items[0].Name)
	assert.Equal(t, "macd组合-ETH", req.Items[1].Name)

	assert.Equal(t, int64(7), req.IndicatorConfig.IndicatorID)
	assert.Equal(t, domain.MarketCrypto, req.MarketCategory)
	assert.Equal(t, 1000.0, req.TradingConfig.InitialCapital)
	assert.Equal(t, w.DraftID(), req.RequestID)
	// signal 模式不携带凭证
	assert.Nil(t, req.ExchangeConfig)
}

// 规格场景：live 模式下没有成功的连接测试时提交被拦截，不发起任何请求
func TestComposeCreate_LiveBlockedWithoutConnectionTest(t *testing.T) {
	w := readyCreateWizard()
	w.Draft().ExecutionMode = domain.ModeLive

	req, err := w.ComposeCreate()
	assert.Nil(t, req)
	assert.ErrorIs(t, err, ErrConnectionTestRequired)
}

func TestComposeCreate_RequiresNotificationChannel(t *testing.T) {
	w := NewCreate()
	fillBasics(w)

	req, err := w.ComposeCreate()
	assert.Nil(t, req)
	assert.ErrorIs(t, err, ErrNotificationRequired)
}

func TestComposeCreate_LiveCarriesExchangeConfig(t *testing.T) {
	w := readyCreateWizard()
	d := w.Draft()
	d.ExecutionMode = domain.ModeLive
	d.SetExchange("okx")
	d.APIKey = "k"
	d.APISecret = "s"
	d.Passphrase = "p"
	w.RecordConnectionTest(w.ConnTestKey(), true, "ok")

	req, err := w.ComposeCreate()
	require.NoError(t, err)
	require.NotNil(t, req.ExchangeConfig)
	assert.Equal(t, domain.ExchangeKindCrypto, req.ExchangeConfig.Kind)
	assert.Equal(t, "okx", req.ExchangeConfig.Crypto.ExchangeID)
}

// okx 属于强制 passphrase 的交易所，缺 passphrase 时联合结构校验失败
func TestComposeCreate_PassphraseRequiredExchanges(t *testing.T) {
	w := readyCreateWizard()
	d := w.Draft()
	d.ExecutionMode = domain.ModeLive
	d.SetExchange("okx")
	d.APIKey = "k"
	d.APISecret = "s"
	w.RecordConnectionTest(w.ConnTestKey(), true, "ok")

	_, err := w.ComposeCreate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "passphrase")
}

func TestComposeCreate_MarketTypeNormalized(t *testing.T) {
	w := readyCreateWizard()
	d := w.Draft()
	d.MarketType = "swap"
	d.Leverage = 1 // 1倍杠杆应归一化为现货

	req, err := w.ComposeCreate()
	require.NoError(t, err)
	assert.Equal(t, "spot", req.TradingConfig.MarketType)
}

func TestComposeUpdate_SingleStrategy(t *testing.T) {
	w := NewEdit(domain.Strategy{
		ID:   5,
		Name: "macd-btc",
		TradingConfig: domain.TradingConfig{
			Symbol: "BTC/USDT", InitialCapital: 1000, Leverage: 3,
			TradeDirection: domain.DirectionLong, Timeframe: "1h", MarketType: "swap",
		},
		IndicatorConfig: domain.IndicatorConfig{IndicatorID: 7},
		ExecutionMode:   domain.ModeSignal,
		MarketCategory:  domain.MarketCrypto,
		NotificationConfig: domain.NotificationConfig{
			Channels: []domain.NotificationChannel{domain.ChannelEmail},
		},
	})

	req, err := w.ComposeUpdate()
	require.NoError(t, err)
	assert.Equal(t, "BTC/USDT", req.TradingConfig.Symbol)
	assert.Equal(t, "macd-btc", req.Name)
	assert.Nil(t, req.ExchangeConfig)

	// 创建接口在编辑模式不可用
	_, err = w.ComposeCreate()
	assert.Error(t, err)
}

func TestComposeUpdate_IBKRBranch(t *testing.T) {
	w := NewEdit(domain.Strategy{
		ID:   6,
		Name: "rsi-aapl",
		TradingConfig: domain.TradingConfig{
			Symbol: "AAPL", InitialCapital: 5000, Leverage: 1,
			TradeDirection: domain.DirectionLong, Timeframe: "1d", MarketType: "spot",
		},
		IndicatorConfig: domain.IndicatorConfig{IndicatorID: 3},
		ExecutionMode:   domain.ModeLive,
		MarketCategory:  domain.MarketUSStock,
		NotificationConfig: domain.NotificationConfig{
			Channels: []domain.NotificationChannel{domain.ChannelEmail},
		},
	})
	d := w.Draft()
	d.IBKR = domain.IBKRBrokerConfig{Host: "127.0.0.1", Port: 7497, ClientID: 1, Account: "DU123"}
	w.RecordConnectionTest(w.ConnTestKey(), true, "ok")

	req, err := w.ComposeUpdate()
	require.NoError(t, err)
	require.NotNil(t, req.ExchangeConfig)
	assert.Equal(t, domain.ExchangeKindIBKR, req.ExchangeConfig.Kind)
	assert.Nil(t, req.ExchangeConfig.Crypto)
	assert.Equal(t, "DU123", req.ExchangeConfig.IBKR.Account)
}

func TestVaultEntryToSave(t *testing.T) {
	w := readyCreateWizard()
	d := w.Draft()

	// 未勾选保存
	assert.Nil(t, w.VaultEntryToSave())

	d.SaveCredential = true
	d.ExecutionMode = domain.ModeLive
	d.SetExchange("binance")
	d.APIKey = "k"
	d.APISecret = "s"

	entry := w.VaultEntryToSave()
	require.NotNil(t, entry)
	assert.Equal(t, "binance", entry.ExchangeID)
	assert.Equal(t, "binance", entry.Name) // 未填名称时用交易所 ID

	// signal 模式不入库
	d.ExecutionMode = domain.ModeSignal
	assert.Nil(t, w.VaultEntryToSave())
}
