package domain

import "fmt"

// BrokerID 券商/通道标识
type BrokerID string

const (
	BrokerIBKR BrokerID = "ibkr"
	BrokerMT5  BrokerID = "mt5"
)

// passphraseExchanges 需要 passphrase 的交易所集合
var passphraseExchanges = map[string]bool{
	"okx":              true,
	"okex":             true,
	"coinbaseexchange": true,
	"kucoin":           true,
	"bitget":           true,
	"deepcoin":         true,
}

// PassphraseRequired 该交易所是否要求 passphrase
func PassphraseRequired(exchangeID string) bool {
	return passphraseExchanges[exchangeID]
}

// ExchangeKind 交易通道类型，决定 ExchangeConfig 哪个分支生效
type ExchangeKind string

const (
	ExchangeKindCrypto ExchangeKind = "crypto"
	ExchangeKindIBKR   ExchangeKind = "ibkr"
	ExchangeKindMT5    ExchangeKind = "mt5"
)

// ExchangeConfig 交易通道配置（按类型标记的联合结构）
// 同一时刻只有 Kind 对应的分支有效，序列化和校验都按分支进行
type ExchangeConfig struct {
	Kind ExchangeKind `json:"kind"`

	Crypto *CryptoExchangeConfig `json:"crypto,omitempty"`
	IBKR   *IBKRBrokerConfig     `json:"ibkr,omitempty"`
	MT5    *MT5BrokerConfig      `json:"mt5,omitempty"`
}

// CryptoExchangeConfig 加密货币交易所 API 配置
type CryptoExchangeConfig struct {
	ExchangeID string `json:"exchange_id"`
	APIKey     string `json:"api_key"`
	APISecret  string `json:"api_secret"`
	Passphrase string `json:"passphrase,omitempty"`
}

// IBKRBrokerConfig IBKR 券商连接配置
type IBKRBrokerConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	ClientID int    `json:"client_id"`
	Account  string `json:"account"`
}

// MT5BrokerConfig MT5 终端连接配置
type MT5BrokerConfig struct {
	Server       string `json:"server"`
	Login        string `json:"login"`
	Password     string `json:"password"`
	TerminalPath string `json:"terminal_path,omitempty"`
}

// KindForMarket 根据市场分类解析交易通道类型
func KindForMarket(m MarketCategory) ExchangeKind {
	switch BrokerForMarket(m) {
	case BrokerMT5:
		return ExchangeKindMT5
	case BrokerIBKR:
		return ExchangeKindIBKR
	}
	return ExchangeKindCrypto
}

// Validate 按分支校验配置完整性
func (e *ExchangeConfig) Validate() error {
	if e == nil {
		return fmt.Errorf("exchange_config不能为空")
	}
	switch e.Kind {
	case ExchangeKindCrypto:
		c := e.Crypto
		if c == nil || c.ExchangeID == "" {
			return fmt.Errorf("未选择交易所")
		}
		if c.APIKey == "" || c.APISecret == "" {
			return fmt.Errorf("交易所 %s 缺少 API Key/Secret", c.ExchangeID)
		}
		if PassphraseRequired(c.ExchangeID) && c.Passphrase == "" {
			return fmt.Errorf("交易所 %s 需要 passphrase", c.ExchangeID)
		}
	case ExchangeKindIBKR:
		b := e.IBKR
		if b == nil || b.Host == "" || b.Port <= 0 {
			return fmt.Errorf("IBKR 连接配置不完整")
		}
		if b.Account == "" {
			return fmt.Errorf("IBKR 缺少账户号")
		}
	case ExchangeKindMT5:
		b := e.MT5
		if b == nil || b.Server == "" || b.Login == "" || b.Password == "" {
			return fmt.Errorf("MT5 连接配置不完整")
		}
	default:
		return fmt.Errorf("未知的交易通道类型: %s", e.Kind)
	}
	return nil
}

// VaultEntry 凭证库条目（列表接口只返回掩码摘要，GetOne 才返回完整密钥）
type VaultEntry struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ExchangeID string `json:"exchange_id"`
	KeyHint    string `json:"key_hint"`

	// 仅 GetOne 返回
	APIKey     string `json:"api_key,omitempty"`
	APISecret  string `json:"api_secret,omitempty"`
	Passphrase string `json:"passphrase,omitempty"`
}
