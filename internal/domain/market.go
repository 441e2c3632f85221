package domain

// MarketCategory 市场分类
type MarketCategory string

const (
	MarketCrypto  MarketCategory = "Crypto"
	MarketUSStock MarketCategory = "USStock"
	MarketHShare  MarketCategory = "HShare"
	MarketAShare  MarketCategory = "AShare"
	MarketForex   MarketCategory = "Forex"
)

// SupportsLive 该市场是否支持实盘交易
func (m MarketCategory) SupportsLive() bool {
	switch m {
	case MarketCrypto, MarketUSStock, MarketHShare, MarketForex:
		return true
	}
	return false
}

// BrokerForMarket 根据市场分类解析默认券商
// Forex 走 MT5，美股/港股走 IBKR，加密货币直连交易所（无券商）
func BrokerForMarket(m MarketCategory) BrokerID {
	switch m {
	case MarketForex:
		return BrokerMT5
	case MarketUSStock, MarketHShare:
		return BrokerIBKR
	}
	return ""
}

// WatchlistEntry 自选列表条目
type WatchlistEntry struct {
	Market MarketCategory `json:"market"`
	Symbol string         `json:"symbol"`
	Name   string         `json:"name,omitempty"`
}

// SymbolHit 符号搜索结果
type SymbolHit struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange,omitempty"`
}

// EquitySample 权益曲线采样点
type EquitySample struct {
	Time   int64   `json:"time"`
	Equity float64 `json:"equity"`
}
