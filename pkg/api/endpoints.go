package api

// API 端点常量
const (
	// Strategy CRUD
	EndpointListStrategies = "/api/strategies"
	EndpointCreateBatch    = "/api/strategies/batch"
	EndpointUpdateStrategy = "/api/strategies/%d"
	EndpointDeleteStrategy = "/api/strategies/%d"
	EndpointStartStrategy  = "/api/strategies/%d/start"
	EndpointStopStrategy   = "/api/strategies/%d/stop"
	EndpointBatchStart     = "/api/strategies/batch/start"
	EndpointBatchStop      = "/api/strategies/batch/stop"
	EndpointBatchDelete    = "/api/strategies/batch/delete"

	// Equity
	EndpointEquityCurve = "/api/strategies/%d/equity-curve"

	// Indicators
	EndpointListIndicators  = "/api/indicators"
	EndpointIndicatorParams = "/api/indicators/%d/params"

	// Watchlist / symbols
	EndpointGetWatchlist  = "/api/watchlist"
	EndpointAddWatchlist  = "/api/watchlist/add"
	EndpointSearchSymbols = "/api/symbols/search"
	EndpointHotSymbols    = "/api/symbols/hot"

	// Exchange credential vault
	EndpointListVault   = "/api/exchange-keys"
	EndpointGetVault    = "/api/exchange-keys/%d"
	EndpointCreateVault = "/api/exchange-keys"

	// Connection tests
	EndpointTestExchange = "/api/exchange-keys/test"
	EndpointTestIBKR     = "/api/brokers/ibkr/test"
	EndpointTestMT5      = "/api/brokers/mt5/test"

	// User notification settings
	EndpointNotificationSettings = "/api/user/notification-settings"
)
