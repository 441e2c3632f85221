package wizard

import (
	"context"

	"github.com/stratbot/gostrat/internal/domain"
	"github.com/stratbot/gostrat/pkg/api"
	"github.com/stratbot/gostrat/pkg/logger"
	"github.com/stratbot/gostrat/pkg/syncgroup"
)

// Loader 向导打开时需要的下拉数据源
type Loader interface {
	ListIndicators(ctx context.Context) ([]domain.Indicator, error)
	GetWatchlist(ctx context.Context) ([]domain.WatchlistEntry, error)
	ListVaultEntries(ctx context.Context) ([]domain.VaultEntry, error)
	GetNotificationSettings(ctx context.Context) (*api.NotificationSettings, error)
}

// LoadResult 各项加载的独立结果（互不阻塞，互不依赖）
// 只携带数据，不持有向导：Fetch 可以在任意协程跑，
// 结果由持有向导的协程调用 ApplyLoad 落盘
type LoadResult struct {
	IndicatorsFetched bool
	Indicators        []domain.Indicator
	IndicatorsErr     error

	Watchlist    []domain.WatchlistEntry
	WatchlistErr error

	Vault    []domain.VaultEntry
	VaultErr error

	Settings *api.NotificationSettings
}

// Fetch 并发拉取向导依赖的下拉数据
// 三项加载互不协调，各自失败各自报告；通知默认设置属于便利项，失败静默。
// includeIndicators=false 时跳过指标目录（向导会话内已缓存）
func Fetch(ctx context.Context, loader Loader, includeIndicators bool) LoadResult {
	var result LoadResult
	sg := syncgroup.New()

	if includeIndicators {
		result.IndicatorsFetched = true
		sg.Add(func() {
			result.Indicators, result.IndicatorsErr = loader.ListIndicators(ctx)
		})
	}

	sg.Add(func() {
		result.Watchlist, result.WatchlistErr = loader.GetWatchlist(ctx)
	})

	sg.Add(func() {
		result.Vault, result.VaultErr = loader.ListVaultEntries(ctx)
	})

	sg.Add(func() {
		settings, err := loader.GetNotificationSettings(ctx)
		if err != nil {
			// 便利项，失败静默
			logger.Debugf("通知默认设置加载失败: %v", err)
			return
		}
		result.Settings = settings
	})

	sg.Run()
	sg.Wait()
	return result
}

// ApplyLoad 把拉取结果落进向导
// 必须在持有向导的协程里调用，与按键处理串行
func (w *Wizard) ApplyLoad(result LoadResult) {
	if result.IndicatorsFetched && result.IndicatorsErr == nil {
		w.SetIndicators(result.Indicators)
	}
	if result.WatchlistErr == nil {
		w.SetWatchlist(result.Watchlist)
	}
	// 凭证库拉取失败但带回了本地缓存摘要时同样落盘
	if result.VaultErr == nil || len(result.Vault) > 0 {
		w.SetVault(result.Vault)
	}
	w.applyNotificationDefaults(result.Settings)
}

// LoadAll 拉取并立即应用的同步便捷入口
// 调用方须保证期间没有其他协程访问向导
func (w *Wizard) LoadAll(ctx context.Context, loader Loader) LoadResult {
	result := Fetch(ctx, loader, !w.indicatorsLoaded)
	w.ApplyLoad(result)
	return result
}

// applyNotificationDefaults 用用户默认设置补全草稿中的空通知字段
// 只补空位，不覆盖用户已填的值
func (w *Wizard) applyNotificationDefaults(settings *api.NotificationSettings) {
	if settings == nil {
		return
	}
	n := &w.draft.Notification
	if len(n.Channels) == 0 {
		n.Channels = settings.DefaultChannels
	}
	if n.Email == "" {
		n.Email = settings.Email
	}
	if n.Phone == "" {
		n.Phone = settings.Phone
	}
	if n.TelegramBot == "" {
		n.TelegramBot = settings.TelegramBot
	}
	if n.TelegramChat == "" {
		n.TelegramChat = settings.TelegramChat
	}
	if n.DiscordWebhook == "" {
		n.DiscordWebhook = settings.DiscordWebhook
	}
	if n.WebhookURL == "" {
		n.WebhookURL = settings.WebhookURL
	}
	if n.WebhookToken == "" {
		n.WebhookToken = settings.WebhookToken
	}
}
