package symbolsearch

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/stratbot/gostrat/internal/domain"
	"github.com/stratbot/gostrat/pkg/cache"
	"github.com/stratbot/gostrat/pkg/logger"
)

// DefaultDebounce 关键字搜索的默认防抖间隔
const DefaultDebounce = 500 * time.Millisecond

// hotTTL 热门符号列表的缓存时长，反复开关对话框不必每次都打后端
const hotTTL = 5 * time.Minute

// Backend 符号搜索对话框依赖的后端能力，*api.Client 天然满足
type Backend interface {
	SearchSymbols(ctx context.Context, market domain.MarketCategory, keyword string) ([]domain.SymbolHit, error)
	HotSymbols(ctx context.Context, market domain.MarketCategory) ([]domain.SymbolHit, error)
	AddWatchlist(ctx context.Context, entry domain.WatchlistEntry) error
	GetWatchlist(ctx context.Context) ([]domain.WatchlistEntry, error)
}

// SelectFunc 确认添加后回调，把新符号送回打开对话框的选择器
type SelectFunc func(entry domain.WatchlistEntry)

// State 对话框当前状态的快照，供渲染层读取
type State struct {
	Open      bool
	Market    domain.MarketCategory
	Keyword   string
	Results   []domain.SymbolHit
	Searching bool
	Attempted bool // 至少完成过一次搜索
	Err       error
}

// Dialog 符号搜索/添加对话框
//
// 关键字输入走防抖：每次输入取消上一次未触发的搜索任务，
// 已发出的请求用代数号防止过期结果覆盖新结果。
type Dialog struct {
	mu       sync.Mutex
	backend  Backend
	debounce time.Duration
	onUpdate func() // 异步状态变化时通知 UI 重绘，可为 nil
	hot      *cache.TTLCache[domain.MarketCategory, []domain.SymbolHit]

	open     bool
	market   domain.MarketCategory
	onSelect SelectFunc

	keyword   string
	results   []domain.SymbolHit
	attempted bool
	searching bool
	searchErr error

	gen    uint64
	timer  *time.Timer
	ctx    context.Context
	cancel context.CancelFunc
}

// New 创建对话框，debounce <= 0 时使用默认值
func New(backend Backend, debounce time.Duration, onUpdate func()) *Dialog {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Dialog{
		backend:  backend,
		debounce: debounce,
		onUpdate: onUpdate,
		hot:      cache.New[domain.MarketCategory, []domain.SymbolHit](hotTTL),
	}
}

// Open 以指定市场打开对话框，初始展示热门符号
func (d *Dialog) Open(market domain.MarketCategory, onSelect SelectFunc) {
	d.mu.Lock()
	d.closeLocked()

	d.open = true
	d.market = market
	d.onSelect = onSelect
	d.keyword = ""
	d.results = nil
	d.attempted = false
	d.searchErr = nil
	d.ctx, d.cancel = context.WithCancel(context.Background())

	gen := d.bumpLocked()
	ctx := d.ctx
	d.searching = true
	d.mu.Unlock()

	go d.runHot(ctx, gen, market)
}

// SetKeyword 更新关键字并调度防抖搜索，空关键字退回热门列表
func (d *Dialog) SetKeyword(keyword string) {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return
	}
	d.keyword = keyword
	gen := d.bumpLocked()
	market := d.market
	ctx := d.ctx

	trimmed := strings.TrimSpace(keyword)
	if trimmed == "" {
		d.searching = true
		d.mu.Unlock()
		go d.runHot(ctx, gen, market)
		return
	}

	d.searching = true
	d.timer = time.AfterFunc(d.debounce, func() {
		d.runSearch(ctx, gen, market, trimmed)
	})
	d.mu.Unlock()
}

// Flush 立即调度挂起的防抖搜索（比如回车确认时）
// 搜索仍在后台协程执行，调用方不会被网络往返卡住
func (d *Dialog) Flush() {
	d.mu.Lock()
	timer := d.timer
	d.timer = nil
	d.mu.Unlock()
	if timer != nil && timer.Stop() {
		d.mu.Lock()
		gen := d.gen
		market := d.market
		keyword := strings.TrimSpace(d.keyword)
		ctx := d.ctx
		d.mu.Unlock()
		if keyword != "" {
			go d.runSearch(ctx, gen, market, keyword)
		}
	}
}

func (d *Dialog) runSearch(ctx context.Context, gen uint64, market domain.MarketCategory, keyword string) {
	hits, err := d.backend.SearchSymbols(ctx, market, keyword)
	d.apply(gen, hits, err)
}

func (d *Dialog) runHot(ctx context.Context, gen uint64, market domain.MarketCategory) {
	if hits, ok := d.hot.Get(market); ok {
		d.apply(gen, hits, nil)
		return
	}
	hits, err := d.backend.HotSymbols(ctx, market)
	if err == nil {
		d.hot.Set(market, hits, 0)
	}
	d.apply(gen, hits, err)
}

// apply 只接受当前代的结果，过期结果直接丢弃
func (d *Dialog) apply(gen uint64, hits []domain.SymbolHit, err error) {
	d.mu.Lock()
	if !d.open || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.results = hits
	d.searchErr = err
	d.searching = false
	d.attempted = true
	notify := d.onUpdate
	d.mu.Unlock()

	if err != nil {
		logger.Warnf("符号搜索失败: %v", err)
	}
	if notify != nil {
		notify()
	}
}

// State 返回用于渲染的状态快照
func (d *Dialog) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	results := make([]domain.SymbolHit, len(d.results))
	copy(results, d.results)
	return State{
		Open:      d.open,
		Market:    d.market,
		Keyword:   d.keyword,
		Results:   results,
		Searching: d.searching,
		Attempted: d.attempted,
		Err:       d.searchErr,
	}
}

// ManualCandidate 搜索无结果时可手工添加的符号（大写化，名称留给后端解析）
// 返回空串表示当前不提供手工添加
func (d *Dialog) ManualCandidate() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	keyword := strings.TrimSpace(d.keyword)
	if !d.open || !d.attempted || d.searching || keyword == "" || len(d.results) > 0 {
		return ""
	}
	return strings.ToUpper(keyword)
}

// Confirm 添加搜索结果到自选并关闭对话框
// 成功后重新拉取自选列表返回给调用方，新符号通过 onSelect 回传选择器
func (d *Dialog) Confirm(ctx context.Context, hit domain.SymbolHit) ([]domain.WatchlistEntry, error) {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return nil, nil
	}
	market := d.market
	d.mu.Unlock()

	entry := domain.WatchlistEntry{Market: market, Symbol: hit.Symbol, Name: hit.Name}
	return d.confirmEntry(ctx, entry)
}

// ConfirmManual 手工添加当前关键字对应的符号
func (d *Dialog) ConfirmManual(ctx context.Context) ([]domain.WatchlistEntry, error) {
	symbol := d.ManualCandidate()
	if symbol == "" {
		return nil, nil
	}
	d.mu.Lock()
	market := d.market
	d.mu.Unlock()

	return d.confirmEntry(ctx, domain.WatchlistEntry{Market: market, Symbol: symbol})
}

func (d *Dialog) confirmEntry(ctx context.Context, entry domain.WatchlistEntry) ([]domain.WatchlistEntry, error) {
	if err := d.backend.AddWatchlist(ctx, entry); err != nil {
		return nil, err
	}

	entries, err := d.backend.GetWatchlist(ctx)
	if err != nil {
		// 添加已成功，列表刷新失败不回滚，至少带上新条目
		logger.Warnf("刷新自选列表失败: %v", err)
		entries = []domain.WatchlistEntry{entry}
	}

	d.mu.Lock()
	onSelect := d.onSelect
	d.closeLocked()
	d.mu.Unlock()

	if onSelect != nil {
		onSelect(entry)
	}
	return entries, nil
}

// Close 关闭对话框并取消未完成的搜索
func (d *Dialog) Close() {
	d.mu.Lock()
	d.closeLocked()
	d.mu.Unlock()
}

func (d *Dialog) closeLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.open = false
	d.searching = false
	d.onSelect = nil
	d.gen++
}

func (d *Dialog) bumpLocked() uint64 {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	return d.gen
}
