package session

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/stratbot/gostrat/internal/domain"
)

var log = logrus.WithField("component", "session")

// EquityFetcher 权益曲线数据源
type EquityFetcher interface {
	GetEquityCurve(ctx context.Context, strategyID int64) ([]domain.EquitySample, error)
}

// DefaultPollInterval 默认权益轮询间隔
const DefaultPollInterval = 30 * time.Second

// Session 策略详情会话
// 选中策略时创建并启动，切换选中/删除/退出时必须 Stop。
// 同一时刻最多一个轮询协程：Start 总是先取消上一个。
type Session struct {
	strategy domain.Strategy
	fetcher  EquityFetcher
	interval time.Duration

	mu            sync.RWMutex
	currentEquity *decimal.Decimal
	lastErr       error

	cancel context.CancelFunc
	done   chan struct{}

	// OnUpdate 每次权益刷新后的回调（可选，用于触发界面重绘）
	OnUpdate func()
}

// New 创建详情会话
func New(strategy domain.Strategy, fetcher EquityFetcher, interval time.Duration) *Session {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Session{
		strategy: strategy,
		fetcher:  fetcher,
		interval: interval,
	}
}

// Strategy 会话绑定的策略
func (s *Session) Strategy() domain.Strategy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.strategy
}

// SetStatus 乐观更新会话内策略状态（启停操作后避免列表刷新前的闪烁）
func (s *Session) SetStatus(status domain.StrategyStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategy.Status = status
}

// Start 启动权益轮询：先取消已有轮询并清空权益，立即拉取一次，
// 之后按固定间隔轮询，直到 ctx 取消或 Stop 被调用
func (s *Session) Start(ctx context.Context) {
	s.Stop()

	s.mu.Lock()
	s.currentEquity = nil
	s.lastErr = nil
	pollCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)

		s.pollOnce(pollCtx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				s.pollOnce(pollCtx)
			}
		}
	}()
}

// Stop 停止轮询并等待轮询协程退出（幂等）
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// pollOnce 拉取一次权益曲线，只保留最后一个采样点
func (s *Session) pollOnce(ctx context.Context) {
	s.mu.RLock()
	strategyID := s.strategy.ID
	capital := s.strategy.TradingConfig.InitialCapital
	s.mu.RUnlock()

	samples, err := s.fetcher.GetEquityCurve(ctx, strategyID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Warnf("策略 %d 权益曲线拉取失败: %v", strategyID, err)
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return
	}

	var equity *decimal.Decimal
	if len(samples) > 0 {
		v := decimal.NewFromFloat(samples[len(samples)-1].Equity)
		equity = &v
	} else if capital > 0 {
		// 空曲线回退到配置的初始资金
		v := decimal.NewFromFloat(capital)
		equity = &v
	}

	s.mu.Lock()
	s.currentEquity = equity
	s.lastErr = nil
	s.mu.Unlock()

	if s.OnUpdate != nil {
		s.OnUpdate()
	}
}

// CurrentEquity 当前权益（未知时为 nil）
func (s *Session) CurrentEquity() *decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentEquity
}

// LastError 最近一次轮询错误（成功后清空）
func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// TotalPnL 累计盈亏 = 当前权益 - 初始资金；权益未知时为 nil
func (s *Session) TotalPnL() *decimal.Decimal {
	s.mu.RLock()
	equity := s.currentEquity
	capital := decimal.NewFromFloat(s.strategy.TradingConfig.InitialCapital)
	s.mu.RUnlock()

	if equity == nil {
		return nil
	}
	pnl := equity.Sub(capital)
	return &pnl
}

// TotalPnLPercent 累计收益率（百分比）
// 初始资金恰好为 0 时返回 0，避免除零；盈亏未知时为 nil
func (s *Session) TotalPnLPercent() *decimal.Decimal {
	pnl := s.TotalPnL()
	if pnl == nil {
		return nil
	}
	s.mu.RLock()
	capital := decimal.NewFromFloat(s.strategy.TradingConfig.InitialCapital)
	s.mu.RUnlock()
	if capital.IsZero() {
		zero := decimal.Zero
		return &zero
	}
	pct := pnl.Div(capital).Mul(decimal.NewFromInt(100))
	return &pct
}
