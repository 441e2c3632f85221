package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stratbot/gostrat/internal/domain"
)

// fakeFetcher 固定返回预设曲线的权益数据源
type fakeFetcher struct {
	samples []domain.EquitySample
	err     error
	calls   atomic.Int64
}

func (f *fakeFetcher) GetEquityCurve(ctx context.Context, strategyID int64) ([]domain.EquitySample, error) {
	f.calls.Add(1)
	return f.samples, f.err
}

func testStrategy(capital float64) domain.Strategy {
	return domain.Strategy{
		ID:   1,
		Name: "macd-btc",
		TradingConfig: domain.TradingConfig{
			Symbol:         "BTC/USDT",
			InitialCapital: capital,
		},
	}
}

func waitForEquity(t *testing.T, s *Session) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.CurrentEquity() != nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("equity not populated in time")
}

// 规格场景：initial_capital=1000，曲线 [1000, 1200]
// 期望 currentEquity=1200, totalPnl=200, totalPnlPercent=20
func TestSession_ScenarioLastSampleWins(t *testing.T) {
	fetcher := &fakeFetcher{samples: []domain.EquitySample{
		{Time: 1, Equity: 1000},
		{Time: 2, Equity: 1200},
	}}
	s := New(testStrategy(1000), fetcher, time.Hour)
	s.Start(context.Background())
	defer s.Stop()

	waitForEquity(t, s)

	if got := s.CurrentEquity().InexactFloat64(); got != 1200 {
		t.Fatalf("currentEquity: expected 1200, got %v", got)
	}
	if got := s.TotalPnL().InexactFloat64(); got != 200 {
		t.Fatalf("totalPnl: expected 200, got %v", got)
	}
	if got := s.TotalPnLPercent().InexactFloat64(); got != 20 {
		t.Fatalf("totalPnlPercent: expected 20, got %v", got)
	}
}

func TestSession_EmptyCurveFallsBackToCapital(t *testing.T) {
	fetcher := &fakeFetcher{}
	s := New(testStrategy(5000), fetcher, time.Hour)
	s.Start(context.Background())
	defer s.Stop()

	waitForEquity(t, s)

	if got := s.CurrentEquity().InexactFloat64(); got != 5000 {
		t.Fatalf("expected fallback to capital 5000, got %v", got)
	}
	if got := s.TotalPnL().InexactFloat64(); got != 0 {
		t.Fatalf("expected pnl 0, got %v", got)
	}
}

func TestSession_EmptyCurveNoCapitalStaysNil(t *testing.T) {
	fetcher := &fakeFetcher{}
	s := New(testStrategy(0), fetcher, time.Hour)
	s.Start(context.Background())

	// 等轮询跑完一次再断言
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	if s.CurrentEquity() != nil {
		t.Fatalf("expected nil equity")
	}
	if s.TotalPnL() != nil {
		t.Fatalf("pnl should be nil when equity unknown")
	}
	if s.TotalPnLPercent() != nil {
		t.Fatalf("pnl%% should be nil when pnl unknown")
	}
}

// 初始资金恰好为 0 且权益已知：收益率按 0 处理（防除零）
func TestSession_ZeroCapitalPercentIsZero(t *testing.T) {
	fetcher := &fakeFetcher{samples: []domain.EquitySample{{Time: 1, Equity: 100}}}
	s := New(testStrategy(0), fetcher, time.Hour)
	s.Start(context.Background())
	defer s.Stop()

	waitForEquity(t, s)

	if got := s.TotalPnL().InexactFloat64(); got != 100 {
		t.Fatalf("expected pnl 100, got %v", got)
	}
	if got := s.TotalPnLPercent(); got == nil || !got.IsZero() {
		t.Fatalf("expected pnl%% 0, got %v", got)
	}
}

func TestSession_StopCancelsPolling(t *testing.T) {
	fetcher := &fakeFetcher{samples: []domain.EquitySample{{Time: 1, Equity: 100}}}
	s := New(testStrategy(1000), fetcher, 10*time.Millisecond)
	s.Start(context.Background())

	waitForEquity(t, s)
	s.Stop()

	calls := fetcher.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if fetcher.calls.Load() != calls {
		t.Fatalf("polling continued after Stop")
	}
}

// Start 总是先取消上一个轮询：重复 Start 后不会有两个轮询协程并存
func TestSession_RestartReplacesPoller(t *testing.T) {
	fetcher := &fakeFetcher{samples: []domain.EquitySample{{Time: 1, Equity: 100}}}
	s := New(testStrategy(1000), fetcher, 20*time.Millisecond)

	s.Start(context.Background())
	s.Start(context.Background())
	defer s.Stop()

	waitForEquity(t, s)

	before := fetcher.calls.Load()
	time.Sleep(110 * time.Millisecond)
	got := fetcher.calls.Load() - before
	// 单个 20ms 轮询器在 110ms 内最多再触发 6 次左右；
	// 如果旧轮询器没被取消，次数会接近翻倍
	if got > 8 {
		t.Fatalf("suspicious poll count %d, old poller probably still alive", got)
	}
}

func TestSession_StartResetsEquity(t *testing.T) {
	fetcher := &fakeFetcher{samples: []domain.EquitySample{{Time: 1, Equity: 100}}}
	s := New(testStrategy(1000), fetcher, time.Hour)
	s.Start(context.Background())
	waitForEquity(t, s)
	s.Stop()

	// 重启后在第一次拉取完成前权益会被清空，这里只验证重启路径不 panic 且最终恢复
	s.Start(context.Background())
	defer s.Stop()
	waitForEquity(t, s)
}

func TestSession_SetStatusOptimisticFlip(t *testing.T) {
	s := New(testStrategy(1000), &fakeFetcher{}, time.Hour)
	s.SetStatus(domain.StatusRunning)
	if s.Strategy().Status != domain.StatusRunning {
		t.Fatalf("expected optimistic status flip")
	}
}
