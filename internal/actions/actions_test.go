package actions

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stratbot/gostrat/internal/domain"
	"github.com/stratbot/gostrat/internal/session"
	"github.com/stratbot/gostrat/pkg/api"
)

type fakeAPI struct {
	listCalls   int
	startIDs    []int64
	stopIDs     []int64
	deleteIDs   []int64
	batchCalled [][]int64

	strategies []domain.Strategy
	listErr    error
	startErr   error
	deleteErr  error
	batchRes   *api.BatchResult
	batchErr   error
}

func (f *fakeAPI) ListStrategies(ctx context.Context) ([]domain.Strategy, error) {
	f.listCalls++
	return f.strategies, f.listErr
}

func (f *fakeAPI) StartStrategy(ctx context.Context, id int64) error {
	f.startIDs = append(f.startIDs, id)
	return f.startErr
}

func (f *fakeAPI) StopStrategy(ctx context.Context, id int64) error {
	f.stopIDs = append(f.stopIDs, id)
	return nil
}

func (f *fakeAPI) DeleteStrategy(ctx context.Context, id int64) error {
	f.deleteIDs = append(f.deleteIDs, id)
	return f.deleteErr
}

func (f *fakeAPI) BatchStart(ctx context.Context, ids []int64) (*api.BatchResult, error) {
	f.batchCalled = append(f.batchCalled, ids)
	return f.batchRes, f.batchErr
}

func (f *fakeAPI) BatchStop(ctx context.Context, ids []int64) (*api.BatchResult, error) {
	f.batchCalled = append(f.batchCalled, ids)
	return f.batchRes, f.batchErr
}

func (f *fakeAPI) BatchDelete(ctx context.Context, ids []int64) (*api.BatchResult, error) {
	f.batchCalled = append(f.batchCalled, ids)
	return f.batchRes, f.batchErr
}

type noopFetcher struct{}

func (noopFetcher) GetEquityCurve(ctx context.Context, strategyID int64) ([]domain.EquitySample, error) {
	return nil, nil
}

func strat(id int64, name string, status domain.StrategyStatus) domain.Strategy {
	return domain.Strategy{ID: id, Name: name, Status: status}
}

func TestStartFlipsStatusAndRefreshes(t *testing.T) {
	backend := &fakeAPI{strategies: []domain.Strategy{strat(1, "macd-BTC", domain.StatusRunning)}}
	sess := session.New(strat(1, "macd-BTC", domain.StatusStopped), noopFetcher{}, 0)

	var notices []Notice
	var refreshed []domain.Strategy
	ctrl := New(backend, func(n Notice) { notices = append(notices, n) }, Hooks{
		Session:      func() *session.Session { return sess },
		OnStrategies: func(s []domain.Strategy) { refreshed = s },
	})

	if err := ctrl.Start(context.Background(), strat(1, "macd-BTC", domain.StatusStopped)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess.Strategy().Status != domain.StatusRunning {
		t.Fatalf("会话状态应被乐观刷新为 running, got %s", sess.Strategy().Status)
	}
	if backend.listCalls != 1 || len(refreshed) != 1 {
		t.Fatalf("成功后应刷新列表, calls=%d refreshed=%v", backend.listCalls, refreshed)
	}
	if len(notices) != 1 || notices[0].Level != LevelInfo {
		t.Fatalf("应提示启动成功, got %+v", notices)
	}
}

func TestStartFailureSurfacesServerMessage(t *testing.T) {
	backend := &fakeAPI{startErr: &api.APIError{Code: 0, Msg: "余额不足"}}

	var notices []Notice
	ctrl := New(backend, func(n Notice) { notices = append(notices, n) }, Hooks{
		OnStrategies: func([]domain.Strategy) {},
	})

	if err := ctrl.Start(context.Background(), strat(1, "macd-BTC", domain.StatusStopped)); err == nil {
		t.Fatalf("接口失败应返回错误")
	}
	if backend.listCalls != 0 {
		t.Fatalf("失败后不应刷新列表")
	}
	if len(notices) != 1 || notices[0].Level != LevelError || !strings.Contains(notices[0].Message, "余额不足") {
		t.Fatalf("应透出服务端业务消息, got %+v", notices)
	}
}

func TestStopFlipsOnlyMatchingSession(t *testing.T) {
	backend := &fakeAPI{}
	sess := session.New(strat(7, "other", domain.StatusRunning), noopFetcher{}, 0)

	ctrl := New(backend, nil, Hooks{
		Session: func() *session.Session { return sess },
	})

	if err := ctrl.Stop(context.Background(), strat(1, "macd-BTC", domain.StatusRunning)); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if sess.Strategy().Status != domain.StatusRunning {
		t.Fatalf("非选中策略的会话状态不应被改动")
	}
}

func TestDeleteSelectedClearsSelection(t *testing.T) {
	backend := &fakeAPI{}
	sess := session.New(strat(1, "macd-BTC", domain.StatusStopped), noopFetcher{}, 0)

	cleared := false
	ctrl := New(backend, nil, Hooks{
		Session:        func() *session.Session { return sess },
		ClearSelection: func() { cleared = true },
	})

	if err := ctrl.Delete(context.Background(), strat(1, "macd-BTC", domain.StatusStopped)); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !cleared {
		t.Fatalf("删除选中策略后应清空选中")
	}
}

func TestDeleteUnselectedKeepsSelection(t *testing.T) {
	backend := &fakeAPI{}
	sess := session.New(strat(7, "other", domain.StatusStopped), noopFetcher{}, 0)

	cleared := false
	ctrl := New(backend, nil, Hooks{
		Session:        func() *session.Session { return sess },
		ClearSelection: func() { cleared = true },
	})

	if err := ctrl.Delete(context.Background(), strat(1, "macd-BTC", domain.StatusStopped)); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if cleared {
		t.Fatalf("删除非选中策略不应清空选中")
	}
}

func TestBatchStartReportsPartialFailure(t *testing.T) {
	backend := &fakeAPI{
		batchRes: &api.BatchResult{
			SuccessCount: 1,
			Items: []api.BatchItemResult{
				{ID: 1, Success: true},
				{ID: 2, Success: false, Error: "exchange unreachable"},
			},
		},
	}

	var notices []Notice
	ctrl := New(backend, func(n Notice) { notices = append(notices, n) }, Hooks{})

	if err := ctrl.BatchStart(context.Background(), []int64{1, 2}); err != nil {
		t.Fatalf("BatchStart: %v", err)
	}
	if len(notices) != 1 || notices[0].Level != LevelWarn {
		t.Fatalf("部分失败应给出警告, got %+v", notices)
	}
	if !strings.Contains(notices[0].Message, "#2(exchange unreachable)") {
		t.Fatalf("失败项应逐个点名, got %q", notices[0].Message)
	}
}

func TestBatchDeleteCoveringSelectionClears(t *testing.T) {
	backend := &fakeAPI{
		batchRes: &api.BatchResult{
			SuccessCount: 2,
			Items: []api.BatchItemResult{
				{ID: 1, Success: true},
				{ID: 2, Success: true},
			},
		},
	}
	sess := session.New(strat(2, "macd-ETH", domain.StatusStopped), noopFetcher{}, 0)

	cleared := false
	ctrl := New(backend, nil, Hooks{
		Session:        func() *session.Session { return sess },
		ClearSelection: func() { cleared = true },
	})

	if err := ctrl.BatchDelete(context.Background(), []int64{1, 2}); err != nil {
		t.Fatalf("BatchDelete: %v", err)
	}
	if !cleared {
		t.Fatalf("批量删除覆盖选中策略时应清空选中")
	}
}

func TestBatchDeleteFailedItemKeepsSelection(t *testing.T) {
	backend := &fakeAPI{
		batchRes: &api.BatchResult{
			SuccessCount: 1,
			Items: []api.BatchItemResult{
				{ID: 1, Success: true},
				{ID: 2, Success: false, Error: "busy"},
			},
		},
	}
	sess := session.New(strat(2, "macd-ETH", domain.StatusStopped), noopFetcher{}, 0)

	cleared := false
	ctrl := New(backend, nil, Hooks{
		Session:        func() *session.Session { return sess },
		ClearSelection: func() { cleared = true },
	})

	if err := ctrl.BatchDelete(context.Background(), []int64{1, 2}); err != nil {
		t.Fatalf("BatchDelete: %v", err)
	}
	if cleared {
		t.Fatalf("删除失败的策略仍被选中, 不应清空")
	}
}

func TestRefreshFailureWarnsWithoutStrategies(t *testing.T) {
	backend := &fakeAPI{listErr: fmt.Errorf("network down")}

	var notices []Notice
	called := false
	ctrl := New(backend, func(n Notice) { notices = append(notices, n) }, Hooks{
		OnStrategies: func([]domain.Strategy) { called = true },
	})

	ctrl.Refresh(context.Background())

	if called {
		t.Fatalf("刷新失败不应回传列表")
	}
	if len(notices) != 1 || notices[0].Level != LevelWarn {
		t.Fatalf("刷新失败应警告, got %+v", notices)
	}
}
