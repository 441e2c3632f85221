package grouping

import (
	"testing"

	"github.com/stratbot/gostrat/internal/domain"
)

func strat(id int64, name, groupID, symbol string, status domain.StrategyStatus, createdAt int64) domain.Strategy {
	return domain.Strategy{
		ID:              id,
		Name:            name,
		Status:          status,
		StrategyGroupID: groupID,
		CreatedAt:       createdAt,
		TradingConfig: domain.TradingConfig{
			Symbol:    symbol,
			Timeframe: "1h",
		},
		IndicatorConfig: domain.IndicatorConfig{IndicatorName: "MACD"},
	}
}

func TestBuildByStrategy_GroupsAndUngrouped(t *testing.T) {
	strategies := []domain.Strategy{
		strat(1, "macd-btc", "g1", "BTC/USDT", domain.StatusRunning, 100),
		strat(2, "macd-eth", "g1", "ETH/USDT", domain.StatusStopped, 200),
		strat(3, "solo", "", "BTC/USDT", domain.StatusRunning, 300),
		strat(4, "rsi-btc", "g2", "BTC/USDT", domain.StatusError, 400),
		strat(5, "blank-group", "   ", "DOGE/USDT", domain.StatusStopped, 500),
	}

	result := Build(strategies, ByStrategy)

	if len(result.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(result.Groups))
	}
	if len(result.Ungrouped) != 2 {
		t.Fatalf("expected 2 ungrouped, got %d", len(result.Ungrouped))
	}

	// g2 的最大创建时间更新，应排在前面
	if result.Groups[0].Key != "g2" {
		t.Fatalf("expected g2 first, got %s", result.Groups[0].Key)
	}
	if result.Groups[1].Key != "g1" {
		t.Fatalf("expected g1 second, got %s", result.Groups[1].Key)
	}

	g1 := result.Groups[1]
	if g1.RunningCount != 1 || g1.StoppedCount != 1 {
		t.Fatalf("g1 counts wrong: running=%d stopped=%d", g1.RunningCount, g1.StoppedCount)
	}

	// error 状态按已停止统计
	g2 := result.Groups[0]
	if g2.RunningCount != 0 || g2.StoppedCount != 1 {
		t.Fatalf("g2 counts wrong: running=%d stopped=%d", g2.RunningCount, g2.StoppedCount)
	}
}

func TestBuildByStrategy_LabelFromNamePrefix(t *testing.T) {
	strategies := []domain.Strategy{
		strat(1, "macd-btc-1h", "g1", "BTC/USDT", domain.StatusRunning, 100),
	}
	result := Build(strategies, ByStrategy)
	if len(result.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(result.Groups))
	}
	if result.Groups[0].Label != "macd" {
		t.Fatalf("expected label 'macd', got %q", result.Groups[0].Label)
	}
}

func TestBuildByStrategy_LabelPrefersGroupBaseName(t *testing.T) {
	s := strat(1, "macd-btc", "g1", "BTC/USDT", domain.StatusRunning, 100)
	s.GroupBaseName = "趋势组合"
	result := Build([]domain.Strategy{s}, ByStrategy)
	if result.Groups[0].Label != "趋势组合" {
		t.Fatalf("expected group_base_name label, got %q", result.Groups[0].Label)
	}
}

func TestBuildBySymbol_SortedCaseInsensitive(t *testing.T) {
	strategies := []domain.Strategy{
		strat(1, "a", "", "eth/usdt", domain.StatusRunning, 100),
		strat(2, "b", "", "BTC/USDT", domain.StatusRunning, 200),
		strat(3, "c", "", "ADA/USDT", domain.StatusStopped, 300),
		strat(4, "d", "", "", domain.StatusStopped, 400),
	}

	result := Build(strategies, BySymbol)

	if len(result.Groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(result.Groups))
	}
	want := []string{"ADA/USDT", "BTC/USDT", "eth/usdt"}
	for i, label := range want {
		if result.Groups[i].Label != label {
			t.Fatalf("group %d: expected %s, got %s", i, label, result.Groups[i].Label)
		}
	}
	if len(result.Ungrouped) != 1 || result.Ungrouped[0].ID != 4 {
		t.Fatalf("expected strategy 4 ungrouped")
	}
}

func TestBuildBySymbol_MemberDisplayInfo(t *testing.T) {
	strategies := []domain.Strategy{
		strat(1, "macd-btc", "", "BTC/USDT", domain.StatusRunning, 100),
	}
	result := Build(strategies, BySymbol)
	m := result.Groups[0].Members[0]
	if m.Display == nil {
		t.Fatalf("expected display info in symbol mode")
	}
	if m.Display.StrategyName != "macd-btc" || m.Display.Timeframe != "1h" || m.Display.IndicatorName != "MACD" {
		t.Fatalf("unexpected display info: %+v", m.Display)
	}
}

func TestBuildByStrategy_NoDisplayInfo(t *testing.T) {
	strategies := []domain.Strategy{
		strat(1, "macd-btc", "g1", "BTC/USDT", domain.StatusRunning, 100),
	}
	result := Build(strategies, ByStrategy)
	if result.Groups[0].Members[0].Display != nil {
		t.Fatalf("strategy mode should not annotate display info")
	}
}

func TestCollapseState(t *testing.T) {
	cs := NewCollapseState()
	if cs.IsCollapsed("g1") {
		t.Fatalf("default should be expanded")
	}
	cs.Toggle("g1")
	if !cs.IsCollapsed("g1") {
		t.Fatalf("expected collapsed after toggle")
	}
	cs.Toggle("g1")
	if cs.IsCollapsed("g1") {
		t.Fatalf("expected expanded after second toggle")
	}
	// 折叠状态独立于其他组
	if cs.IsCollapsed("g2") {
		t.Fatalf("g2 should be unaffected")
	}
}
