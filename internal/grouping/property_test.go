package grouping

import (
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"

	"github.com/stratbot/gostrat/internal/domain"
)

// genStrategy 随机生成一个策略（部分无分组/无符号，状态含未知值）
type genStrategy domain.Strategy

var genGroupIDs = []string{"", "  ", "g1", "g2", "g3", "momentum", "grid"}
var genSymbols = []string{"", "BTC/USDT", "ETH/USDT", "eth/usdt", "EURUSD", "AAPL"}
var genStatuses = []domain.StrategyStatus{
	domain.StatusRunning, domain.StatusStopped, domain.StatusError,
	domain.StrategyStatus("paused"), domain.StrategyStatus(""),
}

// Generate 实现 quick.Generator 接口
func (genStrategy) Generate(rand *rand.Rand, size int) reflect.Value {
	s := genStrategy{
		ID:              rand.Int63n(10000),
		Name:            "strat-" + genGroupIDs[rand.Intn(len(genGroupIDs))],
		Status:          genStatuses[rand.Intn(len(genStatuses))],
		StrategyGroupID: genGroupIDs[rand.Intn(len(genGroupIDs))],
		CreatedAt:       rand.Int63n(1_000_000),
	}
	s.TradingConfig.Symbol = genSymbols[rand.Intn(len(genSymbols))]
	return reflect.ValueOf(s)
}

func toStrategies(gs []genStrategy) []domain.Strategy {
	out := make([]domain.Strategy, len(gs))
	for i, g := range gs {
		out[i] = domain.Strategy(g)
	}
	return out
}

// 属性：任意策略集合在任意分组模式下恰好被划分一次
// （groups + ungrouped 的总数等于输入数量，且每个策略只出现一次）
func TestPropertyGroupingIsPartition(t *testing.T) {
	for _, mode := range []Mode{ByStrategy, BySymbol} {
		mode := mode
		property := func(gs []genStrategy) bool {
			strategies := toStrategies(gs)
			result := Build(strategies, mode)

			seen := make(map[int64]int)
			total := 0
			for _, g := range result.Groups {
				for _, m := range g.Members {
					seen[m.Strategy.ID]++
					total++
				}
			}
			for _, s := range result.Ungrouped {
				seen[s.ID]++
				total++
			}
			if total != len(strategies) {
				t.Logf("mode=%s 划分总数不一致: expected=%d actual=%d", mode, len(strategies), total)
				return false
			}

			// 按 ID 统计出现次数（测试数据生成的 ID 可能重复，按出现次数对账）
			want := make(map[int64]int)
			for _, s := range strategies {
				want[s.ID]++
			}
			for id, n := range want {
				if seen[id] != n {
					t.Logf("mode=%s 策略 %d 出现 %d 次, 期望 %d 次", mode, id, seen[id], n)
					return false
				}
			}
			return true
		}
		if err := quick.Check(property, &quick.Config{MaxCount: 200}); err != nil {
			t.Errorf("mode=%s 划分属性测试失败: %v", mode, err)
		}
	}
}

// 属性：每个分组的 running+stopped 等于组大小（未知状态按已停止统计）
func TestPropertyGroupCountsSumToSize(t *testing.T) {
	property := func(gs []genStrategy) bool {
		strategies := toStrategies(gs)
		for _, mode := range []Mode{ByStrategy, BySymbol} {
			result := Build(strategies, mode)
			for _, g := range result.Groups {
				if g.RunningCount+g.StoppedCount != g.Size() {
					t.Logf("mode=%s group=%s counts=%d+%d size=%d",
						mode, g.Key, g.RunningCount, g.StoppedCount, g.Size())
					return false
				}
			}
		}
		return true
	}
	if err := quick.Check(property, &quick.Config{MaxCount: 200}); err != nil {
		t.Errorf("计数属性测试失败: %v", err)
	}
}

// 属性：空白分组键（含纯空白）永远不会形成分组
func TestPropertyBlankKeysNeverGroup(t *testing.T) {
	property := func(gs []genStrategy) bool {
		strategies := toStrategies(gs)
		for _, mode := range []Mode{ByStrategy, BySymbol} {
			result := Build(strategies, mode)
			for _, g := range result.Groups {
				if g.Key == "" || g.Key == "  " {
					return false
				}
			}
		}
		return true
	}
	if err := quick.Check(property, &quick.Config{MaxCount: 200}); err != nil {
		t.Errorf("空白键属性测试失败: %v", err)
	}
}
