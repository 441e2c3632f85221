package grouping

import (
	"sort"
	"strings"

	"github.com/stratbot/gostrat/internal/domain"
)

// Mode 分组模式
type Mode string

const (
	// ByStrategy 按策略组分组（strategy_group_id）
	ByStrategy Mode = "strategy"
	// BySymbol 按交易符号分组
	BySymbol Mode = "symbol"
)

// MemberInfo 符号分组模式下成员行的展示信息
type MemberInfo struct {
	StrategyName  string
	Timeframe     string
	IndicatorName string
}

// Member 分组成员
// Display 仅在符号分组模式下填充
type Member struct {
	Strategy domain.Strategy
	Display  *MemberInfo
}

// Group 展示用分组（每次从策略列表重新计算，不持久化）
type Group struct {
	Key          string
	Label        string
	Members      []Member
	RunningCount int
	StoppedCount int
	MaxCreatedAt int64
}

// Size 分组成员数量
func (g *Group) Size() int { return len(g.Members) }

// Result 分组结果
// 不变式：每个策略在 Groups 与 Ungrouped 中恰好出现一次
type Result struct {
	Groups    []Group
	Ungrouped []domain.Strategy
}

// Build 根据分组模式将策略列表划分为分组与未分组两部分
func Build(strategies []domain.Strategy, mode Mode) Result {
	switch mode {
	case BySymbol:
		return buildBySymbol(strategies)
	default:
		return buildByStrategy(strategies)
	}
}

// buildByStrategy 按 strategy_group_id 分组
// 空白 ID 视为未分组；组标签取成员的 GroupLabel；组间按最新创建时间倒序
func buildByStrategy(strategies []domain.Strategy) Result {
	var result Result
	index := make(map[string]int)

	for _, s := range strategies {
		key := strings.TrimSpace(s.StrategyGroupID)
		if key == "" {
			result.Ungrouped = append(result.Ungrouped, s)
			continue
		}

		i, ok := index[key]
		if !ok {
			i = len(result.Groups)
			index[key] = i
			result.Groups = append(result.Groups, Group{Key: key, Label: s.GroupLabel()})
		}
		g := &result.Groups[i]
		g.Members = append(g.Members, Member{Strategy: s})
		if s.CreatedAt > g.MaxCreatedAt {
			g.MaxCreatedAt = s.CreatedAt
		}
		countStatus(g, s.Status)
	}

	sort.SliceStable(result.Groups, func(a, b int) bool {
		return result.Groups[a].MaxCreatedAt > result.Groups[b].MaxCreatedAt
	})
	return result
}

// buildBySymbol 按交易符号分组
// 空白符号视为未分组；每个成员附带行展示信息；组间按符号不区分大小写升序
func buildBySymbol(strategies []domain.Strategy) Result {
	var result Result
	index := make(map[string]int)

	for _, s := range strategies {
		key := strings.TrimSpace(s.TradingConfig.Symbol)
		if key == "" {
			result.Ungrouped = append(result.Ungrouped, s)
			continue
		}

		i, ok := index[key]
		if !ok {
			i = len(result.Groups)
			index[key] = i
			result.Groups = append(result.Groups, Group{Key: key, Label: key})
		}
		g := &result.Groups[i]
		g.Members = append(g.Members, Member{
			Strategy: s,
			Display: &MemberInfo{
				StrategyName:  s.Name,
				Timeframe:     s.TradingConfig.Timeframe,
				IndicatorName: s.IndicatorConfig.IndicatorName,
			},
		})
		if s.CreatedAt > g.MaxCreatedAt {
			g.MaxCreatedAt = s.CreatedAt
		}
		countStatus(g, s.Status)
	}

	sort.SliceStable(result.Groups, func(a, b int) bool {
		return strings.ToLower(result.Groups[a].Label) < strings.ToLower(result.Groups[b].Label)
	})
	return result
}

func countStatus(g *Group, status domain.StrategyStatus) {
	if status.IsRunning() {
		g.RunningCount++
		return
	}
	// error 及未知状态都按已停止统计
	g.StoppedCount++
}

// CollapseState 分组折叠状态（按组 key 记录，默认展开）
// 折叠状态独立于分组模式，切换模式时保留
type CollapseState map[string]bool

// NewCollapseState 创建空的折叠状态
func NewCollapseState() CollapseState {
	return make(CollapseState)
}

// Toggle 切换某个分组的折叠状态
func (c CollapseState) Toggle(key string) {
	c[key] = !c[key]
}

// IsCollapsed 某个分组是否已折叠
func (c CollapseState) IsCollapsed(key string) bool {
	return c[key]
}
