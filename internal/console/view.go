package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/stratbot/gostrat/internal/actions"
	"github.com/stratbot/gostrat/internal/domain"
	"github.com/stratbot/gostrat/internal/grouping"
	"github.com/stratbot/gostrat/internal/wizard"
)

// 样式定义
var (
	// 边框样式
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	// 标题样式
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1)

	// 成功样式（绿色）
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	// 警告样式（黄色）
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	// 错误样式（红色）
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	// 信息样式（蓝色）
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	// 弱化样式（灰色）
	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	// 光标行样式
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
)

// View 渲染UI
func (m Model) View() string {
	if m.width == 0 {
		return "初始化中..."
	}

	switch m.mode {
	case modeWizard:
		return m.renderWizard()
	case modePicker:
		return m.renderPicker()
	case modeSearch:
		return m.renderSearch()
	}

	var sections []string
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderList(), m.renderDetail())
	sections = append(sections, body)

	if m.mode == modeConfirmDelete {
		sections = append(sections, m.renderConfirm())
	}
	sections = append(sections, m.renderNotice(), m.renderHelp())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderList 策略列表面板
func (m Model) renderList() string {
	modeLabel := "按策略组"
	if m.groupMode == grouping.BySymbol {
		modeLabel = "按符号"
	}
	title := titleStyle.Render(fmt.Sprintf("📋 策略列表 (%s)", modeLabel))

	var content strings.Builder

	if m.loading {
		content.WriteString("加载中...")
	} else if len(m.rows) == 0 {
		content.WriteString("暂无策略，按 'n' 创建")
	}

	for i, r := range m.rows {
		line := m.renderRow(r)
		if i == m.cursor {
			line = cursorStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		content.WriteString(line + "\n")
	}

	return borderStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, content.String()))
}

func (m Model) renderRow(r row) string {
	if r.kind == rowGroupHeader {
		arrow := "▾"
		if r.collapsed {
			arrow = "▸"
		}
		return fmt.Sprintf("%s %s (%d)  %s %s",
			arrow, r.label, r.size,
			successStyle.Render(fmt.Sprintf("运行 %d", r.running)),
			dimStyle.Render(fmt.Sprintf("停止 %d", r.stopped)))
	}

	mark := " "
	if m.marked[r.strategy.ID] {
		mark = "✓"
	}

	status := statusBadge(r.strategy.Status)
	line := fmt.Sprintf("[%s] %s %s", mark, status, r.strategy.Name)

	if r.display != nil {
		line += dimStyle.Render(fmt.Sprintf("  %s/%s/%s",
			r.display.StrategyName, r.display.Timeframe, r.display.IndicatorName))
	}
	if m.sess != nil && m.sess.Strategy().ID == r.strategy.ID {
		line += infoStyle.Render(" ◀")
	}
	return line
}

func statusBadge(s domain.StrategyStatus) string {
	switch s {
	case domain.StatusRunning:
		return successStyle.Render("▶")
	case domain.StatusError:
		return errorStyle.Render("✗")
	default:
		return dimStyle.Render("■")
	}
}

// renderDetail 策略详情面板（权益轮询结果）
func (m Model) renderDetail() string {
	title := titleStyle.Render("📈 策略详情")

	var content strings.Builder

	if m.sess == nil {
		content.WriteString("未选中策略\n")
		content.WriteString(dimStyle.Render("enter 选中后开始权益轮询"))
		return borderStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, content.String()))
	}

	s := m.sess.Strategy()
	content.WriteString(fmt.Sprintf("名称:     %s\n", s.Name))
	content.WriteString(fmt.Sprintf("状态:     %s %s\n", statusBadge(s.Status), s.Status))
	content.WriteString(fmt.Sprintf("市场:     %s  %s\n", s.MarketCategory, s.TradingConfig.Symbol))
	content.WriteString(fmt.Sprintf("周期:     %s  杠杆: %dx  方向: %s\n",
		s.TradingConfig.Timeframe, s.TradingConfig.Leverage, s.TradingConfig.TradeDirection))
	content.WriteString(fmt.Sprintf("模式:     %s\n", s.ExecutionMode))
	content.WriteString(strings.Repeat("─", 36) + "\n")
	content.WriteString(fmt.Sprintf("初始资金: %.2f\n", s.TradingConfig.InitialCapital))

	equity := m.sess.CurrentEquity()
	if equity == nil {
		content.WriteString("当前权益: --\n")
		content.WriteString("累计盈亏: --\n")
	} else {
		content.WriteString(fmt.Sprintf("当前权益: %s\n", equity.StringFixed(2)))

		pnl := m.sess.TotalPnL()
		pct := m.sess.TotalPnLPercent()
		style := successStyle
		if pnl != nil && pnl.IsNegative() {
			style = errorStyle
		}
		if pnl != nil && pct != nil {
			content.WriteString(fmt.Sprintf("累计盈亏: %s\n",
				style.Render(fmt.Sprintf("%s (%s%%)", pnl.StringFixed(2), pct.StringFixed(2)))))
		}
	}

	if err := m.sess.LastError(); err != nil {
		content.WriteString(warningStyle.Render("权益拉取失败，沿用上次数据") + "\n")
	}

	return borderStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, content.String()))
}

// renderConfirm 删除确认条
func (m Model) renderConfirm() string {
	var prompt string
	if len(m.pendingDelete) == 1 && m.deleteLabel != "" {
		prompt = fmt.Sprintf("确认删除策略 %s ? (y/其他键取消)", m.deleteLabel)
	} else {
		prompt = fmt.Sprintf("确认删除 %d 个策略? (y/其他键取消)", len(m.pendingDelete))
	}
	return warningStyle.Render(prompt)
}

// renderNotice 操作提示条（10 秒后淡出）
func (m Model) renderNotice() string {
	if m.notice.Message == "" || time.Since(m.noticeAt) > 10*time.Second {
		return ""
	}
	switch m.notice.Level {
	case actions.LevelError:
		return errorStyle.Render(m.notice.Message)
	case actions.LevelWarn:
		return warningStyle.Render(m.notice.Message)
	default:
		return infoStyle.Render(m.notice.Message)
	}
}

func (m Model) renderHelp() string {
	return dimStyle.Render(
		"↑/↓ 移动 | enter 选中/折叠 | space 标记 | tab 切换分组 | s/x/d 启/停/删 | S/X/D 批量 | n 新建 | e 编辑 | r 刷新 | q 退出")
}

// ===== 向导渲染 =====

var stepTitles = map[wizard.Step]string{
	wizard.StepBasics:    "第 1 步 · 指标与符号",
	wizard.StepRisk:      "第 2 步 · 风控参数",
	wizard.StepExecution: "第 3 步 · 执行与通知",
}

func (m Model) renderWizard() string {
	u := m.wiz
	modeLabel := "创建策略"
	if u.w.Mode() == wizard.ModeEdit {
		modeLabel = fmt.Sprintf("编辑策略 #%d", u.w.EditID())
	}
	title := titleStyle.Render(fmt.Sprintf("🛠 %s — %s", modeLabel, stepTitles[u.w.Step()]))

	var content strings.Builder

	if !u.loaded {
		content.WriteString("加载下拉数据...\n")
	}

	for i, f := range u.fields() {
		locked := f.locked != nil && f.locked()

		value := f.value()
		if u.editing && i == u.focus {
			value = u.buffer + "▏"
		}

		line := fmt.Sprintf("%-14s %s", f.label, value)
		if locked {
			line = dimStyle.Render(line + " (锁定)")
		}
		if i == u.focus {
			line = cursorStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		if f.hint != nil {
			if hint := f.hint(); hint != "" {
				line += dimStyle.Render("  " + hint)
			}
		}
		if u.errs.Has(f.key) {
			line += errorStyle.Render("  ← " + u.errs[f.key])
		}
		content.WriteString(line + "\n")
	}

	if u.w.Step() == wizard.StepExecution {
		content.WriteString(strings.Repeat("─", 40) + "\n")
		if u.w.Draft().ExecutionMode == domain.ModeLive {
			if u.w.ConnectionTested() {
				content.WriteString(successStyle.Render("✓ 连接测试已通过") + "\n")
			} else {
				content.WriteString(warningStyle.Render("! 实盘提交前需通过连接测试 (ctrl+t)") + "\n")
			}
		}
		if u.testing {
			content.WriteString("连接测试中...\n")
		}
		if u.submitting {
			content.WriteString("提交中...\n")
		}
	}

	if u.flash != "" {
		content.WriteString(errorStyle.Render(u.flash) + "\n")
	}

	footer := dimStyle.Render(
		"↑/↓ 字段 | enter 编辑/切换 | ←/→ 调整 | ctrl+n 下一步 | ctrl+b 上一步 | ctrl+t 连接测试 | ctrl+s 提交 | esc 关闭")

	return borderStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, content.String(), footer))
}

// renderPicker 符号选择器
func (m Model) renderPicker() string {
	u := m.wiz
	d := u.w.Draft()
	title := titleStyle.Render("🔖 选择交易符号")

	selected := make(map[string]bool, len(d.SelectedSymbols))
	for _, key := range d.SelectedSymbols {
		selected[key] = true
	}

	var content strings.Builder
	watchlist := u.w.Watchlist()
	if len(watchlist) == 0 {
		content.WriteString("自选列表为空，按 'a' 搜索添加\n")
	}

	for i, entry := range watchlist {
		key := string(entry.Market) + ":" + entry.Symbol
		mark := " "
		if selected[key] || (u.w.Mode() == wizard.ModeEdit && d.Symbol == entry.Symbol) {
			mark = "✓"
		}
		line := fmt.Sprintf("[%s] %-10s %s", mark, entry.Market, entry.Symbol)
		if entry.Name != "" {
			line += dimStyle.Render("  " + entry.Name)
		}
		if i == u.pickerCursor {
			line = cursorStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		content.WriteString(line + "\n")
	}

	footer := dimStyle.Render("enter/space 选择 | a 搜索添加 | esc 返回向导")
	return borderStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, content.String(), footer))
}

// renderSearch 符号搜索对话框
func (m Model) renderSearch() string {
	u := m.wiz
	state := m.search.State()
	title := titleStyle.Render(fmt.Sprintf("🔍 搜索符号 (%s)", state.Market))

	var content strings.Builder
	content.WriteString(fmt.Sprintf("关键字: %s▏\n", state.Keyword))
	content.WriteString(strings.Repeat("─", 36) + "\n")

	switch {
	case state.Searching:
		content.WriteString("搜索中...\n")
	case len(state.Results) > 0:
		for i, hit := range state.Results {
			line := fmt.Sprintf("%-12s %s", hit.Symbol, hit.Name)
			if hit.Exchange != "" {
				line += dimStyle.Render("  " + hit.Exchange)
			}
			if i == u.searchCursor {
				line = cursorStyle.Render("> " + line)
			} else {
				line = "  " + line
			}
			content.WriteString(line + "\n")
		}
	case state.Attempted:
		if manual := m.search.ManualCandidate(); manual != "" {
			content.WriteString(fmt.Sprintf("无结果。enter 直接添加 %s\n",
				warningStyle.Render(manual)))
		} else {
			content.WriteString("输入关键字搜索\n")
		}
	default:
		content.WriteString("输入关键字搜索\n")
	}

	if state.Err != nil {
		content.WriteString(errorStyle.Render("搜索失败，请重试") + "\n")
	}

	footer := dimStyle.Render("↑/↓ 选择 | enter 添加到自选 | esc 返回")
	return borderStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, content.String(), footer))
}
