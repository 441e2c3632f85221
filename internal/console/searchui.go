package console

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stratbot/gostrat/internal/actions"
	"github.com/stratbot/gostrat/internal/domain"
	"github.com/stratbot/gostrat/internal/wizard"
)

// handlePickerKey 符号选择器按键（向导第一步的子界面）
func (m Model) handlePickerKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	u := m.wiz
	if u == nil {
		m.mode = modeList
		return m, nil
	}
	watchlist := u.w.Watchlist()

	switch msg.String() {
	case "esc":
		m.mode = modeWizard
		return m, nil

	case "up", "k":
		if u.pickerCursor > 0 {
			u.pickerCursor--
		}
		return m, nil

	case "down", "j":
		if u.pickerCursor < len(watchlist)-1 {
			u.pickerCursor++
		}
		return m, nil

	case "enter", " ":
		if u.pickerCursor < 0 || u.pickerCursor >= len(watchlist) {
			return m, nil
		}
		entry := watchlist[u.pickerCursor]
		multi := u.w.Mode() == wizard.ModeCreate
		u.w.Draft().SelectWatchlistSymbol(entry, multi)
		if !multi {
			// 编辑模式单选，选完即回向导
			m.mode = modeWizard
		}
		return m, nil

	case "a", "/":
		m.openSearch()
		return m, nil
	}

	return m, nil
}

// openSearch 打开符号搜索对话框
// 确认后的自动回选经消息通道回到 Update 循环处理
func (m *Model) openSearch() {
	u := m.wiz
	if u == nil {
		return
	}
	updates := m.updates
	m.search.Open(u.w.Draft().MarketCategory, func(entry domain.WatchlistEntry) {
		push(updates, symbolSelectedMsg(entry))
	})
	u.searchCursor = 0
	m.mode = modeSearch
}

// handleSearchKey 搜索对话框按键
func (m Model) handleSearchKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	u := m.wiz
	if u == nil {
		m.search.Close()
		m.mode = modeList
		return m, nil
	}
	state := m.search.State()

	switch msg.Type {
	case tea.KeyEsc:
		m.search.Close()
		m.mode = modePicker
		return m, nil

	case tea.KeyUp:
		if u.searchCursor > 0 {
			u.searchCursor--
		}
		return m, nil

	case tea.KeyDown:
		if u.searchCursor < len(state.Results)-1 {
			u.searchCursor++
		}
		return m, nil

	case tea.KeyEnter:
		if len(state.Results) > 0 {
			if u.searchCursor >= len(state.Results) {
				u.searchCursor = len(state.Results) - 1
			}
			return m, m.confirmSearchCmd(state.Results[u.searchCursor])
		}
		if m.search.ManualCandidate() != "" {
			return m, m.confirmManualCmd()
		}
		m.search.Flush()
		return m, nil

	case tea.KeyBackspace:
		if len(state.Keyword) > 0 {
			runes := []rune(state.Keyword)
			m.search.SetKeyword(string(runes[:len(runes)-1]))
			u.searchCursor = 0
		}
		return m, nil

	case tea.KeyRunes, tea.KeySpace:
		keyword := state.Keyword + string(msg.Runes)
		if msg.Type == tea.KeySpace {
			keyword = state.Keyword + " "
		}
		m.search.SetKeyword(keyword)
		u.searchCursor = 0
		return m, nil
	}

	return m, nil
}

// confirmSearchCmd 确认添加搜索结果：入自选 → 刷新列表 → 自动回选
func (m Model) confirmSearchCmd(hit domain.SymbolHit) tea.Cmd {
	search, timeout := m.search, m.cfg.Timeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		entries, err := search.Confirm(ctx, hit)
		if err != nil {
			return noticeMsg(actions.Notice{
				Level:   actions.LevelError,
				Message: "添加自选失败: " + err.Error(),
			})
		}
		return watchlistMsg(entries)
	}
}

// confirmManualCmd 搜索无结果时手工添加当前关键字
func (m Model) confirmManualCmd() tea.Cmd {
	search, timeout := m.search, m.cfg.Timeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		entries, err := search.ConfirmManual(ctx)
		if err != nil {
			return noticeMsg(actions.Notice{
				Level:   actions.LevelError,
				Message: "添加自选失败: " + err.Error(),
			})
		}
		if entries == nil {
			return nil
		}
		return watchlistMsg(entries)
	}
}
