package console

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stratbot/gostrat/internal/actions"
	"github.com/stratbot/gostrat/internal/domain"
	"github.com/stratbot/gostrat/internal/grouping"
	"github.com/stratbot/gostrat/internal/session"
	"github.com/stratbot/gostrat/internal/symbolsearch"
	"github.com/stratbot/gostrat/internal/wizard"
	"github.com/stratbot/gostrat/pkg/api"
	"github.com/stratbot/gostrat/pkg/config"
	"github.com/stratbot/gostrat/pkg/credcache"
)

// uiMode 界面模式
type uiMode int

const (
	modeList uiMode = iota
	modeConfirmDelete
	modeWizard
	modePicker
	modeSearch
)

// rowKind 列表行类型
type rowKind int

const (
	rowGroupHeader rowKind = iota
	rowStrategy
)

// row 列表面板的扁平化展示行（分组头 + 成员 + 未分组策略）
type row struct {
	kind      rowKind
	groupKey  string
	label     string
	running   int
	stopped   int
	size      int
	collapsed bool
	strategy  domain.Strategy
	display   *grouping.MemberInfo
}

// sessionHolder 在 Update 循环与操作协程之间共享当前详情会话
type sessionHolder struct {
	mu   sync.Mutex
	sess *session.Session
}

func (h *sessionHolder) get() *session.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sess
}

func (h *sessionHolder) set(s *session.Session) {
	h.mu.Lock()
	h.sess = s
	h.mu.Unlock()
}

// Model 策略控制台主模型
type Model struct {
	client *api.Client
	cfg    *config.Config
	cache  *credcache.Cache
	ctrl   *actions.Controller
	holder *sessionHolder

	updates chan tea.Msg

	strategies []domain.Strategy
	groupMode  grouping.Mode
	collapse   grouping.CollapseState
	rows       []row
	cursor     int
	marked     map[int64]bool

	sess *session.Session

	mode   uiMode
	wiz    *wizardUI
	search *symbolsearch.Dialog

	pendingDelete []int64
	deleteLabel   string

	notice   actions.Notice
	noticeAt time.Time

	width   int
	height  int
	loading bool
}

// New 创建控制台模型
func New(client *api.Client, cfg *config.Config, cache *credcache.Cache) Model {
	updates := make(chan tea.Msg, 64)
	holder := &sessionHolder{}

	ctrl := actions.New(client,
		func(n actions.Notice) { push(updates, noticeMsg(n)) },
		actions.Hooks{
			Session:        holder.get,
			ClearSelection: func() { push(updates, clearSelectionMsg{}) },
			OnStrategies:   func(s []domain.Strategy) { push(updates, strategiesMsg(s)) },
		})

	search := symbolsearch.New(client, cfg.SearchDebounce(), func() {
		push(updates, searchMsg{})
	})

	return Model{
		client:    client,
		cfg:       cfg,
		cache:     cache,
		ctrl:      ctrl,
		holder:    holder,
		updates:   updates,
		groupMode: grouping.ByStrategy,
		collapse:  grouping.NewCollapseState(),
		marked:    make(map[int64]bool),
		search:    search,
		loading:   true,
	}
}

// push 非阻塞投递，通道满时丢弃（界面晚一拍刷新，不卡住操作协程）
func push(ch chan tea.Msg, msg tea.Msg) {
	select {
	case ch <- msg:
	default:
	}
}

// listenCmd 监听后台消息通道
func (m Model) listenCmd() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		return relayMsg{inner: <-updates}
	}
}

// refreshCmd 拉取策略列表（结果经控制器钩子送回）
func (m Model) refreshCmd() tea.Cmd {
	ctrl, timeout := m.ctrl, m.cfg.Timeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		ctrl.Refresh(ctx)
		return nil
	}
}

// Init 初始化：挂起通道监听并拉取首屏数据
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.listenCmd(), m.refreshCmd())
}

// Update 处理消息并更新模型
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if relay, ok := msg.(relayMsg); ok {
		next, cmd := m.handle(relay.inner)
		return next, tea.Batch(cmd, next.listenCmd())
	}
	return m.handle(msg)
}

func (m Model) handle(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case strategiesMsg:
		m.strategies = msg
		m.loading = false
		m.pruneMarks()
		m.rebuildRows()
		return m, nil

	case noticeMsg:
		m.notice = actions.Notice(msg)
		m.noticeAt = time.Now()
		return m, nil

	case clearSelectionMsg:
		m.clearSelection()
		return m, nil

	case equityMsg:
		// 会话权益已在 Session 内更新，这里只触发重绘
		return m, nil

	case searchMsg:
		return m, nil

	case watchlistMsg:
		if m.wiz != nil {
			m.wiz.w.SetWatchlist(msg)
		}
		if m.mode == modeSearch {
			m.mode = modePicker
		}
		return m, nil

	case symbolSelectedMsg:
		if m.wiz != nil {
			multi := m.wiz.w.Mode() == wizard.ModeCreate
			m.wiz.w.Draft().SelectWatchlistSymbol(domain.WatchlistEntry(msg), multi)
		}
		return m, nil

	case wizardLoadedMsg, connTestMsg, vaultEntryMsg, submitMsg, indicatorParamsMsg:
		return m.handleWizardMsg(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// handleKey 按界面模式分发按键
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.teardown()
		return m, tea.Quit
	}

	switch m.mode {
	case modeConfirmDelete:
		return m.handleConfirmKey(msg)
	case modeWizard:
		return m.handleWizardKey(msg)
	case modePicker:
		return m.handlePickerKey(msg)
	case modeSearch:
		return m.handleSearchKey(msg)
	default:
		return m.handleListKey(msg)
	}
}

// handleListKey 列表模式按键
func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.teardown()
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
		return m, nil

	case "tab":
		if m.groupMode == grouping.ByStrategy {
			m.groupMode = grouping.BySymbol
		} else {
			m.groupMode = grouping.ByStrategy
		}
		m.rebuildRows()
		return m, nil

	case "enter":
		r, ok := m.currentRow()
		if !ok {
			return m, nil
		}
		if r.kind == rowGroupHeader {
			m.collapse.Toggle(r.groupKey)
			m.rebuildRows()
			return m, nil
		}
		m.selectStrategy(r.strategy)
		return m, nil

	case " ":
		r, ok := m.currentRow()
		if !ok {
			return m, nil
		}
		if r.kind == rowGroupHeader {
			m.collapse.Toggle(r.groupKey)
			m.rebuildRows()
			return m, nil
		}
		m.marked[r.strategy.ID] = !m.marked[r.strategy.ID]
		if !m.marked[r.strategy.ID] {
			delete(m.marked, r.strategy.ID)
		}
		return m, nil

	case "s":
		if r, ok := m.currentRow(); ok && r.kind == rowStrategy {
			return m, m.startCmd(r.strategy)
		}
		return m, nil

	case "x":
		if r, ok := m.currentRow(); ok && r.kind == rowStrategy {
			return m, m.stopCmd(r.strategy)
		}
		return m, nil

	case "S":
		if ids := m.batchTargets(); len(ids) > 0 {
			return m, m.batchCmd(m.ctrl.BatchStart, ids)
		}
		return m, nil

	case "X":
		if ids := m.batchTargets(); len(ids) > 0 {
			return m, m.batchCmd(m.ctrl.BatchStop, ids)
		}
		return m, nil

	case "d":
		if r, ok := m.currentRow(); ok && r.kind == rowStrategy {
			m.pendingDelete = []int64{r.strategy.ID}
			m.deleteLabel = r.strategy.Name
			m.mode = modeConfirmDelete
		}
		return m, nil

	case "D":
		if ids := m.batchTargets(); len(ids) > 0 {
			m.pendingDelete = ids
			m.deleteLabel = ""
			m.mode = modeConfirmDelete
		}
		return m, nil

	case "n":
		return m.openWizard(wizard.NewCreate())

	case "e":
		if r, ok := m.currentRow(); ok && r.kind == rowStrategy {
			return m.openWizard(wizard.NewEdit(r.strategy))
		}
		return m, nil

	case "r":
		m.loading = true
		return m, m.refreshCmd()
	}

	return m, nil
}

// handleConfirmKey 删除确认
func (m Model) handleConfirmKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		ids := m.pendingDelete
		label := m.deleteLabel
		m.pendingDelete = nil
		m.mode = modeList
		if len(ids) == 1 && label != "" {
			return m, m.deleteCmd(domain.Strategy{ID: ids[0], Name: label})
		}
		return m, m.batchCmd(m.ctrl.BatchDelete, ids)
	default:
		m.pendingDelete = nil
		m.mode = modeList
		return m, nil
	}
}

// ===== 列表状态维护 =====

// rebuildRows 从策略列表重算分组并扁平化为展示行
func (m *Model) rebuildRows() {
	result := grouping.Build(m.strategies, m.groupMode)

	m.rows = m.rows[:0]
	for _, g := range result.Groups {
		collapsed := m.collapse.IsCollapsed(g.Key)
		m.rows = append(m.rows, row{
			kind:      rowGroupHeader,
			groupKey:  g.Key,
			label:     g.Label,
			running:   g.RunningCount,
			stopped:   g.StoppedCount,
			size:      g.Size(),
			collapsed: collapsed,
		})
		if collapsed {
			continue
		}
		for _, member := range g.Members {
			m.rows = append(m.rows, row{
				kind:     rowStrategy,
				groupKey: g.Key,
				strategy: member.Strategy,
				display:  member.Display,
			})
		}
	}
	for _, s := range result.Ungrouped {
		m.rows = append(m.rows, row{kind: rowStrategy, strategy: s})
	}

	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	// 列表刷新后同步会话里的策略快照
	if m.sess != nil {
		id := m.sess.Strategy().ID
		found := false
		for _, s := range m.strategies {
			if s.ID == id {
				m.sess.SetStatus(s.Status)
				found = true
				break
			}
		}
		if !found {
			m.clearSelection()
		}
	}
}

// pruneMarks 清掉已不存在的标记
func (m *Model) pruneMarks() {
	alive := make(map[int64]bool, len(m.strategies))
	for _, s := range m.strategies {
		alive[s.ID] = true
	}
	for id := range m.marked {
		if !alive[id] {
			delete(m.marked, id)
		}
	}
}

func (m *Model) currentRow() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

// batchTargets 批量操作目标：优先已标记集合，否则光标所在分组的成员
func (m *Model) batchTargets() []int64 {
	if len(m.marked) > 0 {
		ids := make([]int64, 0, len(m.marked))
		for _, r := range m.rows {
			if r.kind == rowStrategy && m.marked[r.strategy.ID] {
				ids = append(ids, r.strategy.ID)
			}
		}
		// 折叠的组里被标记的策略不在 rows 里，补一遍
		if len(ids) < len(m.marked) {
			ids = ids[:0]
			for _, s := range m.strategies {
				if m.marked[s.ID] {
					ids = append(ids, s.ID)
				}
			}
		}
		return ids
	}

	r, ok := m.currentRow()
	if !ok || r.kind != rowGroupHeader {
		return nil
	}
	var ids []int64
	for _, s := range m.strategies {
		if sameGroup(s, r.groupKey, m.groupMode) {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

func sameGroup(s domain.Strategy, key string, mode grouping.Mode) bool {
	result := grouping.Build([]domain.Strategy{s}, mode)
	return len(result.Groups) == 1 && result.Groups[0].Key == key
}

// selectStrategy 选中策略：重建详情会话并启动权益轮询
func (m *Model) selectStrategy(s domain.Strategy) {
	if m.sess != nil {
		if m.sess.Strategy().ID == s.ID {
			return
		}
		m.sess.Stop()
	}

	sess := session.New(s, m.client, m.cfg.EquityPollInterval())
	updates := m.updates
	sess.OnUpdate = func() { push(updates, equityMsg{}) }
	sess.Start(context.Background())

	m.sess = sess
	m.holder.set(sess)
}

// clearSelection 清空选中并停止轮询
func (m *Model) clearSelection() {
	if m.sess != nil {
		m.sess.Stop()
		m.sess = nil
	}
	m.holder.set(nil)
}

// teardown 退出前停掉后台活动
func (m *Model) teardown() {
	m.clearSelection()
	m.search.Close()
}

// ===== 操作命令 =====

func (m Model) startCmd(s domain.Strategy) tea.Cmd {
	ctrl := m.ctrl
	timeout := m.cfg.Timeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = ctrl.Start(ctx, s)
		return nil
	}
}

func (m Model) stopCmd(s domain.Strategy) tea.Cmd {
	ctrl := m.ctrl
	timeout := m.cfg.Timeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = ctrl.Stop(ctx, s)
		return nil
	}
}

func (m Model) deleteCmd(s domain.Strategy) tea.Cmd {
	ctrl := m.ctrl
	timeout := m.cfg.Timeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = ctrl.Delete(ctx, s)
		return nil
	}
}

func (m Model) batchCmd(op func(context.Context, []int64) error, ids []int64) tea.Cmd {
	timeout := m.cfg.Timeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = op(ctx, ids)
		return nil
	}
}

// Run 运行控制台（阻塞直到退出）
func Run(client *api.Client, cfg *config.Config, cache *credcache.Cache) error {
	p := tea.NewProgram(New(client, cfg, cache), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
