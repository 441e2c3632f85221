package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stratbot/gostrat/internal/actions"
	"github.com/stratbot/gostrat/internal/domain"
	"github.com/stratbot/gostrat/internal/wizard"
	"github.com/stratbot/gostrat/pkg/api"
	"github.com/stratbot/gostrat/pkg/logger"
)

// symbolSelectedMsg 搜索对话框确认后自动回选的符号
type symbolSelectedMsg domain.WatchlistEntry

// fieldKind 向导字段类型
type fieldKind int

const (
	fieldText fieldKind = iota
	fieldSecret
	fieldInt
	fieldFloat
	fieldCycle
	fieldToggle
	fieldAction
)

// field 向导表单字段描述
// 所有读写都直接落在草稿上，不保留镜像状态
type field struct {
	key      string
	label    string
	kind     fieldKind
	value    func() string
	commit   func(string)
	cycle    func(delta int)
	toggle   func()
	locked   func() bool
	hint     func() string
	onChange func(m *Model) tea.Cmd
}

// wizardUI 向导界面状态
type wizardUI struct {
	w          *wizard.Wizard
	focus      int
	editing    bool
	buffer     string
	errs       wizard.FieldErrors
	flash      string
	loaded     bool
	testing    bool
	submitting bool

	pickerCursor int
	searchCursor int
	vaultIdx     int // 0 表示手工填写，>0 对应凭证库条目
}

func newWizardUI(w *wizard.Wizard) *wizardUI {
	return &wizardUI{w: w}
}

// openWizard 进入向导模式并加载下拉数据
func (m Model) openWizard(w *wizard.Wizard) (Model, tea.Cmd) {
	m.wiz = newWizardUI(w)
	m.mode = modeWizard
	return m, m.loadWizardCmd()
}

func (m *Model) closeWizard() {
	m.wiz = nil
	m.mode = modeList
}

// ===== 字段表 =====

var timeframes = []string{"1m", "5m", "15m", "30m", "1h", "4h", "1d"}

func cycleString(list []string, current string, delta int) string {
	if len(list) == 0 {
		return current
	}
	idx := 0
	for i, v := range list {
		if v == current {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(list)) % len(list)
	return list[idx]
}

// fields 当前步骤的字段表（每次按键重建，闭包直接落到草稿）
func (u *wizardUI) fields() []field {
	switch u.w.Step() {
	case wizard.StepBasics:
		return u.basicsFields()
	case wizard.StepRisk:
		return u.riskFields()
	default:
		return u.executionFields()
	}
}

func (u *wizardUI) basicsFields() []field {
	d := u.w.Draft()
	return []field{
		{
			key: "indicator", label: "指标", kind: fieldCycle,
			value: func() string {
				if d.IndicatorName == "" {
					return "(未选择)"
				}
				return d.IndicatorName
			},
			cycle: func(delta int) {
				indicators := u.w.Indicators()
				if len(indicators) == 0 {
					return
				}
				idx := 0
				for i, ind := range indicators {
					if ind.ID == d.IndicatorID {
						idx = i
						break
					}
				}
				idx = (idx + delta + len(indicators)) % len(indicators)
				d.IndicatorID = indicators[idx].ID
				d.IndicatorName = indicators[idx].Name
				d.IndicatorParams = nil
			},
			onChange: func(m *Model) tea.Cmd {
				if d.IndicatorID == 0 {
					return nil
				}
				return m.loadParamsCmd(d.IndicatorID)
			},
		},
		{
			key: "name", label: "策略名称", kind: fieldText,
			value:  func() string { return d.Name },
			commit: func(v string) { d.Name = v },
		},
		{
			key: "initial_capital", label: "初始资金", kind: fieldFloat,
			value: func() string { return formatFloat(d.InitialCapital) },
			commit: func(v string) {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					d.InitialCapital = f
				}
			},
		},
		{
			key: "market_type", label: "市场类型", kind: fieldCycle,
			value: func() string { return d.MarketType },
			cycle: func(delta int) {
				d.SetMarketType(cycleString([]string{"swap", "spot"}, d.MarketType, delta))
			},
		},
		{
			key: "leverage", label: "杠杆倍数", kind: fieldInt,
			value:  func() string { return strconv.Itoa(d.Leverage) },
			locked: d.SpotLocked,
			commit: func(v string) {
				if n, err := strconv.Atoi(v); err == nil && n >= 1 {
					d.Leverage = n
				}
			},
		},
		{
			key: "trade_direction", label: "交易方向", kind: fieldCycle,
			value:  func() string { return string(d.TradeDirection) },
			locked: d.SpotLocked,
			cycle: func(delta int) {
				d.TradeDirection = domain.TradeDirection(
					cycleString([]string{"long", "short", "both"}, string(d.TradeDirection), delta))
			},
		},
		{
			key: "timeframe", label: "时间周期", kind: fieldCycle,
			value: func() string { return d.Timeframe },
			cycle: func(delta int) { d.Timeframe = cycleString(timeframes, d.Timeframe, delta) },
		},
		{
			key: symbolsFieldKey(u.w.Mode()), label: "交易符号", kind: fieldAction,
			value: func() string {
				if u.w.Mode() == wizard.ModeEdit {
					if d.Symbol == "" {
						return "(未选择)"
					}
					return d.Symbol
				}
				if len(d.SelectedSymbols) == 0 {
					return "(未选择)"
				}
				return strings.Join(d.SelectedSymbols, ", ")
			},
			hint: func() string { return "enter 打开符号选择器" },
		},
	}
}

func symbolsFieldKey(mode wizard.Mode) string {
	if mode == wizard.ModeEdit {
		return "symbol"
	}
	return "symbols"
}

func (u *wizardUI) riskFields() []field {
	d := u.w.Draft()
	return []field{
		{
			key: "entry_pct", label: "入场比例%", kind: fieldFloat,
			value: func() string { return formatFloat(d.EntryPct) },
			hint:  func() string { return fmt.Sprintf("上限 %s", formatFloat(d.EntryPctMax())) },
			commit: func(v string) {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					d.SetEntryPct(f)
				}
			},
		},
		{
			key: "trend_add", label: "趋势加仓", kind: fieldToggle,
			value:  func() string { return onOff(d.TrendAddEnabled) },
			toggle: func() { d.SetTrendAddEnabled(!d.TrendAddEnabled) },
			hint:   func() string { return "与 DCA 加仓互斥" },
		},
		{
			key: "trend_add_times", label: "趋势加仓次数", kind: fieldInt,
			value:  func() string { return strconv.Itoa(d.TrendAddMaxTimes) },
			locked: func() bool { return !d.TrendAddEnabled },
			commit: func(v string) {
				if n, err := strconv.Atoi(v); err == nil && n >= 0 {
					d.SetTrendAddParams(n, d.TrendAddSizePct)
				}
			},
		},
		{
			key: "trend_add_size", label: "趋势加仓比例%", kind: fieldFloat,
			value:  func() string { return formatFloat(d.TrendAddSizePct) },
			locked: func() bool { return !d.TrendAddEnabled },
			commit: func(v string) {
				if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
					d.SetTrendAddParams(d.TrendAddMaxTimes, f)
				}
			},
		},
		{
			key: "dca_add", label: "DCA 加仓", kind: fieldToggle,
			value:  func() string { return onOff(d.DCAAddEnabled) },
			toggle: func() { d.SetDCAAddEnabled(!d.DCAAddEnabled) },
		},
		{
			key: "dca_add_times", label: "DCA 加仓次数", kind: fieldInt,
			value:  func() string { return strconv.Itoa(d.DCAAddMaxTimes) },
			locked: func() bool { return !d.DCAAddEnabled },
			commit: func(v string) {
				if n, err := strconv.Atoi(v); err == nil && n >= 0 {
					d.SetDCAAddParams(n, d.DCAAddSizePct)
				}
			},
		},
		{
			key: "dca_add_size", label: "DCA 加仓比例%", kind: fieldFloat,
			value:  func() string { return formatFloat(d.DCAAddSizePct) },
			locked: func() bool { return !d.DCAAddEnabled },
			commit: func(v string) {
				if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
					d.SetDCAAddParams(d.DCAAddMaxTimes, f)
				}
			},
		},
		{
			key: "stop_loss", label: "止损%", kind: fieldFloat,
			value:  func() string { return formatFloat(d.StopLossPct) },
			commit: func(v string) { d.StopLossPct = parseFloatOr(v, d.StopLossPct) },
		},
		{
			key: "take_profit", label: "止盈%", kind: fieldFloat,
			value:  func() string { return formatFloat(d.TakeProfitPct) },
			commit: func(v string) { d.TakeProfitPct = parseFloatOr(v, d.TakeProfitPct) },
		},
		{
			key: "trailing", label: "移动止盈", kind: fieldToggle,
			value:  func() string { return onOff(d.TrailingEnabled) },
			toggle: func() { d.TrailingEnabled = !d.TrailingEnabled },
		},
		{
			key: "trailing_pct", label: "回撤比例%", kind: fieldFloat,
			value:  func() string { return formatFloat(d.TrailingPct) },
			locked: func() bool { return !d.TrailingEnabled },
			commit: func(v string) { d.TrailingPct = parseFloatOr(v, d.TrailingPct) },
		},
		{
			key: "trailing_activate", label: "激活盈利%", kind: fieldFloat,
			value:  func() string { return formatFloat(d.TrailingActivate) },
			locked: func() bool { return !d.TrailingEnabled },
			commit: func(v string) { d.TrailingActivate = parseFloatOr(v, d.TrailingActivate) },
		},
		{
			key: "ai_filter", label: "AI 信号过滤", kind: fieldToggle,
			value:  func() string { return onOff(d.AIFilterEnabled) },
			toggle: func() { d.AIFilterEnabled = !d.AIFilterEnabled },
		},
		{
			key: "reduce_pct", label: "减仓比例%", kind: fieldFloat,
			value:  func() string { return formatFloat(d.ReducePct) },
			commit: func(v string) { d.ReducePct = parseFloatOr(v, d.ReducePct) },
		},
		{
			key: "reduce_trigger", label: "减仓触发%", kind: fieldFloat,
			value:  func() string { return formatFloat(d.ReduceTriggerPct) },
			commit: func(v string) { d.ReduceTriggerPct = parseFloatOr(v, d.ReduceTriggerPct) },
		},
	}
}

func (u *wizardUI) executionFields() []field {
	d := u.w.Draft()

	fields := []field{
		{
			key: "execution_mode", label: "执行模式", kind: fieldCycle,
			value:  func() string { return string(d.ExecutionMode) },
			locked: func() bool { return !d.MarketCategory.SupportsLive() },
			hint: func() string {
				if !d.MarketCategory.SupportsLive() {
					return fmt.Sprintf("%s 市场不支持实盘", d.MarketCategory)
				}
				return ""
			},
			cycle: func(delta int) {
				if d.ExecutionMode == domain.ModeSignal {
					d.ExecutionMode = domain.ModeLive
				} else {
					d.ExecutionMode = domain.ModeSignal
				}
			},
		},
	}

	fields = append(fields, u.notificationFields(d)...)
	if d.ExecutionMode == domain.ModeLive {
		fields = append(fields, u.credentialFields(d)...)
	}
	return fields
}

func (u *wizardUI) notificationFields(d *wizard.Draft) []field {
	channels := []struct {
		ch    domain.NotificationChannel
		label string
	}{
		{domain.ChannelTelegram, "Telegram"},
		{domain.ChannelEmail, "邮件"},
		{domain.ChannelSMS, "短信"},
		{domain.ChannelDiscord, "Discord"},
		{domain.ChannelWebhook, "Webhook"},
	}

	var fields []field
	for _, c := range channels {
		ch := c.ch
		fields = append(fields, field{
			key: "notify_" + string(ch), label: "通知: " + c.label, kind: fieldToggle,
			value:  func() string { return onOff(d.Notification.HasChannel(ch)) },
			toggle: func() { toggleChannel(&d.Notification, ch) },
		})
	}

	targets := []struct {
		ch    domain.NotificationChannel
		key   string
		label string
		get   func() string
		set   func(string)
	}{
		{domain.ChannelTelegram, "telegram_bot", "  Bot Token", func() string { return d.Notification.TelegramBot }, func(v string) { d.Notification.TelegramBot = v }},
		{domain.ChannelTelegram, "telegram_chat", "  Chat ID", func() string { return d.Notification.TelegramChat }, func(v string) { d.Notification.TelegramChat = v }},
		{domain.ChannelEmail, "email", "  邮箱地址", func() string { return d.Notification.Email }, func(v string) { d.Notification.Email = v }},
		{domain.ChannelSMS, "phone", "  手机号", func() string { return d.Notification.Phone }, func(v string) { d.Notification.Phone = v }},
		{domain.ChannelDiscord, "discord_webhook", "  Webhook URL", func() string { return d.Notification.DiscordWebhook }, func(v string) { d.Notification.DiscordWebhook = v }},
		{domain.ChannelWebhook, "webhook_url", "  回调地址", func() string { return d.Notification.WebhookURL }, func(v string) { d.Notification.WebhookURL = v }},
		{domain.ChannelWebhook, "webhook_token", "  回调 Token", func() string { return d.Notification.WebhookToken }, func(v string) { d.Notification.WebhookToken = v }},
	}
	for _, t := range targets {
		if !d.Notification.HasChannel(t.ch) {
			continue
		}
		fields = append(fields, field{
			key: t.key, label: t.label, kind: fieldText,
			value:  t.get,
			commit: t.set,
		})
	}
	return fields
}

func toggleChannel(n *domain.NotificationConfig, ch domain.NotificationChannel) {
	for i, c := range n.Channels {
		if c == ch {
			n.Channels = append(n.Channels[:i], n.Channels[i+1:]...)
			return
		}
	}
	n.Channels = append(n.Channels, ch)
}

func (u *wizardUI) credentialFields(d *wizard.Draft) []field {
	switch d.ExchangeKind() {
	case domain.ExchangeKindIBKR:
		return []field{
			{
				key: "ibkr_host", label: "IBKR 主机", kind: fieldText,
				value:  func() string { return d.IBKR.Host },
				commit: func(v string) { d.IBKR.Host = v },
			},
			{
				key: "ibkr_port", label: "IBKR 端口", kind: fieldInt,
				value: func() string { return strconv.Itoa(d.IBKR.Port) },
				commit: func(v string) {
					if n, err := strconv.Atoi(v); err == nil {
						d.IBKR.Port = n
					}
				},
			},
			{
				key: "ibkr_client_id", label: "Client ID", kind: fieldInt,
				value: func() string { return strconv.Itoa(d.IBKR.ClientID) },
				commit: func(v string) {
					if n, err := strconv.Atoi(v); err == nil {
						d.IBKR.ClientID = n
					}
				},
			},
			{
				key: "ibkr_account", label: "账户号", kind: fieldText,
				value:  func() string { return d.IBKR.Account },
				commit: func(v string) { d.IBKR.Account = v },
			},
		}

	case domain.ExchangeKindMT5:
		return []field{
			{
				key: "mt5_server", label: "MT5 服务器", kind: fieldText,
				value:  func() string { return d.MT5.Server },
				commit: func(v string) { d.MT5.Server = v },
			},
			{
				key: "mt5_login", label: "登录号", kind: fieldText,
				value:  func() string { return d.MT5.Login },
				commit: func(v string) { d.MT5.Login = v },
			},
			{
				key: "mt5_password", label: "密码", kind: fieldSecret,
				value:  func() string { return mask(d.MT5.Password) },
				commit: func(v string) { d.MT5.Password = v },
			},
			{
				key: "mt5_terminal", label: "终端路径", kind: fieldText,
				value:  func() string { return d.MT5.TerminalPath },
				commit: func(v string) { d.MT5.TerminalPath = v },
			},
		}
	}

	fields := []field{
		{
			key: "vault", label: "已存凭证", kind: fieldCycle,
			value: func() string {
				vault := u.w.Vault()
				if u.vaultIdx <= 0 || u.vaultIdx > len(vault) {
					return "(手工填写)"
				}
				entry := vault[u.vaultIdx-1]
				return fmt.Sprintf("%s (%s %s)", entry.Name, entry.ExchangeID, entry.KeyHint)
			},
			cycle: func(delta int) {
				total := len(u.w.Vault()) + 1
				u.vaultIdx = (u.vaultIdx + delta + total) % total
			},
			onChange: func(m *Model) tea.Cmd {
				vault := u.w.Vault()
				if u.vaultIdx <= 0 || u.vaultIdx > len(vault) {
					return nil
				}
				return m.applyVaultCmd(vault[u.vaultIdx-1].ID)
			},
			hint: func() string { return "←/→ 切换，选中后自动拉取密钥" },
		},
		{
			key: "exchange_id", label: "交易所", kind: fieldText,
			value: func() string { return d.ExchangeID },
			commit: func(v string) {
				d.SetExchange(strings.ToLower(strings.TrimSpace(v)))
			},
		},
		{
			key: "api_key", label: "API Key", kind: fieldSecret,
			value:  func() string { return mask(d.APIKey) },
			commit: func(v string) { d.APIKey = v },
		},
		{
			key: "api_secret", label: "API Secret", kind: fieldSecret,
			value:  func() string { return mask(d.APISecret) },
			commit: func(v string) { d.APISecret = v },
		},
	}

	if domain.PassphraseRequired(d.ExchangeID) {
		fields = append(fields, field{
			key: "passphrase", label: "Passphrase", kind: fieldSecret,
			value:  func() string { return mask(d.Passphrase) },
			commit: func(v string) { d.Passphrase = v },
			hint:   func() string { return d.ExchangeID + " 必填" },
		})
	}

	fields = append(fields,
		field{
			key: "save_credential", label: "保存凭证到库", kind: fieldToggle,
			value:  func() string { return onOff(d.SaveCredential) },
			toggle: func() { d.SaveCredential = !d.SaveCredential },
		},
		field{
			key: "credential_name", label: "凭证名称", kind: fieldText,
			value:  func() string { return d.CredentialName },
			locked: func() bool { return !d.SaveCredential },
			commit: func(v string) { d.CredentialName = v },
		},
	)
	return fields
}

// ===== 按键处理 =====

func (m Model) handleWizardKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	u := m.wiz
	if u == nil {
		m.mode = modeList
		return m, nil
	}

	fields := u.fields()
	if u.focus >= len(fields) {
		u.focus = len(fields) - 1
	}
	if u.focus < 0 {
		u.focus = 0
	}

	if u.editing {
		return m.handleWizardEditKey(msg, fields)
	}

	switch msg.String() {
	case "esc":
		m.closeWizard()
		return m, nil

	case "up", "k":
		if u.focus > 0 {
			u.focus--
		}
		return m, nil

	case "down", "j":
		if u.focus < len(fields)-1 {
			u.focus++
		}
		return m, nil

	case "left", "right":
		f := fields[u.focus]
		if f.kind != fieldCycle || (f.locked != nil && f.locked()) {
			return m, nil
		}
		delta := 1
		if msg.String() == "left" {
			delta = -1
		}
		f.cycle(delta)
		if f.onChange != nil {
			return m, f.onChange(&m)
		}
		return m, nil

	case "enter", " ":
		f := fields[u.focus]
		if f.locked != nil && f.locked() {
			return m, nil
		}
		switch f.kind {
		case fieldToggle:
			f.toggle()
			if f.onChange != nil {
				return m, f.onChange(&m)
			}
			return m, nil
		case fieldAction:
			if f.key == "symbol" || f.key == "symbols" {
				m.mode = modePicker
				u.pickerCursor = 0
			}
			return m, nil
		case fieldCycle:
			f.cycle(1)
			if f.onChange != nil {
				return m, f.onChange(&m)
			}
			return m, nil
		default:
			u.editing = true
			if f.kind == fieldSecret {
				u.buffer = ""
			} else {
				u.buffer = f.value()
				if u.buffer == "(未选择)" {
					u.buffer = ""
				}
			}
			return m, nil
		}

	case "ctrl+n":
		u.errs = nil
		u.flash = ""
		if err := u.w.Next(); err != nil {
			if errs, ok := err.(wizard.FieldErrors); ok {
				u.errs = errs
			} else {
				u.flash = err.Error()
			}
			return m, nil
		}
		u.focus = 0
		return m, nil

	case "ctrl+b":
		u.w.Prev()
		u.focus = 0
		u.errs = nil
		u.flash = ""
		return m, nil

	case "ctrl+t":
		if u.w.Step() == wizard.StepExecution && !u.testing {
			u.testing = true
			u.flash = ""
			return m, m.connTestCmd()
		}
		return m, nil

	case "ctrl+s":
		if u.w.Step() == wizard.StepExecution && !u.submitting {
			u.submitting = true
			u.flash = ""
			return m, m.submitCmd()
		}
		return m, nil
	}

	return m, nil
}

// handleWizardEditKey 字段编辑态按键
func (m Model) handleWizardEditKey(msg tea.KeyMsg, fields []field) (Model, tea.Cmd) {
	u := m.wiz
	f := fields[u.focus]

	switch msg.Type {
	case tea.KeyEsc:
		u.editing = false
		u.buffer = ""
		return m, nil

	case tea.KeyEnter:
		u.editing = false
		value := strings.TrimSpace(u.buffer)
		u.buffer = ""
		if f.commit != nil {
			f.commit(value)
		}
		if f.onChange != nil {
			return m, f.onChange(&m)
		}
		return m, nil

	case tea.KeyBackspace:
		if len(u.buffer) > 0 {
			runes := []rune(u.buffer)
			u.buffer = string(runes[:len(runes)-1])
		}
		return m, nil

	case tea.KeyRunes, tea.KeySpace:
		u.buffer += string(msg.Runes)
		if msg.Type == tea.KeySpace {
			u.buffer += " "
		}
		return m, nil
	}

	return m, nil
}

// ===== 向导消息处理 =====

func (m Model) handleWizardMsg(msg tea.Msg) (Model, tea.Cmd) {
	u := m.wiz
	if u == nil {
		return m, nil
	}

	switch msg := msg.(type) {
	case wizardLoadedMsg:
		u.loaded = true
		u.w.ApplyLoad(wizard.LoadResult(msg))
		var failures []string
		if msg.IndicatorsErr != nil {
			failures = append(failures, "指标目录加载失败")
		}
		if msg.WatchlistErr != nil {
			failures = append(failures, "自选列表加载失败")
		}
		if msg.VaultErr != nil {
			failures = append(failures, "凭证库加载失败(已用本地缓存)")
		}
		if len(failures) > 0 {
			u.flash = strings.Join(failures, "; ")
		}
		return m, nil

	case indicatorParamsMsg:
		if msg.err != nil {
			logger.Warnf("指标 %d 参数加载失败: %v", msg.indicatorID, msg.err)
			return m, nil
		}
		d := u.w.Draft()
		if d.IndicatorID != msg.indicatorID {
			return m, nil
		}
		params := make(map[string]interface{}, len(msg.params))
		for _, p := range msg.params {
			params[p.Name] = p.Default
		}
		d.IndicatorParams = params
		return m, nil

	case connTestMsg:
		u.testing = false
		if msg.err != nil {
			u.flash = "连接测试请求失败: " + msg.err.Error()
			return m, nil
		}
		u.w.RecordConnectionTest(msg.key, msg.success, msg.message)
		if msg.success {
			u.flash = "连接测试通过"
		} else {
			u.flash = "连接测试失败: " + msg.message
		}
		return m, nil

	case vaultEntryMsg:
		if msg.err != nil {
			u.flash = "凭证拉取失败: " + msg.err.Error()
			return m, nil
		}
		u.w.Draft().ApplyVaultEntry(msg.entry)
		if msg.fallback {
			u.flash = "凭证服务不可用，已按本地缓存摘要填充（密钥需手工补全）"
		}
		return m, nil

	case submitMsg:
		u.submitting = false
		if msg.err != nil {
			u.flash = msg.err.Error()
			return m, nil
		}
		if u.w.Mode() == wizard.ModeCreate {
			if msg.failed > 0 {
				m.notice = actions.Notice{
					Level:   actions.LevelWarn,
					Message: fmt.Sprintf("创建完成: %d 成功, %d 失败", msg.created, msg.failed),
				}
			} else {
				m.notice = actions.Notice{
					Level:   actions.LevelInfo,
					Message: fmt.Sprintf("已创建 %d 个策略", msg.created),
				}
			}
		} else {
			m.notice = actions.Notice{Level: actions.LevelInfo, Message: "策略已更新"}
		}
		m.noticeAt = time.Now()
		m.closeWizard()
		m.loading = true
		return m, m.refreshCmd()
	}

	return m, nil
}

// ===== 向导命令 =====

// loadWizardCmd 后台拉取下拉数据
// 后台协程只拿数据不碰向导，结果经消息回到 Update 循环再落盘
func (m Model) loadWizardCmd() tea.Cmd {
	client, cache, timeout := m.client, m.cache, m.cfg.Timeout()
	includeIndicators := !m.wiz.w.IndicatorsLoaded()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		result := wizard.Fetch(ctx, client, includeIndicators)

		// 凭证库：成功则更新本地摘要缓存，失败回退到缓存
		if result.VaultErr == nil {
			if err := cache.PutSummaries(result.Vault); err != nil {
				logger.Warnf("凭证摘要缓存写入失败: %v", err)
			}
		} else if cached, err := cache.Summaries(); err == nil && len(cached) > 0 {
			result.Vault = cached
		}
		return wizardLoadedMsg(result)
	}
}

func (m Model) loadParamsCmd(indicatorID int64) tea.Cmd {
	client, timeout := m.client, m.cfg.Timeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		params, err := client.GetIndicatorParams(ctx, indicatorID)
		return indicatorParamsMsg{indicatorID: indicatorID, params: params, err: err}
	}
}

func (m Model) applyVaultCmd(id int64) tea.Cmd {
	client, cache, timeout := m.client, m.cache, m.cfg.Timeout()

	// 回退用的摘要在命令下发前取快照，后台协程不再碰向导
	var summary *domain.VaultEntry
	if s := m.wiz.w.VaultSummary(id); s != nil {
		copied := *s
		summary = &copied
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		entry, err := client.GetVaultEntry(ctx, id)
		if err == nil {
			return vaultEntryMsg{entry: entry}
		}
		logger.Warnf("凭证 %d 拉取失败, 回退本地摘要: %v", id, err)

		if summary != nil {
			return vaultEntryMsg{entry: summary, fallback: true}
		}
		if cached, found, cacheErr := cache.GetSummary(id); cacheErr == nil && found {
			return vaultEntryMsg{entry: cached, fallback: true}
		}
		return vaultEntryMsg{err: err}
	}
}

func (m Model) connTestCmd() tea.Cmd {
	client, timeout := m.client, m.cfg.Timeout()

	// 命令下发前取草稿快照和测试目标标识，后台协程不再碰草稿；
	// 结果回来按发起时的标识入账，在途期间改参数不会蹭到测试结果
	d := m.wiz.w.Draft()
	key := m.wiz.w.ConnTestKey()
	kind := d.ExchangeKind()
	ibkr := d.IBKR
	mt5 := d.MT5
	cryptoReq := api.ConnectionTestRequest{
		ExchangeID: d.ExchangeID,
		APIKey:     d.APIKey,
		APISecret:  d.APISecret,
		Passphrase: d.Passphrase,
		MarketType: d.MarketType,
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		switch kind {
		case domain.ExchangeKindIBKR:
			result, err := client.TestIBKRConnection(ctx, &ibkr)
			return toConnTestMsg(key, result, err)
		case domain.ExchangeKindMT5:
			result, err := client.TestMT5Connection(ctx, &mt5)
			return toConnTestMsg(key, result, err)
		default:
			result, err := client.TestExchangeConnection(ctx, &cryptoReq)
			return toConnTestMsg(key, result, err)
		}
	}
}

func toConnTestMsg(key string, result *api.ConnectionTestResult, err error) connTestMsg {
	if err != nil {
		return connTestMsg{key: key, err: err}
	}
	message := result.Message
	if message == "" {
		message = result.Error
	}
	return connTestMsg{key: key, success: result.Success, message: message}
}

// submitCmd 组装并发送提交请求
// 组装和终校验在 Update 循环里完成，后台协程只拿快照发请求，
// 提交在途期间的编辑落在草稿上，不影响已发出的请求
func (m Model) submitCmd() tea.Cmd {
	client, timeout := m.client, m.cfg.Timeout()
	w := m.wiz.w
	vaultEntry := w.VaultEntryToSave()

	if w.Mode() == wizard.ModeEdit {
		req, err := w.ComposeUpdate()
		if err != nil {
			return func() tea.Msg { return submitMsg{err: err} }
		}
		editID := w.EditID()
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			if err := client.UpdateStrategy(ctx, editID, req); err != nil {
				return submitMsg{err: err}
			}
			saveVaultEntry(ctx, client, vaultEntry)
			return submitMsg{}
		}
	}

	req, err := w.ComposeCreate()
	if err != nil {
		return func() tea.Msg { return submitMsg{err: err} }
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		result, err := client.CreateStrategies(ctx, req)
		if err != nil {
			return submitMsg{err: err}
		}
		saveVaultEntry(ctx, client, vaultEntry)

		failed := len(result.FailedIDs())
		if len(result.Items) == 0 && result.SuccessCount < len(req.Items) {
			// 旧服务端只回数量
			failed = len(req.Items) - result.SuccessCount
		}
		return submitMsg{created: result.SuccessCount, failed: failed}
	}
}

// saveVaultEntry 用户勾选保存凭证时顺带入库，失败只记日志不拦截提交
func saveVaultEntry(ctx context.Context, client *api.Client, entry *domain.VaultEntry) {
	if entry == nil {
		return
	}
	if err := client.CreateVaultEntry(ctx, entry); err != nil {
		logger.Warnf("凭证入库失败: %v", err)
	}
}

// ===== 小工具 =====

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseFloatOr(v string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
		return f
	}
	return fallback
}

func onOff(b bool) string {
	if b {
		return "开"
	}
	return "关"
}

func mask(secret string) string {
	if secret == "" {
		return "(未填写)"
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + "****" + secret[len(secret)-2:]
}
