package console

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/stratbot/gostrat/internal/actions"
	"github.com/stratbot/gostrat/internal/domain"
	"github.com/stratbot/gostrat/internal/wizard"
)

// relayMsg 后台协程经 updates 通道送入的消息包装
// 收到后必须重新挂起监听命令，保证通道持续被消费
type relayMsg struct {
	inner tea.Msg
}

// strategiesMsg 策略列表刷新完成
type strategiesMsg []domain.Strategy

// noticeMsg 操作提示
type noticeMsg actions.Notice

// clearSelectionMsg 当前选中策略已被删除
type clearSelectionMsg struct{}

// equityMsg 详情会话权益刷新
type equityMsg struct{}

// searchMsg 符号搜索对话框状态变化
type searchMsg struct{}

// wizardLoadedMsg 向导下拉数据加载完成
type wizardLoadedMsg wizard.LoadResult

// connTestMsg 连接测试完成
// key 为发起测试时的目标标识快照
type connTestMsg struct {
	key     string
	success bool
	message string
	err     error
}

// vaultEntryMsg 凭证条目拉取完成（含失败回退）
type vaultEntryMsg struct {
	entry    *domain.VaultEntry
	fallback bool
	err      error
}

// submitMsg 向导提交完成
type submitMsg struct {
	err     error
	created int // 创建模式下成功实例数
	failed  int
}

// watchlistMsg 自选列表更新（符号添加确认后）
type watchlistMsg []domain.WatchlistEntry

// indicatorParamsMsg 指标参数定义加载完成
type indicatorParamsMsg struct {
	indicatorID int64
	params      []domain.IndicatorParam
	err         error
}
