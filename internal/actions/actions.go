package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/stratbot/gostrat/internal/domain"
	"github.com/stratbot/gostrat/internal/session"
	"github.com/stratbot/gostrat/pkg/api"
	"github.com/stratbot/gostrat/pkg/logger"
)

// StrategyAPI 控制器依赖的策略操作接口，*api.Client 天然满足
type StrategyAPI interface {
	ListStrategies(ctx context.Context) ([]domain.Strategy, error)
	StartStrategy(ctx context.Context, id int64) error
	StopStrategy(ctx context.Context, id int64) error
	DeleteStrategy(ctx context.Context, id int64) error
	BatchStart(ctx context.Context, ids []int64) (*api.BatchResult, error)
	BatchStop(ctx context.Context, ids []int64) (*api.BatchResult, error)
	BatchDelete(ctx context.Context, ids []int64) (*api.BatchResult, error)
}

// Level 提示级别
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// Notice 面向用户的操作提示
type Notice struct {
	Level   Level
	Message string
}

// NotifyFunc 提示回调
type NotifyFunc func(Notice)

// Hooks 控制器回调到界面层的钩子，字段均可为 nil
type Hooks struct {
	// Session 返回当前详情会话，无选中策略时返回 nil
	Session func() *session.Session
	// ClearSelection 选中策略被删除后清空选中（停止轮询由界面层负责）
	ClearSelection func()
	// OnStrategies 列表刷新成功后回传最新策略
	OnStrategies func([]domain.Strategy)
}

// Controller 策略启停/删除操作控制器
// 每个操作：调用接口 → 成功则乐观刷新会话状态并重拉列表，失败则提示
type Controller struct {
	api    StrategyAPI
	notify NotifyFunc
	hooks  Hooks
}

// New 创建控制器
func New(strategyAPI StrategyAPI, notify NotifyFunc, hooks Hooks) *Controller {
	if notify == nil {
		notify = func(Notice) {}
	}
	return &Controller{api: strategyAPI, notify: notify, hooks: hooks}
}

// Start 启动单个策略
func (c *Controller) Start(ctx context.Context, strategy domain.Strategy) error {
	if err := c.api.StartStrategy(ctx, strategy.ID); err != nil {
		c.notify(Notice{LevelError, fmt.Sprintf("启动策略 %s 失败: %s", strategy.Name, errMessage(err))})
		return err
	}
	c.flipStatus(strategy.ID, domain.StatusRunning)
	c.notify(Notice{LevelInfo, fmt.Sprintf("策略 %s 已启动", strategy.Name)})
	c.Refresh(ctx)
	return nil
}

// Stop 停止单个策略
func (c *Controller) Stop(ctx context.Context, strategy domain.Strategy) error {
	if err := c.api.StopStrategy(ctx, strategy.ID); err != nil {
		c.notify(Notice{LevelError, fmt.Sprintf("停止策略 %s 失败: %s", strategy.Name, errMessage(err))})
		return err
	}
	c.flipStatus(strategy.ID, domain.StatusStopped)
	c.notify(Notice{LevelInfo, fmt.Sprintf("策略 %s 已停止", strategy.Name)})
	c.Refresh(ctx)
	return nil
}

// Delete 删除单个策略；若删除的是当前选中策略，清空选中
func (c *Controller) Delete(ctx context.Context, strategy domain.Strategy) error {
	if err := c.api.DeleteStrategy(ctx, strategy.ID); err != nil {
		c.notify(Notice{LevelError, fmt.Sprintf("删除策略 %s 失败: %s", strategy.Name, errMessage(err))})
		return err
	}
	c.clearIfSelected(map[int64]bool{strategy.ID: true})
	c.notify(Notice{LevelInfo, fmt.Sprintf("策略 %s 已删除", strategy.Name)})
	c.Refresh(ctx)
	return nil
}

// BatchStart 批量启动
func (c *Controller) BatchStart(ctx context.Context, ids []int64) error {
	return c.batch(ctx, "启动", ids, c.api.BatchStart, domain.StatusRunning)
}

// BatchStop 批量停止
func (c *Controller) BatchStop(ctx context.Context, ids []int64) error {
	return c.batch(ctx, "停止", ids, c.api.BatchStop, domain.StatusStopped)
}

// BatchDelete 批量删除；删除范围覆盖当前选中策略时清空选中
func (c *Controller) BatchDelete(ctx context.Context, ids []int64) error {
	result, err := c.api.BatchDelete(ctx, ids)
	if err != nil {
		c.notify(Notice{LevelError, fmt.Sprintf("批量删除失败: %s", errMessage(err))})
		return err
	}

	deleted := make(map[int64]bool, len(result.Items))
	for _, item := range result.Items {
		if item.Success {
			deleted[item.ID] = true
		}
	}
	c.clearIfSelected(deleted)

	c.reportBatch("删除", len(ids), result)
	c.Refresh(ctx)
	return nil
}

type batchFunc func(ctx context.Context, ids []int64) (*api.BatchResult, error)

func (c *Controller) batch(ctx context.Context, verb string, ids []int64, op batchFunc, onSuccess domain.StrategyStatus) error {
	result, err := op(ctx, ids)
	if err != nil {
		c.notify(Notice{LevelError, fmt.Sprintf("批量%s失败: %s", verb, errMessage(err))})
		return err
	}

	for _, item := range result.Items {
		if item.Success {
			c.flipStatus(item.ID, onSuccess)
		}
	}

	c.reportBatch(verb, len(ids), result)
	c.Refresh(ctx)
	return nil
}

// reportBatch 汇报批量结果，失败项逐个点名
func (c *Controller) reportBatch(verb string, requested int, result *api.BatchResult) {
	failed := result.FailedIDs()
	if len(failed) == 0 {
		c.notify(Notice{LevelInfo, fmt.Sprintf("批量%s完成: %d 个策略", verb, requested)})
		return
	}

	var details []string
	for _, item := range result.Items {
		if !item.Success {
			details = append(details, fmt.Sprintf("#%d(%s)", item.ID, item.Error))
		}
	}
	c.notify(Notice{
		LevelWarn,
		fmt.Sprintf("批量%s部分失败: %d 成功, %d 失败: %s",
			verb, result.SuccessCount, len(failed), strings.Join(details, ", ")),
	})
}

// Refresh 重新拉取策略列表并回传界面层
func (c *Controller) Refresh(ctx context.Context) {
	if c.hooks.OnStrategies == nil {
		return
	}
	strategies, err := c.api.ListStrategies(ctx)
	if err != nil {
		logger.Warnf("刷新策略列表失败: %v", err)
		c.notify(Notice{LevelWarn, fmt.Sprintf("刷新策略列表失败: %s", errMessage(err))})
		return
	}
	c.hooks.OnStrategies(strategies)
}

// flipStatus 乐观更新当前会话中策略的状态，避免等列表刷新时的闪烁
func (c *Controller) flipStatus(id int64, status domain.StrategyStatus) {
	if c.hooks.Session == nil {
		return
	}
	sess := c.hooks.Session()
	if sess == nil || sess.Strategy().ID != id {
		return
	}
	sess.SetStatus(status)
}

func (c *Controller) clearIfSelected(deleted map[int64]bool) {
	if c.hooks.Session == nil || c.hooks.ClearSelection == nil {
		return
	}
	sess := c.hooks.Session()
	if sess == nil || !deleted[sess.Strategy().ID] {
		return
	}
	c.hooks.ClearSelection()
}

// errMessage 优先展示服务端业务错误信息
func errMessage(err error) string {
	if apiErr, ok := api.IsAPIError(err); ok {
		return apiErr.Msg
	}
	return err.Error()
}
