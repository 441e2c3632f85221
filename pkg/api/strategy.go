package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stratbot/gostrat/internal/domain"
)

// CreateItem 批量创建中的单个策略描述
// 除符号外所有配置共享，服务端按符号逐个实例化
type CreateItem struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// BatchCreateRequest 批量创建请求
type BatchCreateRequest struct {
	Items              []CreateItem              `json:"items"`
	TradingConfig      domain.TradingConfig      `json:"trading_config"`
	IndicatorConfig    domain.IndicatorConfig    `json:"indicator_config"`
	ExchangeConfig     *domain.ExchangeConfig    `json:"exchange_config,omitempty"`
	ExecutionMode      domain.ExecutionMode      `json:"execution_mode"`
	NotificationConfig domain.NotificationConfig `json:"notification_config"`
	MarketCategory     domain.MarketCategory     `json:"market_category"`
	RequestID          string                    `json:"request_id,omitempty"`
}

// UpdateRequest 单个策略更新请求（整体替换配置）
type UpdateRequest struct {
	Name               string                    `json:"name"`
	TradingConfig      domain.TradingConfig      `json:"trading_config"`
	IndicatorConfig    domain.IndicatorConfig    `json:"indicator_config"`
	ExchangeConfig     *domain.ExchangeConfig    `json:"exchange_config,omitempty"`
	ExecutionMode      domain.ExecutionMode      `json:"execution_mode"`
	NotificationConfig domain.NotificationConfig `json:"notification_config"`
	MarketCategory     domain.MarketCategory     `json:"market_category"`
}

// BatchItemResult 批量操作中单个策略的结果
type BatchItemResult struct {
	ID      int64  `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BatchResult 批量操作结果
// 旧接口只返回成功数量；Items 缺失时由 Normalize 按数量补齐
type BatchResult struct {
	SuccessCount int               `json:"success_count"`
	Items        []BatchItemResult `json:"items,omitempty"`
}

// FailedIDs 返回明确失败的策略 ID 列表
func (r *BatchResult) FailedIDs() []int64 {
	var failed []int64
	for _, item := range r.Items {
		if !item.Success {
			failed = append(failed, item.ID)
		}
	}
	return failed
}

// Normalize 兼容只返回 success_count 的旧服务端：
// 无法定位具体失败项时，按请求顺序将前 SuccessCount 个标记成功
func (r *BatchResult) Normalize(requested []int64) {
	if len(r.Items) > 0 || len(requested) == 0 {
		return
	}
	r.Items = make([]BatchItemResult, 0, len(requested))
	for i, id := range requested {
		item := BatchItemResult{ID: id, Success: i < r.SuccessCount}
		if !item.Success {
			item.Error = "unreported"
		}
		r.Items = append(r.Items, item)
	}
}

// ListStrategies 获取策略列表
func (c *Client) ListStrategies(ctx context.Context) ([]domain.Strategy, error) {
	var strategies []domain.Strategy
	if err := c.call(ctx, http.MethodGet, EndpointListStrategies, nil, nil, &strategies); err != nil {
		return nil, err
	}
	return strategies, nil
}

// CreateStrategies 批量创建策略（每个符号一个实例）
func (c *Client) CreateStrategies(ctx context.Context, req *BatchCreateRequest) (*BatchResult, error) {
	var result BatchResult
	if err := c.call(ctx, http.MethodPost, EndpointCreateBatch, nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateStrategy 更新单个策略
func (c *Client) UpdateStrategy(ctx context.Context, id int64, req *UpdateRequest) error {
	return c.call(ctx, http.MethodPut, fmt.Sprintf(EndpointUpdateStrategy, id), nil, req, nil)
}

// DeleteStrategy 删除策略
func (c *Client) DeleteStrategy(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf(EndpointDeleteStrategy, id), nil, nil, nil)
}

// StartStrategy 启动策略
func (c *Client) StartStrategy(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf(EndpointStartStrategy, id), nil, nil, nil)
}

// StopStrategy 停止策略
func (c *Client) StopStrategy(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf(EndpointStopStrategy, id), nil, nil, nil)
}

// batchIDsRequest 批量操作请求体
type batchIDsRequest struct {
	IDs []int64 `json:"ids"`
}

// BatchStart 批量启动
func (c *Client) BatchStart(ctx context.Context, ids []int64) (*BatchResult, error) {
	return c.batchOp(ctx, EndpointBatchStart, ids)
}

// BatchStop 批量停止
func (c *Client) BatchStop(ctx context.Context, ids []int64) (*BatchResult, error) {
	return c.batchOp(ctx, EndpointBatchStop, ids)
}

// BatchDelete 批量删除
func (c *Client) BatchDelete(ctx context.Context, ids []int64) (*BatchResult, error) {
	return c.batchOp(ctx, EndpointBatchDelete, ids)
}

func (c *Client) batchOp(ctx context.Context, endpoint string, ids []int64) (*BatchResult, error) {
	var result BatchResult
	if err := c.call(ctx, http.MethodPost, endpoint, nil, &batchIDsRequest{IDs: ids}, &result); err != nil {
		return nil, err
	}
	result.Normalize(ids)
	return &result, nil
}
