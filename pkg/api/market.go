package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/stratbot/gostrat/internal/domain"
)

// GetEquityCurve 获取权益曲线（按时间排序的采样序列）
// 兼容两种响应形态：直接数组，或 {points: [...]} 对象
func (c *Client) GetEquityCurve(ctx context.Context, strategyID int64) ([]domain.EquitySample, error) {
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf(EndpointEquityCurve, strategyID), nil, nil, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var samples []domain.EquitySample
	if err := json.Unmarshal(raw, &samples); err == nil {
		return samples, nil
	}

	var wrapped struct {
		Points []domain.EquitySample `json:"points"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("解析权益曲线失败: %w", err)
	}
	return wrapped.Points, nil
}

// ListIndicators 获取指标目录
func (c *Client) ListIndicators(ctx context.Context) ([]domain.Indicator, error) {
	var indicators []domain.Indicator
	if err := c.call(ctx, http.MethodGet, EndpointListIndicators, nil, nil, &indicators); err != nil {
		return nil, err
	}
	return indicators, nil
}

// GetIndicatorParams 获取某个指标的参数定义
func (c *Client) GetIndicatorParams(ctx context.Context, indicatorID int64) ([]domain.IndicatorParam, error) {
	var params []domain.IndicatorParam
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf(EndpointIndicatorParams, indicatorID), nil, nil, &params); err != nil {
		return nil, err
	}
	return params, nil
}

// GetWatchlist 获取自选列表
func (c *Client) GetWatchlist(ctx context.Context) ([]domain.WatchlistEntry, error) {
	var entries []domain.WatchlistEntry
	if err := c.call(ctx, http.MethodGet, EndpointGetWatchlist, nil, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// AddWatchlist 添加自选符号
func (c *Client) AddWatchlist(ctx context.Context, entry domain.WatchlistEntry) error {
	return c.call(ctx, http.MethodPost, EndpointAddWatchlist, nil, entry, nil)
}

// SearchSymbols 按市场和关键字搜索符号
func (c *Client) SearchSymbols(ctx context.Context, market domain.MarketCategory, keyword string) ([]domain.SymbolHit, error) {
	params := map[string]string{
		"market":  string(market),
		"keyword": keyword,
	}
	var hits []domain.SymbolHit
	if err := c.call(ctx, http.MethodGet, EndpointSearchSymbols, params, nil, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// HotSymbols 获取某市场的热门符号
func (c *Client) HotSymbols(ctx context.Context, market domain.MarketCategory) ([]domain.SymbolHit, error) {
	params := map[string]string{"market": string(market)}
	var hits []domain.SymbolHit
	if err := c.call(ctx, http.MethodGet, EndpointHotSymbols, params, nil, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}
