package resolver

import (
	"context"

	"go.uber.org/zap"

	"rackwise-topology/internal/domain"
)

// ConnectionLookup 连接查询的窄接口（由 repository 实现）
// 查不到返回 (nil, nil)：not-found 是正常值，不是错误。
type ConnectionLookup interface {
	GetConnectionByID(ctx context.Context, id string) (*domain.ConnectionDetail, error)
	GetConnectionByCode(ctx context.Context, code string) (*domain.ConnectionDetail, error)
}

// Resolution 扫码解析结果
type Resolution struct {
	Outcome Outcome
	Found   bool
	Detail  *domain.ConnectionDetail // 结构化载荷路径下为 nil（标签已在 Payload 内）
}

// Resolver 连接码解析器：提取 + 回查
type Resolver struct {
	lookup ConnectionLookup
	logger *zap.Logger
}

// NewResolver 创建解析器
func NewResolver(lookup ConnectionLookup, logger *zap.Logger) *Resolver {
	return &Resolver{
		lookup: lookup,
		logger: logger,
	}
}

// Resolve 将扫描/键入文本解析为连接记录
// 未识别与查无记录都是正常结果（Recognized/Found 为 false），调用方继续扫码即可；
// 只有存储层故障才返回 error。
func (r *Resolver) Resolve(ctx context.Context, raw string) (*Resolution, error) {
	out := Extract(raw)
	if !out.Recognized {
		r.logger.Debug("scan text not recognized as connection code", zap.String("raw", raw))
		return &Resolution{Outcome: out}, nil
	}

	// 结构化载荷自带两端标签，无需回查
	if out.Payload != nil {
		return &Resolution{Outcome: out, Found: true}, nil
	}

	var detail *domain.ConnectionDetail
	var err error
	switch out.Kind {
	case KindUUID:
		detail, err = r.lookup.GetConnectionByID(ctx, out.Key)
	default:
		detail, err = r.lookup.GetConnectionByCode(ctx, out.Key)
	}
	if err != nil {
		return nil, err
	}
	if detail == nil {
		r.logger.Debug("connection code recognized but no record found",
			zap.String("matcher", out.Matcher),
			zap.String("key", out.Key),
		)
		return &Resolution{Outcome: out}, nil
	}

	return &Resolution{Outcome: out, Found: true, Detail: detail}, nil
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (res *Resolution) ToJSON() map[string]any {
	m := map[string]any{
		"recognized": res.Outcome.Recognized,
		"found":      res.Found,
	}
	if res.Outcome.Recognized {
		m["kind"] = string(res.Outcome.Kind)
		m["key"] = res.Outcome.Key
		m["matcher"] = res.Outcome.Matcher
	}
	if res.Outcome.Payload != nil {
		p := res.Outcome.Payload
		m["code"] = p.Code
		m["a"] = map[string]any{"eq": p.A.Equipment, "p": p.A.Port}
		m["b"] = map[string]any{"eq": p.B.Equipment, "p": p.B.Port}
	} else if res.Detail != nil {
		m["connection"] = res.Detail.ToJSON()
	}
	return m
}
