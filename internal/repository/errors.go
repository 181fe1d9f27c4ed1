package repository

import (
	"errors"

	"github.com/lib/pq"
)

// 冲突类错误：原样转达存储层的唯一性/事务保证，附带可读原因。
var (
	// ErrPortConflict 端口已有 active 连接（存储层部分唯一索引拒绝）
	ErrPortConflict = errors.New("port already has an active connection")
	// ErrDuplicateCode 连接码已存在（code 唯一约束拒绝）
	ErrDuplicateCode = errors.New("connection code already exists")
	// ErrNotEmpty 容器内仍有子实体，禁止删除
	ErrNotEmpty = errors.New("cannot delete non-empty container")
)

// uniqueViolation PostgreSQL 唯一约束冲突（SQLSTATE 23505）
func uniqueViolation(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr, true
	}
	return nil, false
}
