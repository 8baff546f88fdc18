package scheduler

import "errors"

var (
	// ErrInvalidRequest 表示请求本身不合法，在搜索开始前就会被拒绝
	ErrInvalidRequest = errors.New("排班请求不合法")
	// ErrInternalInconsistency 表示内部不变量被破坏，属于必须暴露的致命错误
	ErrInternalInconsistency = errors.New("排班内部状态不一致")
)
