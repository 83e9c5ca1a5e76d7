package repository

import "time"

// RecordListFilter 查询二维码记录列表的过滤条件
// 按整天筛选时 CreatedBefore 取次日零点。
type RecordListFilter struct {
	Page          int
	PageSize      int
	Search        string
	SerialNumber  string
	CreatedFrom   *time.Time // created_at >= CreatedFrom
	CreatedTo     *time.Time // created_at <= CreatedTo
	CreatedBefore *time.Time // created_at < CreatedBefore
}
