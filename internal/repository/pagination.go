package repository

import "gorm.io/gorm"

// paginateByID 按 ID 升序分页；pageSize <= 0 时不分页
func paginateByID(query *gorm.DB, page, pageSize int) *gorm.DB {
	query = query.Order("id ASC")
	if pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
