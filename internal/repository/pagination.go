package repository

import "gorm.io/gorm"

// paginate 分页作用域，pageSize 非正数时不分页
func paginate(page, pageSize int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if pageSize <= 0 {
			return db
		}
		if page < 1 {
			page = 1
		}
		return db.Limit(pageSize).Offset((page - 1) * pageSize)
	}
}
