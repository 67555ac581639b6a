package shared

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ParsePagination 读取 page / page_size 查询参数，非法值回退为默认值
func ParsePagination(c *gin.Context) (page, pageSize int) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err = strconv.Atoi(c.Query("page_size"))
	if err != nil || pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// TotalPages 根据总数计算页数
func TotalPages(total int64, pageSize int) int64 {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + int64(pageSize) - 1) / int64(pageSize)
}
