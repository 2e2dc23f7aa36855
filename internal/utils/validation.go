package utils

import (
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
)

// ValidateDateRange 检查查询范围的跨度，结束日期早于开始日期时视为空范围而不是错误
func ValidateDateRange(startDate, endDate string, maxDays int) error {
	start, err := time.Parse(domain.DateLayout, startDate)
	if err != nil {
		return fmt.Errorf("%w: 开始日期格式应为 YYYY-MM-DD", domain.ErrValidation)
	}
	end, err := time.Parse(domain.DateLayout, endDate)
	if err != nil {
		return fmt.Errorf("%w: 结束日期格式应为 YYYY-MM-DD", domain.ErrValidation)
	}

	if end.Before(start) {
		return nil
	}
	// 包含首尾两天
	if days := int(end.Sub(start).Hours()/24) + 1; days > maxDays {
		return fmt.Errorf("%w: 查询范围不能超过 %d 天", domain.ErrValidation, maxDays)
	}

	return nil
}
