package scheduler

import (
	"fmt"
	"iter"
	"time"

	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
)

func parseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(domain.DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: 日期 %q 格式应为 YYYY-MM-DD", domain.ErrValidation, s)
	}
	return t, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// eachDay 依次产出 [start, end] 内的每一天，end 早于 start 时不产出任何值
func eachDay(start, end time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for day := startOfDay(start); !day.After(end); day = day.AddDate(0, 0, 1) {
			if !yield(day) {
				return
			}
		}
	}
}
