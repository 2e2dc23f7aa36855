package utils

import (
	"math/rand"
	"slices"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

// GenerateEmailFromChineseName 用姓名拼音加随机数字生成邮箱，例如 zhangwei42@example.com
func GenerateEmailFromChineseName(chineseName string, emailDomain string) string {
	local := ""
	for _, syllable := range pinyin.LazyConvert(chineseName, nil) {
		local += syllable
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		local += string(digits[rand.Intn(len(digits))])
	}

	return local + "@" + emailDomain
}

func GenerateRandomProfile(emailDomain string) *domain.Profile {
	fullName := GenerateRandomChineseName()

	return &domain.Profile{
		Email:    GenerateEmailFromChineseName(fullName, emailDomain),
		FullName: fullName,
		Role:     domain.RoleCustomer,
	}
}

func GenerateRandomTimeWindow() domain.TimeWindow {
	windows := domain.TimeWindows()
	return windows[rand.Intn(len(windows))]
}

// GenerateRandomDeliveryDate 返回 from 之后 1 到 withinDays 天内的某一天
func GenerateRandomDeliveryDate(from time.Time, withinDays int) string {
	return from.AddDate(0, 0, rand.Intn(withinDays)+1).Format(domain.DateLayout)
}

var frequencies = []domain.Frequency{
	domain.FrequencyWeekly,
	domain.FrequencyBiweekly,
	domain.FrequencyMonthly,
}

func GenerateRandomFrequency() domain.Frequency {
	return frequencies[rand.Intn(len(frequencies))]
}

// 用 Fisher-Yates 洗牌算法来生成随机的配送星期，周日为 0
func GenerateRandomDaysOfWeek() []int {
	days := []int{0, 1, 2, 3, 4, 5, 6}

	for i := len(days) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		days[i], days[j] = days[j], days[i]
	}

	// 一周最多送三次
	n := rand.Intn(3) + 1
	picked := days[:n]
	slices.Sort(picked)

	return picked
}
