package model

import (
	"time"
)

// 计数器类型
const (
	CounterDaily   = "daily"
	CounterMonthly = "monthly"
)

// UsageCounter 周期用量计数，reset_date 为下一次归零的边界时间
type UsageCounter struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Sub          string    `gorm:"size:100;not null;uniqueIndex:uq_counter_sub_type" json:"sub"`
	CounterType  string    `gorm:"size:10;not null;uniqueIndex:uq_counter_sub_type" json:"counter_type"` // daily, monthly
	ChatUsed     int       `gorm:"default:0" json:"chat_used"`
	TemplateUsed int       `gorm:"default:0" json:"template_used"`
	ResetDate    time.Time `gorm:"not null;index" json:"reset_date"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (UsageCounter) TableName() string {
	return "usage_counters"
}

// NextBoundary 计算 after 之后的下一个边界。
// daily 从原边界按天累加避免漂移，monthly 取下个自然月一号。
func NextBoundary(counterType string, boundary, after time.Time) time.Time {
	next := boundary
	switch counterType {
	case CounterMonthly:
		for !next.After(after) {
			next = time.Date(next.Year(), next.Month(), 1, 0, 0, 0, 0, next.Location()).AddDate(0, 1, 0)
		}
	default:
		for !next.After(after) {
			next = next.AddDate(0, 0, 1)
		}
	}
	return next
}

// InitialBoundary 新建计数器时的首个边界
func InitialBoundary(counterType string, now time.Time) time.Time {
	switch counterType {
	case CounterMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
	default:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	}
}
