package model

import (
	"time"
)

// 用户计划状态
const (
	PlanStatusActive  = "active"
	PlanStatusExpired = "expired"
	PlanStatusRevoked = "revoked"
)

// TariffPlan 资费计划目录
type TariffPlan struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	PlanCode      string    `gorm:"size:50;uniqueIndex;not null" json:"plan_code"`
	Name          string    `gorm:"size:100;not null" json:"name"`
	MonthlyUnits  float64   `gorm:"type:decimal(20,6);not null;default:0" json:"monthly_units"`
	ChatLimit     int       `gorm:"default:0" json:"chat_limit"`
	TemplateLimit int       `gorm:"default:0" json:"template_limit"`
	Price         float64   `gorm:"type:decimal(10,2);default:0" json:"price"`
	IsActive      bool      `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

func (TariffPlan) TableName() string {
	return "tariff_plans"
}

// UserPlan 用户激活的计划，同一用户最多一个 active
type UserPlan struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	Sub           string    `gorm:"size:100;index;not null" json:"sub"`
	PlanCode      string    `gorm:"size:50;not null" json:"plan_code"`
	ChatLimit     int       `gorm:"default:0" json:"chat_limit"`
	TemplateLimit int       `gorm:"default:0" json:"template_limit"`
	Status        string    `gorm:"size:20;default:active;index" json:"status"` // active, expired, revoked
	StartedAt     time.Time `gorm:"not null" json:"started_at"`
	ExpiresAt     time.Time `gorm:"not null;index" json:"expires_at"`
	AutoRenew     bool      `gorm:"default:false" json:"auto_renew"`
	CreatedAt     time.Time `json:"created_at"`
}

func (UserPlan) TableName() string {
	return "user_plans"
}

// IsCurrent 计划是否处于有效期内（过期按时间判断，不做后台删除）
func (p *UserPlan) IsCurrent(now time.Time) bool {
	return p.Status == PlanStatusActive && p.ExpiresAt.After(now)
}
