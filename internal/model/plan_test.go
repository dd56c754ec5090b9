package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserPlan_IsCurrent(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	plan := &UserPlan{Status: PlanStatusActive, ExpiresAt: now.AddDate(0, 0, 10)}
	assert.True(t, plan.IsCurrent(now))

	// 时间过期但状态仍是 active
	expired := &UserPlan{Status: PlanStatusActive, ExpiresAt: now.Add(-time.Hour)}
	assert.False(t, expired.IsCurrent(now))

	revoked := &UserPlan{Status: PlanStatusRevoked, ExpiresAt: now.AddDate(0, 0, 10)}
	assert.False(t, revoked.IsCurrent(now))
}
