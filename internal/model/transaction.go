package model

import (
	"time"
)

// 交易方向
const (
	DirectionDebit  = "debit"
	DirectionCredit = "credit"
)

// BalanceTransaction 余额流水，同时充当幂等回执：
// ref 全局唯一，写入后不可变，重试请求直接返回已记录的结果
type BalanceTransaction struct {
	TxID             string    `gorm:"column:tx_id;primaryKey;size:36" json:"tx_id"`
	Sub              string    `gorm:"size:100;index;not null" json:"sub"`
	Direction        string    `gorm:"size:10;not null" json:"direction"` // debit, credit
	Units            float64   `gorm:"type:decimal(20,6);not null" json:"units"`
	Ref              string    `gorm:"size:200;uniqueIndex;not null" json:"ref"`
	Reason           string    `gorm:"size:200;not null" json:"reason"`
	SourceService    string    `gorm:"size:100" json:"source_service,omitempty"`
	ResultingBalance float64   `gorm:"type:decimal(20,6);not null" json:"resulting_balance"`
	CreatedAt        time.Time `json:"created_at"`
}

func (BalanceTransaction) TableName() string {
	return "balance_transactions"
}
