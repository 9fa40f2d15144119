package model

import (
	"time"
)

// PaymentRecordModel 支付记录（链上转账前先落库，task_id 唯一约束防止重复付款）
type PaymentRecordModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TaskId        int64  `json:"task_id" gorm:"not null;uniqueIndex"`
	EmployeeId    string `json:"employee_id" gorm:"not null;index"`
	WalletAddress string `json:"wallet_address" gorm:"not null"`
	AmountWei     string `json:"amount_wei" gorm:"not null"` // 以wei计的转账金额（十进制字符串）

	Status       string     `json:"status" gorm:"default:'pending'"` // pending, paid, failed
	TxHash       string     `json:"tx_hash"`
	AttemptCount int        `json:"attempt_count" gorm:"default:0"`
	LastError    string     `json:"last_error"`
	PaidAt       *time.Time `json:"paid_at"`
}

// PaymentRecordStatus 支付记录状态
type PaymentRecordStatus string

const (
	PaymentRecordStatusPending PaymentRecordStatus = "pending" // 已尝试，未确认
	PaymentRecordStatusPaid    PaymentRecordStatus = "paid"    // 转账成功
	PaymentRecordStatusFailed  PaymentRecordStatus = "failed"  // 转账失败
)

// TableName 自定义表名
func (PaymentRecordModel) TableName() string {
	return "payment_record"
}
