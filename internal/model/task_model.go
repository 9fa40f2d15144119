package model

import (
	"time"
)

// TaskModel 任务
type TaskModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AssignedUser    string  `json:"assigned_user" gorm:"not null;index"` // 指派员工ID
	TaskDescription string  `json:"task_description" gorm:"type:text;not null"`
	RewardAmount    float64 `json:"reward_amount" gorm:"not null"` // 报酬（milliETH）

	Status        string     `json:"status" gorm:"default:'pending';index"` // pending, in_progress, completed, cancelled
	PaymentStatus string     `json:"payment_status" gorm:"default:''"`      // '', paid, failed
	PaymentTxHash string     `json:"payment_tx_hash"`
	PaymentTime   *time.Time `json:"payment_timestamp"`
}

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"     // 待开始
	TaskStatusInProgress TaskStatus = "in_progress" // 进行中
	TaskStatusCompleted  TaskStatus = "completed"   // 已完成
	TaskStatusCancelled  TaskStatus = "cancelled"   // 已取消
)

// PaymentStatus 支付状态
type PaymentStatus string

const (
	PaymentStatusNone   PaymentStatus = ""       // 未支付
	PaymentStatusPaid   PaymentStatus = "paid"   // 已支付
	PaymentStatusFailed PaymentStatus = "failed" // 支付失败
)

// ValidTaskStatus 校验任务状态枚举值
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// IsTerminal 任务是否处于终态（completed/cancelled 之后不允许再变更）
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// TableName 自定义表名
func (TaskModel) TableName() string {
	return "task"
}
