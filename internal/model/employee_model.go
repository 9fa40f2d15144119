package model

import (
	"time"
)

// EmployeeModel 员工
type EmployeeModel struct {
	Id        string    `json:"id" gorm:"primaryKey"` // UUID
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name          string  `json:"name" gorm:"not null"`
	WalletAddress string  `json:"wallet_address" gorm:"not null;uniqueIndex"` // 0x + 40位十六进制
	PayItNow      bool    `json:"pay_it_now_status" gorm:"column:pay_it_now_status"`
	CreditBalance float64 `json:"credit_balance" gorm:"default:0"` // 内部信用余额（milliETH）
}

// TableName 自定义表名
func (EmployeeModel) TableName() string {
	return "employee"
}
