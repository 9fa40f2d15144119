package model

import (
	"time"
)

// ShadowAccountModel 影子账本（下游记账系统的镜像余额，与员工信用余额一一对应）
type ShadowAccountModel struct {
	Id        string    `json:"id" gorm:"primaryKey"` // 与员工ID相同
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Balance float64 `json:"balance" gorm:"default:0"` // 镜像余额（milliETH）
}

// TableName 自定义表名
func (ShadowAccountModel) TableName() string {
	return "shadow_account"
}
