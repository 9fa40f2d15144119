package logic

import (
	"errors"
)

// 业务错误，handler 层用 errors.Is 映射为HTTP状态码
var (
	ErrTaskNotFound          = errors.New("任务不存在")
	ErrEmployeeNotFound      = errors.New("员工不存在")
	ErrShadowAccountNotFound = errors.New("影子账户不存在")
	ErrInvalidStatus         = errors.New("无效的任务状态")
	ErrInvalidReward         = errors.New("无效的报酬金额")
	ErrInvalidWallet         = errors.New("钱包地址格式无效")
	ErrAlreadySettled        = errors.New("任务已进入终态，不允许再次变更")
	ErrPaymentFailed         = errors.New("链上支付失败")
	ErrLedgerWriteFailed     = errors.New("账本更新失败")
)
