package logic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/FrankyKyaw/instapay/internal/cache"
	"github.com/FrankyKyaw/instapay/internal/ethereum"
	"github.com/FrankyKyaw/instapay/internal/logger"
	"github.com/FrankyKyaw/instapay/internal/model"
	"github.com/FrankyKyaw/instapay/internal/mq"
	"gorm.io/gorm"
)

// PaymentGateway 链上支付网关
type PaymentGateway interface {
	Send(ctx context.Context, address string, amountMilliEth float64) (string, error)
}

// SettlementPublisher 结算事件发布器
type SettlementPublisher interface {
	PublishSettlement(event mq.SettlementEvent) error
}

// TransitionResult 状态变更结果
type TransitionResult struct {
	TaskId             int64               `json:"task_id"`
	Status             model.TaskStatus    `json:"status"`
	PaymentStatus      model.PaymentStatus `json:"payment_status"`
	TxHash             string              `json:"tx_hash,omitempty"`
	NewEmployeeBalance *float64            `json:"new_employee_balance,omitempty"`
	NewShadowBalance   *float64            `json:"new_shadow_balance,omitempty"`
}

// SettlementLogic 结算业务逻辑：任务状态变更与完成后的支付结算
type SettlementLogic struct {
	db        *gorm.DB
	gateway   PaymentGateway
	publisher SettlementPublisher // 可为nil
	cache     *cache.Client       // 可为nil
}

// NewSettlementLogic 创建结算业务逻辑
func NewSettlementLogic(db *gorm.DB, gateway PaymentGateway, publisher SettlementPublisher, cacheClient *cache.Client) *SettlementLogic {
	return &SettlementLogic{
		db:        db,
		gateway:   gateway,
		publisher: publisher,
		cache:     cacheClient,
	}
}

// TransitionTask 变更任务状态；目标状态为completed时触发结算。
// completed落库后结算阶段再失败时，错误会连同部分结果一起返回，
// 调用方据此展示任务已完成但未结清的事实。
func (l *SettlementLogic) TransitionTask(ctx context.Context, taskId int64, requested model.TaskStatus) (*TransitionResult, error) {
	if !model.ValidTaskStatus(requested) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, requested)
	}

	var task model.TaskModel
	if err := l.db.First(&task, taskId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("查询任务失败: %w", err)
	}

	// 重复请求幂等返回，不产生任何写入
	if model.TaskStatus(task.Status) == requested {
		return resultFromTask(&task), nil
	}

	// 终态不允许再变更
	if model.TaskStatus(task.Status).IsTerminal() {
		return nil, fmt.Errorf("%w: %s", ErrAlreadySettled, task.Status)
	}

	// 非completed目标只更新状态
	if requested != model.TaskStatusCompleted {
		if err := l.db.Model(&task).Update("status", string(requested)).Error; err != nil {
			return nil, fmt.Errorf("更新任务状态失败: %w", err)
		}
		task.Status = string(requested)
		l.cacheStatus(ctx, taskId, task.Status)
		return resultFromTask(&task), nil
	}

	// Redis结算锁（可选），数据库条件更新兜底
	if l.cache != nil {
		if !l.cache.TryLockSettlement(ctx, taskId) {
			return nil, fmt.Errorf("%w: 结算进行中", ErrAlreadySettled)
		}
		defer l.cache.UnlockSettlement(ctx, taskId)
	}

	// 条件更新抢占completed状态，并发的另一方RowsAffected为0
	claim := l.db.Model(&model.TaskModel{}).
		Where("id = ? AND status NOT IN ?", taskId, []string{string(model.TaskStatusCompleted), string(model.TaskStatusCancelled)}).
		Update("status", string(model.TaskStatusCompleted))
	if claim.Error != nil {
		return nil, fmt.Errorf("更新任务状态失败: %w", claim.Error)
	}
	if claim.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: 并发结算请求", ErrAlreadySettled)
	}

	task.Status = string(model.TaskStatusCompleted)
	l.cacheStatus(ctx, taskId, task.Status)

	// 状态已落库：从这里开始的失败都不回滚completed，
	// 通过payment_status暴露未结算事实，由重试任务兜底
	return l.settle(ctx, &task)
}

// RetrySettlement 重新结算已完成但未结清的任务（支付重试任务入口）：
// 支付失败的任务，以及pay-it-now员工名下completed但从未进入支付的任务
func (l *SettlementLogic) RetrySettlement(ctx context.Context, taskId int64) (*TransitionResult, error) {
	var task model.TaskModel
	if err := l.db.First(&task, taskId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("查询任务失败: %w", err)
	}

	if model.TaskStatus(task.Status) != model.TaskStatusCompleted {
		return nil, fmt.Errorf("%w: 任务未完成，无法结算", ErrInvalidStatus)
	}
	if model.PaymentStatus(task.PaymentStatus) == model.PaymentStatusPaid {
		return resultFromTask(&task), nil
	}
	// 支付失败的任务直接重试。payment_status为空时要区分路径：
	// 记账路径完成即入账，重试会重复累加；pay-it-now路径（如结算中途
	// 崩溃遗留的completed任务）靠支付记录的task_id唯一约束去重，可补结算
	if model.PaymentStatus(task.PaymentStatus) != model.PaymentStatusFailed {
		var employee model.EmployeeModel
		if err := l.db.First(&employee, "id = ?", task.AssignedUser).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrEmployeeNotFound
			}
			return nil, fmt.Errorf("查询员工失败: %w", err)
		}
		if !employee.PayItNow {
			return nil, fmt.Errorf("%w: 任务无待重试的支付", ErrInvalidStatus)
		}
	}

	return l.settle(ctx, &task)
}

// settle 结算子流程：根据员工pay-it-now偏好走链上支付或记账累加
func (l *SettlementLogic) settle(ctx context.Context, task *model.TaskModel) (*TransitionResult, error) {
	var employee model.EmployeeModel
	if err := l.db.First(&employee, "id = ?", task.AssignedUser).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resultFromTask(task), ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("查询员工失败: %w", err)
	}

	var shadow model.ShadowAccountModel
	if err := l.db.First(&shadow, "id = ?", task.AssignedUser).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resultFromTask(task), ErrShadowAccountNotFound
		}
		return nil, fmt.Errorf("查询影子账户失败: %w", err)
	}

	// 存储值可能被外部写坏，直接参与计算前先校验
	if math.IsNaN(task.RewardAmount) || math.IsInf(task.RewardAmount, 0) || task.RewardAmount < 0 {
		return resultFromTask(task), fmt.Errorf("%w: %f", ErrInvalidReward, task.RewardAmount)
	}

	if employee.PayItNow {
		return l.payout(ctx, task, &employee)
	}
	return l.accrue(task, &employee, &shadow)
}

// payout 链上立即支付路径
func (l *SettlementLogic) payout(ctx context.Context, task *model.TaskModel, employee *model.EmployeeModel) (*TransitionResult, error) {
	// 支付前先落支付记录，task_id唯一约束保证重试不会重复转账
	var record model.PaymentRecordModel
	err := l.db.First(&record, "task_id = ?", task.Id).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		record = model.PaymentRecordModel{
			TaskId:        task.Id,
			EmployeeId:    employee.Id,
			WalletAddress: employee.WalletAddress,
			AmountWei:     ethereum.MilliEthToWei(task.RewardAmount).String(),
			Status:        string(model.PaymentRecordStatusPending),
		}
		if err := l.db.Create(&record).Error; err != nil {
			// 唯一约束冲突说明并发方已在结算
			return nil, fmt.Errorf("%w: 创建支付记录失败: %v", ErrAlreadySettled, err)
		}
	case err != nil:
		return nil, fmt.Errorf("查询支付记录失败: %w", err)
	case record.Status == string(model.PaymentRecordStatusPaid):
		// 已支付过：补齐任务上的支付信息后幂等返回
		if task.PaymentStatus != string(model.PaymentStatusPaid) {
			l.writePaymentInfo(task, record.TxHash, record.PaidAt)
		}
		return resultFromTask(task), nil
	}

	if err := l.db.Model(&record).Updates(map[string]interface{}{
		"attempt_count": gorm.Expr("attempt_count + 1"),
		"status":        string(model.PaymentRecordStatusPending),
	}).Error; err != nil {
		return nil, fmt.Errorf("更新支付记录失败: %w", err)
	}

	txHash, sendErr := l.gateway.Send(ctx, employee.WalletAddress, task.RewardAmount)
	if sendErr != nil {
		logger.Error("Payment failed for task %d (employee %s): %v", task.Id, employee.Id, sendErr)
		now := time.Now()
		l.markPaymentFailed(task, &record, sendErr, now)
		l.publish(mq.SettlementEvent{
			TaskId:     task.Id,
			EmployeeId: employee.Id,
			Path:       "payout_failed",
			Amount:     task.RewardAmount,
			OccurredAt: now,
		})
		// 任务保持completed，调用方能同时看到终态与支付失败事实
		return resultFromTask(task), fmt.Errorf("%w: %v", ErrPaymentFailed, sendErr)
	}

	now := time.Now()
	if err := l.db.Model(&record).Updates(map[string]interface{}{
		"status":  string(model.PaymentRecordStatusPaid),
		"tx_hash": txHash,
		"paid_at": &now,
	}).Error; err != nil {
		// 转账已成功，记录写失败只告警；支付记录缺失会被重试任务重新核对
		logger.Error("Failed to update payment record %d after send: %v", record.Id, err)
	}

	if err := l.writePaymentInfo(task, txHash, &now); err != nil {
		// 钱已到账但任务支付信息没写上，暴露为账本写入失败供人工核对
		partial := resultFromTask(task)
		partial.TxHash = txHash
		return partial, fmt.Errorf("%w: 转账成功(tx=%s)但任务支付信息写入失败: %v", ErrLedgerWriteFailed, txHash, err)
	}

	logger.Info("Task %d settled on-chain, tx: %s", task.Id, txHash)
	l.publish(mq.SettlementEvent{
		TaskId:     task.Id,
		EmployeeId: employee.Id,
		Path:       "payout",
		Amount:     task.RewardAmount,
		TxHash:     txHash,
		OccurredAt: now,
	})
	return resultFromTask(task), nil
}

// accrue 记账累加路径：员工余额与影子账本在同一事务内原子递增
func (l *SettlementLogic) accrue(task *model.TaskModel, employee *model.EmployeeModel, shadow *model.ShadowAccountModel) (*TransitionResult, error) {
	reward := task.RewardAmount

	err := l.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.EmployeeModel{}).
			Where("id = ?", employee.Id).
			Update("credit_balance", gorm.Expr("credit_balance + ?", reward))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrEmployeeNotFound
		}

		res = tx.Model(&model.ShadowAccountModel{}).
			Where("id = ?", shadow.Id).
			Update("balance", gorm.Expr("balance + ?", reward))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrShadowAccountNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEmployeeNotFound) || errors.Is(err, ErrShadowAccountNotFound) {
			return resultFromTask(task), err
		}
		return resultFromTask(task), fmt.Errorf("%w: %v", ErrLedgerWriteFailed, err)
	}

	// 回读事务后的余额
	if err := l.db.First(employee, "id = ?", employee.Id).Error; err != nil {
		return nil, fmt.Errorf("回读员工余额失败: %w", err)
	}
	if err := l.db.First(shadow, "id = ?", shadow.Id).Error; err != nil {
		return nil, fmt.Errorf("回读影子账户余额失败: %w", err)
	}

	logger.Info("Task %d accrued %.3f to employee %s (balance: %.3f, shadow: %.3f)",
		task.Id, reward, employee.Id, employee.CreditBalance, shadow.Balance)
	l.publish(mq.SettlementEvent{
		TaskId:        task.Id,
		EmployeeId:    employee.Id,
		Path:          "accrual",
		Amount:        reward,
		CreditBalance: employee.CreditBalance,
		ShadowBalance: shadow.Balance,
		OccurredAt:    time.Now(),
	})

	result := resultFromTask(task)
	result.NewEmployeeBalance = &employee.CreditBalance
	result.NewShadowBalance = &shadow.Balance
	return result, nil
}

// writePaymentInfo 写回任务上的支付信息
func (l *SettlementLogic) writePaymentInfo(task *model.TaskModel, txHash string, paidAt *time.Time) error {
	err := l.db.Model(&model.TaskModel{}).Where("id = ?", task.Id).Updates(map[string]interface{}{
		"payment_status":  string(model.PaymentStatusPaid),
		"payment_tx_hash": txHash,
		"payment_time":    paidAt,
	}).Error
	if err != nil {
		return err
	}
	task.PaymentStatus = string(model.PaymentStatusPaid)
	task.PaymentTxHash = txHash
	task.PaymentTime = paidAt
	return nil
}

// markPaymentFailed 标记任务与支付记录为失败
func (l *SettlementLogic) markPaymentFailed(task *model.TaskModel, record *model.PaymentRecordModel, sendErr error, now time.Time) {
	if err := l.db.Model(&model.TaskModel{}).Where("id = ?", task.Id).
		Update("payment_status", string(model.PaymentStatusFailed)).Error; err != nil {
		logger.Error("Failed to mark task %d payment failed: %v", task.Id, err)
	} else {
		task.PaymentStatus = string(model.PaymentStatusFailed)
	}

	if err := l.db.Model(record).Updates(map[string]interface{}{
		"status":     string(model.PaymentRecordStatusFailed),
		"last_error": sendErr.Error(),
	}).Error; err != nil {
		logger.Error("Failed to mark payment record %d failed: %v", record.Id, err)
	}
}

func (l *SettlementLogic) publish(event mq.SettlementEvent) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.PublishSettlement(event); err != nil {
		logger.Warn("Failed to publish settlement event for task %d: %v", event.TaskId, err)
	}
}

func (l *SettlementLogic) cacheStatus(ctx context.Context, taskId int64, status string) {
	if l.cache == nil {
		return
	}
	l.cache.CacheTaskStatus(ctx, taskId, status)
}

func resultFromTask(task *model.TaskModel) *TransitionResult {
	return &TransitionResult{
		TaskId:        task.Id,
		Status:        model.TaskStatus(task.Status),
		PaymentStatus: model.PaymentStatus(task.PaymentStatus),
		TxHash:        task.PaymentTxHash,
	}
}
