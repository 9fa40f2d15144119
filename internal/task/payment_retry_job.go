package task

import (
	"context"
	"sync"
	"time"

	"github.com/FrankyKyaw/instapay/internal/config"
	"github.com/FrankyKyaw/instapay/internal/logger"
	"github.com/FrankyKyaw/instapay/internal/logic"
	"github.com/FrankyKyaw/instapay/internal/model"
	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
	"gorm.io/gorm"
)

// PaymentRetryJob 支付重试任务：重新结算已完成但链上支付失败的任务
type PaymentRetryJob struct {
	db     *gorm.DB
	config *config.Config
	settle *logic.SettlementLogic
}

// NewPaymentRetryJob 创建支付重试任务
func NewPaymentRetryJob(db *gorm.DB, cfg *config.Config, settle *logic.SettlementLogic) *PaymentRetryJob {
	return &PaymentRetryJob{
		db:     db,
		config: cfg,
		settle: settle,
	}
}

// GetName 获取任务名称
func (j *PaymentRetryJob) GetName() string {
	return "payment_retry"
}

// GetSchedule 获取调度配置
func (j *PaymentRetryJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.RetryInterval) * time.Second)
}

// Execute 执行任务
func (j *PaymentRetryJob) Execute() {
	logger.Info("Starting payment retry task")

	// payment_status=failed只会出现在链上支付路径，记账路径不会被选中
	var tasks []model.TaskModel
	err := j.db.Where("status = ? AND payment_status = ?",
		string(model.TaskStatusCompleted), string(model.PaymentStatusFailed)).
		Find(&tasks).Error
	if err != nil {
		logger.Error("Failed to fetch unsettled tasks: %v", err)
		return
	}

	if len(tasks) == 0 {
		logger.Info("Payment retry task completed, nothing to settle")
		return
	}

	poolSize := j.config.Task.RetryPoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	// 不同任务可以并行结算，同一任务的幂等由支付记录保证
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		logger.Error("Failed to create retry pool: %v", err)
		return
	}
	defer pool.Release()

	var wg sync.WaitGroup
	var mu sync.Mutex
	settled := 0

	for _, t := range tasks {
		taskId := t.Id
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			result, err := j.settle.RetrySettlement(context.Background(), taskId)
			if err != nil {
				logger.Warn("Retry settlement failed for task %d: %v", taskId, err)
				return
			}
			if result.PaymentStatus == model.PaymentStatusPaid {
				mu.Lock()
				settled++
				mu.Unlock()
			}
		})
		if submitErr != nil {
			wg.Done()
			logger.Error("Failed to submit retry for task %d: %v", taskId, submitErr)
		}
	}

	wg.Wait()
	logger.Info("Payment retry task completed. Settled %d of %d tasks", settled, len(tasks))
}
