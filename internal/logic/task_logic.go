package logic

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/FrankyKyaw/instapay/internal/cache"
	"github.com/FrankyKyaw/instapay/internal/model"
	"gorm.io/gorm"
)

// TaskLogic 任务业务逻辑
type TaskLogic struct {
	db    *gorm.DB
	cache *cache.Client // 可为nil
}

// NewTaskLogic 创建任务业务逻辑
func NewTaskLogic(db *gorm.DB, cacheClient *cache.Client) *TaskLogic {
	return &TaskLogic{db: db, cache: cacheClient}
}

// CreateTask 创建任务
func (t *TaskLogic) CreateTask(task *model.TaskModel) error {
	if task.AssignedUser == "" || task.TaskDescription == "" {
		return fmt.Errorf("%w: 缺少指派员工或任务描述", ErrInvalidStatus)
	}

	// 报酬金额在创建时校验，结算端信任存储值
	if math.IsNaN(task.RewardAmount) || math.IsInf(task.RewardAmount, 0) || task.RewardAmount < 0 {
		return fmt.Errorf("%w: %f", ErrInvalidReward, task.RewardAmount)
	}

	if task.Status == "" {
		task.Status = string(model.TaskStatusPending)
	}
	if !model.ValidTaskStatus(model.TaskStatus(task.Status)) {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, task.Status)
	}

	// 指派对象必须是已注册员工
	var employee model.EmployeeModel
	if err := t.db.First(&employee, "id = ?", task.AssignedUser).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEmployeeNotFound
		}
		return fmt.Errorf("查询员工失败: %w", err)
	}

	task.PaymentStatus = string(model.PaymentStatusNone)
	if err := t.db.Create(task).Error; err != nil {
		return fmt.Errorf("创建任务失败: %w", err)
	}

	return nil
}

// GetTasks 获取任务列表，可按员工与状态过滤，按创建时间倒序
func (t *TaskLogic) GetTasks(userId, status string) ([]model.TaskModel, error) {
	query := t.db.Model(&model.TaskModel{})

	if userId != "" {
		query = query.Where("assigned_user = ?", userId)
	}
	if status != "" {
		if !model.ValidTaskStatus(model.TaskStatus(status)) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
		}
		query = query.Where("status = ?", status)
	}

	var tasks []model.TaskModel
	if err := query.Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("获取任务列表失败: %w", err)
	}

	return tasks, nil
}

// GetTask 获取任务详情
func (t *TaskLogic) GetTask(id int64) (*model.TaskModel, error) {
	var task model.TaskModel
	if err := t.db.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("获取任务详情失败: %w", err)
	}
	return &task, nil
}

// GetTaskStatus 获取任务状态，优先走Redis缓存
func (t *TaskLogic) GetTaskStatus(ctx context.Context, id int64) (string, error) {
	if t.cache != nil {
		if status, ok := t.cache.GetCachedTaskStatus(ctx, id); ok {
			return status, nil
		}
	}

	task, err := t.GetTask(id)
	if err != nil {
		return "", err
	}

	if t.cache != nil {
		t.cache.CacheTaskStatus(ctx, id, task.Status)
	}
	return task.Status, nil
}
