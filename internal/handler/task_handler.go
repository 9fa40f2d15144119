package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/FrankyKyaw/instapay/internal/logic"
	"github.com/FrankyKyaw/instapay/internal/model"
	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	taskLogic       *logic.TaskLogic
	settlementLogic *logic.SettlementLogic
}

func NewTaskHandler(taskLogic *logic.TaskLogic, settlementLogic *logic.SettlementLogic) *TaskHandler {
	return &TaskHandler{
		taskLogic:       taskLogic,
		settlementLogic: settlementLogic,
	}
}

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	AssignedUser    string   `json:"assigned_user" binding:"required"`
	TaskDescription string   `json:"task_description" binding:"required"`
	RewardAmount    *float64 `json:"reward_amount" binding:"required,gte=0"` // 指针避免required拒绝0值
	Status          string   `json:"status"`
}

// UpdateTaskStatusRequest 任务状态变更请求
type UpdateTaskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CreateTask 创建任务
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	task := &model.TaskModel{
		AssignedUser:    req.AssignedUser,
		TaskDescription: req.TaskDescription,
		RewardAmount:    *req.RewardAmount,
		Status:          req.Status,
	}

	if err := h.taskLogic.CreateTask(task); err != nil {
		ErrorResponse(c, statusCodeFor(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusCreated, "任务创建成功", task)
}

// GetTasks 获取任务列表
func (h *TaskHandler) GetTasks(c *gin.Context) {
	userId := c.Query("userId")
	status := c.Query("status")

	tasks, err := h.taskLogic.GetTasks(userId, status)
	if err != nil {
		ErrorResponse(c, statusCodeFor(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{"tasks": tasks, "total": len(tasks)})
}

// GetTask 获取任务详情
func (h *TaskHandler) GetTask(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的任务ID")
		return
	}

	task, err := h.taskLogic.GetTask(id)
	if err != nil {
		ErrorResponse(c, statusCodeFor(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", task)
}

// GetTaskStatus 获取任务状态（带缓存）
func (h *TaskHandler) GetTaskStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的任务ID")
		return
	}

	status, err := h.taskLogic.GetTaskStatus(c.Request.Context(), id)
	if err != nil {
		ErrorResponse(c, statusCodeFor(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{"task_id": id, "status": status})
}

// UpdateTaskStatus 变更任务状态，completed时触发结算
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的任务ID")
		return
	}

	var req UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.settlementLogic.TransitionTask(c.Request.Context(), id, model.TaskStatus(req.Status))
	if err != nil {
		// 结算阶段失败时任务已是completed，部分结果随错误一起返回
		if result != nil {
			ErrorResponseWithData(c, statusCodeFor(err), err.Error(), result)
			return
		}
		ErrorResponse(c, statusCodeFor(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "任务状态变更成功", result)
}

// statusCodeFor 业务错误映射为HTTP状态码
func statusCodeFor(err error) int {
	switch {
	case errors.Is(err, logic.ErrTaskNotFound),
		errors.Is(err, logic.ErrEmployeeNotFound),
		errors.Is(err, logic.ErrShadowAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, logic.ErrInvalidStatus),
		errors.Is(err, logic.ErrInvalidReward),
		errors.Is(err, logic.ErrInvalidWallet):
		return http.StatusBadRequest
	case errors.Is(err, logic.ErrAlreadySettled):
		return http.StatusConflict
	case errors.Is(err, logic.ErrPaymentFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
