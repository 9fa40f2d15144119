package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/FrankyKyaw/instapay/internal/handler"
	"github.com/FrankyKyaw/instapay/internal/logic"
	"github.com/FrankyKyaw/instapay/internal/model"
	"github.com/FrankyKyaw/instapay/internal/repository"
	"github.com/FrankyKyaw/instapay/internal/router"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

type stubGateway struct {
	txHash string
	err    error
	calls  int
}

func (s *stubGateway) Send(_ context.Context, _ string, _ float64) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.txHash, nil
}

type testEnv struct {
	db      *gorm.DB
	gateway *stubGateway
	engine  *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
		NamingStrategy: &schema.NamingStrategy{
			SingularTable: true,
		},
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repository.Migrate(db))

	gateway := &stubGateway{txHash: "0xabc"}
	settlementLogic := logic.NewSettlementLogic(db, gateway, nil, nil)
	taskLogic := logic.NewTaskLogic(db, nil)
	employeeLogic := logic.NewEmployeeLogic(db)

	engine := router.Setup(
		handler.NewTaskHandler(taskLogic, settlementLogic),
		handler.NewEmployeeHandler(employeeLogic),
	)

	return &testEnv{db: db, gateway: gateway, engine: engine}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *testEnv) registerEmployee(t *testing.T, payItNow bool) string {
	t.Helper()

	w := e.request(t, http.MethodPost, "/api/v1/employees", gin.H{
		"name":                  "alice",
		"crypto_wallet_address": "0x1234567890abcdef1234567890abcdef12345678",
		"pay_it_now_status":     payItNow,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data model.EmployeeModel `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Id)
	return resp.Data.Id
}

func (e *testEnv) createTask(t *testing.T, employeeId string, reward float64) int64 {
	t.Helper()

	w := e.request(t, http.MethodPost, "/api/v1/tasks", gin.H{
		"assigned_user":    employeeId,
		"task_description": "test task",
		"reward_amount":    reward,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data model.TaskModel `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotZero(t, resp.Data.Id)
	return resp.Data.Id
}

func TestRegisterEmployeeInvalidWallet(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/v1/employees", gin.H{
		"name":                  "bob",
		"crypto_wallet_address": "not-a-wallet",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateTaskStatusPayItNow(t *testing.T) {
	env := newTestEnv(t)
	employeeId := env.registerEmployee(t, true)
	taskId := env.createTask(t, employeeId, 10)

	w := env.request(t, http.MethodPut, fmt.Sprintf("/api/v1/tasks/%d/status", taskId),
		gin.H{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data logic.TransitionResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.TaskStatusCompleted, resp.Data.Status)
	assert.Equal(t, model.PaymentStatusPaid, resp.Data.PaymentStatus)
	assert.Equal(t, "0xabc", resp.Data.TxHash)
}

func TestUpdateTaskStatusAccrualReportsBalances(t *testing.T) {
	env := newTestEnv(t)
	employeeId := env.registerEmployee(t, false)
	taskId := env.createTask(t, employeeId, 50)

	w := env.request(t, http.MethodPut, fmt.Sprintf("/api/v1/tasks/%d/status", taskId),
		gin.H{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data logic.TransitionResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data.NewEmployeeBalance)
	require.NotNil(t, resp.Data.NewShadowBalance)
	assert.Equal(t, 50.0, *resp.Data.NewEmployeeBalance)
	assert.Equal(t, 50.0, *resp.Data.NewShadowBalance)

	// 余额查询接口与结算结果一致
	w = env.request(t, http.MethodGet, "/api/v1/employees/"+employeeId+"/balances", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"credit_balance":50`)
	assert.Contains(t, w.Body.String(), `"shadow_balance":50`)
}

func TestUpdateTaskStatusErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	employeeId := env.registerEmployee(t, true)
	taskId := env.createTask(t, employeeId, 10)

	// 未知任务
	w := env.request(t, http.MethodPut, "/api/v1/tasks/9999/status", gin.H{"status": "completed"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 非法状态值
	w = env.request(t, http.MethodPut, fmt.Sprintf("/api/v1/tasks/%d/status", taskId),
		gin.H{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 支付失败映射为BadGateway，任务保持completed
	env.gateway.err = errors.New("gateway down")
	w = env.request(t, http.MethodPut, fmt.Sprintf("/api/v1/tasks/%d/status", taskId),
		gin.H{"status": "completed"})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var task model.TaskModel
	require.NoError(t, env.db.First(&task, taskId).Error)
	assert.Equal(t, string(model.TaskStatusCompleted), task.Status)
	assert.Equal(t, string(model.PaymentStatusFailed), task.PaymentStatus)

	// 终态任务再变更映射为Conflict
	w = env.request(t, http.MethodPut, fmt.Sprintf("/api/v1/tasks/%d/status", taskId),
		gin.H{"status": "pending"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateTaskStatusPaymentFailureBodyCarriesFinalState(t *testing.T) {
	env := newTestEnv(t)
	employeeId := env.registerEmployee(t, true)
	taskId := env.createTask(t, employeeId, 10)

	env.gateway.err = errors.New("rpc timeout")
	w := env.request(t, http.MethodPut, fmt.Sprintf("/api/v1/tasks/%d/status", taskId),
		gin.H{"status": "completed"})
	require.Equal(t, http.StatusBadGateway, w.Code)

	// 错误响应体同时带回任务终态，调用方无需再查一次
	var resp struct {
		Success bool                   `json:"success"`
		Data    logic.TransitionResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, taskId, resp.Data.TaskId)
	assert.Equal(t, model.TaskStatusCompleted, resp.Data.Status)
	assert.Equal(t, model.PaymentStatusFailed, resp.Data.PaymentStatus)
	assert.Contains(t, w.Body.String(), `"status":"completed"`)
}

func TestCreateTaskZeroRewardAccepted(t *testing.T) {
	env := newTestEnv(t)
	employeeId := env.registerEmployee(t, false)

	w := env.request(t, http.MethodPost, "/api/v1/tasks", gin.H{
		"assigned_user":    employeeId,
		"task_description": "volunteer task",
		"reward_amount":    0,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data model.TaskModel `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Zero(t, resp.Data.RewardAmount)

	// 负数与缺失仍被拒绝
	w = env.request(t, http.MethodPost, "/api/v1/tasks", gin.H{
		"assigned_user":    employeeId,
		"task_description": "bad task",
		"reward_amount":    -1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.request(t, http.MethodPost, "/api/v1/tasks", gin.H{
		"assigned_user":    employeeId,
		"task_description": "bad task",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTasksFilterByStatus(t *testing.T) {
	env := newTestEnv(t)
	employeeId := env.registerEmployee(t, false)
	env.createTask(t, employeeId, 1)
	taskId := env.createTask(t, employeeId, 2)

	w := env.request(t, http.MethodPut, fmt.Sprintf("/api/v1/tasks/%d/status", taskId),
		gin.H{"status": "in_progress"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodGet, "/api/v1/tasks?userId="+employeeId+"&status=in_progress", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Tasks []model.TaskModel `json:"tasks"`
			Total int               `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Tasks, 1)
	assert.Equal(t, taskId, resp.Data.Tasks[0].Id)
}

func TestGetTaskStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)
	employeeId := env.registerEmployee(t, false)
	taskId := env.createTask(t, employeeId, 1)

	w := env.request(t, http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d/status", taskId), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)

	w = env.request(t, http.MethodGet, "/api/v1/tasks/424242/status", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
