package handler

import (
	"net/http"

	"github.com/FrankyKyaw/instapay/internal/logic"
	"github.com/gin-gonic/gin"
)

type EmployeeHandler struct {
	employeeLogic *logic.EmployeeLogic
}

func NewEmployeeHandler(employeeLogic *logic.EmployeeLogic) *EmployeeHandler {
	return &EmployeeHandler{employeeLogic: employeeLogic}
}

// RegisterRequest 员工注册请求
type RegisterRequest struct {
	Name          string `json:"name" binding:"required"`
	WalletAddress string `json:"crypto_wallet_address" binding:"required"`
	PayItNow      bool   `json:"pay_it_now_status"`
}

// Register 注册员工
func (h *EmployeeHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	employee, err := h.employeeLogic.Register(req.Name, req.WalletAddress, req.PayItNow)
	if err != nil {
		ErrorResponse(c, statusCodeFor(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusCreated, "员工注册成功", employee)
}

// GetEmployees 获取员工列表
func (h *EmployeeHandler) GetEmployees(c *gin.Context) {
	employees, err := h.employeeLogic.GetEmployees()
	if err != nil {
		ErrorResponse(c, statusCodeFor(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{"employees": employees, "total": len(employees)})
}

// GetEmployeeBalances 获取员工信用余额与影子账本余额
func (h *EmployeeHandler) GetEmployeeBalances(c *gin.Context) {
	id := c.Param("id")

	creditBalance, shadowBalance, err := h.employeeLogic.GetBalances(id)
	if err != nil {
		ErrorResponse(c, statusCodeFor(err), err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{
		"employee_id":    id,
		"credit_balance": creditBalance,
		"shadow_balance": shadowBalance,
	})
}
