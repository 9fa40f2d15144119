package logic

import (
	"context"
	"testing"

	"github.com/FrankyKyaw/instapay/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCreatesEmployeeAndShadowAccount(t *testing.T) {
	db := newTestDB(t)
	employeeLogic := NewEmployeeLogic(db)

	employee, err := employeeLogic.Register("alice", "0x1111111111111111111111111111111111111111", true)
	require.NoError(t, err)
	require.NotEmpty(t, employee.Id)
	assert.True(t, employee.PayItNow)
	assert.Zero(t, employee.CreditBalance)

	// 影子账户与员工同一事务创建，ID一致且余额为0
	var shadow model.ShadowAccountModel
	require.NoError(t, db.First(&shadow, "id = ?", employee.Id).Error)
	assert.Zero(t, shadow.Balance)
}

func TestRegisterWalletValidation(t *testing.T) {
	db := newTestDB(t)
	employeeLogic := NewEmployeeLogic(db)

	tests := []struct {
		name   string
		wallet string
	}{
		{"缺少0x前缀", "1111111111111111111111111111111111111111ab"},
		{"长度不足", "0x1234"},
		{"非十六进制字符", "0xzzzz567890abcdef1234567890abcdef12345678"},
		{"空地址", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := employeeLogic.Register("bob", tt.wallet, false)
			require.ErrorIs(t, err, ErrInvalidWallet)
		})
	}

	// 非法注册不留下任何记录
	var count int64
	require.NoError(t, db.Model(&model.EmployeeModel{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRegisterDuplicateWallet(t *testing.T) {
	db := newTestDB(t)
	employeeLogic := NewEmployeeLogic(db)

	wallet := "0x2222222222222222222222222222222222222222"
	_, err := employeeLogic.Register("alice", wallet, false)
	require.NoError(t, err)

	_, err = employeeLogic.Register("alice again", wallet, false)
	require.Error(t, err)

	// 失败的注册不会留下孤立的影子账户
	var employees, shadows int64
	require.NoError(t, db.Model(&model.EmployeeModel{}).Count(&employees).Error)
	require.NoError(t, db.Model(&model.ShadowAccountModel{}).Count(&shadows).Error)
	assert.Equal(t, int64(1), employees)
	assert.Equal(t, int64(1), shadows)
}

func TestGetEmployeesOrderedByName(t *testing.T) {
	db := newTestDB(t)
	employeeLogic := NewEmployeeLogic(db)

	_, err := employeeLogic.Register("carol", "0x3333333333333333333333333333333333333333", false)
	require.NoError(t, err)
	_, err = employeeLogic.Register("alice", "0x4444444444444444444444444444444444444444", true)
	require.NoError(t, err)

	employees, err := employeeLogic.GetEmployees()
	require.NoError(t, err)
	require.Len(t, employees, 2)
	assert.Equal(t, "alice", employees[0].Name)
	assert.Equal(t, "carol", employees[1].Name)
}

func TestGetBalances(t *testing.T) {
	db := newTestDB(t)
	employeeLogic := NewEmployeeLogic(db)
	settle := NewSettlementLogic(db, &fakeGateway{}, nil, nil)

	employee, err := employeeLogic.Register("dave", "0x5555555555555555555555555555555555555555", false)
	require.NoError(t, err)

	task := seedTask(t, db, employee.Id, 42)
	_, err = settle.TransitionTask(context.Background(), task.Id, model.TaskStatusCompleted)
	require.NoError(t, err)

	credit, shadow, err := employeeLogic.GetBalances(employee.Id)
	require.NoError(t, err)
	assert.Equal(t, 42.0, credit)
	assert.Equal(t, 42.0, shadow)

	_, _, err = employeeLogic.GetBalances("nobody")
	require.ErrorIs(t, err, ErrEmployeeNotFound)
}
