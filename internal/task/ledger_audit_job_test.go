package task

import (
	"context"
	"testing"

	"github.com/FrankyKyaw/instapay/internal/config"
	"github.com/FrankyKyaw/instapay/internal/logic"
	"github.com/FrankyKyaw/instapay/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerAuditDetectsDivergence(t *testing.T) {
	db := newJobTestDB(t)
	cfg := &config.Config{}

	consistent := &model.EmployeeModel{
		Id:            uuid.NewString(),
		Name:          "ok",
		WalletAddress: "0x1111111111111111111111111111111111111111",
		CreditBalance: 30,
	}
	require.NoError(t, db.Create(consistent).Error)
	require.NoError(t, db.Create(&model.ShadowAccountModel{Id: consistent.Id, Balance: 30}).Error)

	// 影子账本落后的员工
	broken := &model.EmployeeModel{
		Id:            uuid.NewString(),
		Name:          "broken",
		WalletAddress: "0x2222222222222222222222222222222222222222",
		CreditBalance: 50,
	}
	require.NoError(t, db.Create(broken).Error)
	require.NoError(t, db.Create(&model.ShadowAccountModel{Id: broken.Id, Balance: 20}).Error)

	job := NewLedgerAuditJob(db, cfg)
	divergent, total, err := job.findDivergences()
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, divergent, 1)
	assert.Equal(t, broken.Id, divergent[0].Id)
	assert.Equal(t, 50.0, divergent[0].CreditBalance)
	assert.Equal(t, 20.0, divergent[0].Balance)
}

func TestLedgerAuditCleanAfterAccruals(t *testing.T) {
	db := newJobTestDB(t)
	cfg := &config.Config{}
	settle := logic.NewSettlementLogic(db, &recordingGateway{}, nil, nil)

	employee := &model.EmployeeModel{
		Id:            uuid.NewString(),
		Name:          "saver",
		WalletAddress: "0x3333333333333333333333333333333333333333",
	}
	require.NoError(t, db.Create(employee).Error)
	require.NoError(t, db.Create(&model.ShadowAccountModel{Id: employee.Id}).Error)

	for i := 0; i < 3; i++ {
		task := &model.TaskModel{
			AssignedUser:    employee.Id,
			TaskDescription: "audit target",
			RewardAmount:    10,
			Status:          string(model.TaskStatusPending),
		}
		require.NoError(t, db.Create(task).Error)
		_, err := settle.TransitionTask(context.Background(), task.Id, model.TaskStatusCompleted)
		require.NoError(t, err)
	}

	job := NewLedgerAuditJob(db, cfg)
	divergent, total, err := job.findDivergences()
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Empty(t, divergent)
}
