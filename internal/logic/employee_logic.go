package logic

import (
	"errors"
	"fmt"

	"github.com/FrankyKyaw/instapay/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmployeeLogic 员工业务逻辑
type EmployeeLogic struct {
	db *gorm.DB
}

// NewEmployeeLogic 创建员工业务逻辑
func NewEmployeeLogic(db *gorm.DB) *EmployeeLogic {
	return &EmployeeLogic{db: db}
}

// Register 注册员工：校验钱包地址后，同一事务内创建员工与影子账户
func (e *EmployeeLogic) Register(name, walletAddress string, payItNow bool) (*model.EmployeeModel, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: 缺少员工姓名", ErrInvalidStatus)
	}
	if len(walletAddress) != 42 || !common.IsHexAddress(walletAddress) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWallet, walletAddress)
	}

	employee := &model.EmployeeModel{
		Id:            uuid.NewString(),
		Name:          name,
		WalletAddress: walletAddress,
		PayItNow:      payItNow,
		CreditBalance: 0,
	}

	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(employee).Error; err != nil {
			return err
		}
		shadow := &model.ShadowAccountModel{
			Id:      employee.Id,
			Balance: 0,
		}
		return tx.Create(shadow).Error
	})
	if err != nil {
		return nil, fmt.Errorf("注册员工失败: %w", err)
	}

	return employee, nil
}

// GetEmployees 获取员工列表，按姓名排序
func (e *EmployeeLogic) GetEmployees() ([]model.EmployeeModel, error) {
	var employees []model.EmployeeModel
	if err := e.db.Order("name").Find(&employees).Error; err != nil {
		return nil, fmt.Errorf("获取员工列表失败: %w", err)
	}
	return employees, nil
}

// GetEmployee 获取员工详情
func (e *EmployeeLogic) GetEmployee(id string) (*model.EmployeeModel, error) {
	var employee model.EmployeeModel
	if err := e.db.First(&employee, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("获取员工详情失败: %w", err)
	}
	return &employee, nil
}

// GetBalances 获取员工信用余额与影子账本余额
func (e *EmployeeLogic) GetBalances(id string) (float64, float64, error) {
	employee, err := e.GetEmployee(id)
	if err != nil {
		return 0, 0, err
	}

	var shadow model.ShadowAccountModel
	if err := e.db.First(&shadow, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, ErrShadowAccountNotFound
		}
		return 0, 0, fmt.Errorf("获取影子账户失败: %w", err)
	}

	return employee.CreditBalance, shadow.Balance, nil
}
