package company

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CarRentChain/CarRentChain/internal/ledger"
)

// Service 封装公司注册 / 车辆目录的入口操作（不依赖传输层）。
// 每个入口操作都是一个独立事务：先做完全部前置校验，再写库，
// 任何一步失败整个事务回滚。
type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

func (s *Service) tx(ctx context.Context) (*gorm.DB, error) {
	if s == nil || s.repo == nil || s.repo.DB() == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.DB().WithContext(ctx), nil
}

// CreateCompany 创建一个共享 Company：余额为零，价格/凭据表为空，owner 即调用方。
func (s *Service) CreateCompany(ctx context.Context, caller ledger.Address, name string) (*Company, error) {
	const op = "company.CreateCompany"
	db, err := s.tx(ctx)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ledger.Errf(ledger.KindInvalidInput, op, "name is empty")
	}
	if caller.IsZero() {
		return nil, ledger.Errf(ledger.KindNotAuthorized, op, "caller address is zero")
	}

	c := &Company{
		ID:    uuid.NewString(),
		Name:  name,
		Owner: string(caller),
	}
	if err := db.Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// CreateCustomer 创建一个共享 Customer，挂在指定 Company 下，owner 即调用方。
func (s *Service) CreateCustomer(ctx context.Context, caller ledger.Address, name, companyID string) (*Customer, error) {
	const op = "company.CreateCustomer"
	db, err := s.tx(ctx)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ledger.Errf(ledger.KindInvalidInput, op, "name is empty")
	}
	if caller.IsZero() {
		return nil, ledger.Errf(ledger.KindNotAuthorized, op, "caller address is zero")
	}

	var out *Customer
	err = db.Transaction(func(tx *gorm.DB) error {
		co, err := GetCompany(tx, companyID)
		if err != nil {
			return err
		}
		out = &Customer{
			ID:        uuid.NewString(),
			Name:      name,
			Owner:     string(caller),
			CompanyID: co.ID,
		}
		return tx.Create(out).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCar 公司铸造一辆新车：可用、无租客，法律所有权归公司 owner。
// 只有公司 owner 可以调用。
func (s *Service) CreateCar(ctx context.Context, caller ledger.Address, companyID, name, category string) (*Car, error) {
	const op = "company.CreateCar"
	db, err := s.tx(ctx)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	category = strings.TrimSpace(category)
	if name == "" {
		return nil, ledger.Errf(ledger.KindInvalidInput, op, "name is empty")
	}
	if category == "" {
		return nil, ledger.Errf(ledger.KindInvalidInput, op, "category is empty")
	}

	var out *Car
	err = db.Transaction(func(tx *gorm.DB) error {
		co, err := GetCompany(tx, companyID)
		if err != nil {
			return err
		}
		if caller != co.AuthorizedOwner() {
			return ledger.Errf(ledger.KindNotAuthorized, op, "caller %q is not the company owner", caller)
		}
		out = &Car{
			ID:         uuid.NewString(),
			Name:       name,
			Category:   category,
			CompanyID:  co.ID,
			TitleOwner: co.Owner,
			Available:  true,
		}
		return tx.Create(out).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetCarPrice 维护公司的 car-id → 价格 映射（覆盖写）。只有公司 owner 可以调用。
func (s *Service) SetCarPrice(ctx context.Context, caller ledger.Address, companyID, carID string, price uint64) error {
	const op = "company.SetCarPrice"
	db, err := s.tx(ctx)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		co, err := GetCompany(tx, companyID)
		if err != nil {
			return err
		}
		if caller != co.AuthorizedOwner() {
			return ledger.Errf(ledger.KindNotAuthorized, op, "caller %q is not the company owner", caller)
		}
		car, err := GetCar(tx, carID)
		if err != nil {
			return err
		}
		if car.CompanyID != co.ID {
			return ledger.Errf(ledger.KindInvalidReference, op, "car %s does not belong to company %s", carID, companyID)
		}
		return tx.Save(&CarPrice{CompanyID: co.ID, CarID: car.ID, Price: price}).Error
	})
}

// CreateCarMemo 公司为一辆车签发计价凭据。
// 表插入语义：同一辆车重复签发是错误（DuplicateEntry），不是覆盖。
func (s *Service) CreateCarMemo(ctx context.Context, caller ledger.Address, companyID, carID string, fee uint64) (*CarMemo, error) {
	const op = "company.CreateCarMemo"
	db, err := s.tx(ctx)
	if err != nil {
		return nil, err
	}

	var out *CarMemo
	err = db.Transaction(func(tx *gorm.DB) error {
		co, err := GetCompany(tx, companyID)
		if err != nil {
			return err
		}
		if caller != co.AuthorizedOwner() {
			return ledger.Errf(ledger.KindNotAuthorized, op, "caller %q is not the company owner", caller)
		}
		car, err := GetCar(tx, carID)
		if err != nil {
			return err
		}
		if car.CompanyID != co.ID {
			return ledger.Errf(ledger.KindInvalidReference, op, "car %s does not belong to company %s", carID, companyID)
		}
		if _, err := GetMemoByCar(tx, co.ID, car.ID); err == nil {
			return ledger.Errf(ledger.KindDuplicateEntry, op, "memo already exists for car %s", carID)
		} else if !errors.Is(err, ledger.ErrNotFound) {
			return err
		}
		out = &CarMemo{
			ID:        uuid.NewString(),
			CompanyID: co.ID,
			CarID:     car.ID,
			Fee:       fee,
			Issuer:    co.Owner,
		}
		return tx.Create(out).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WithdrawFunds 公司 owner 把余额提现到自己的外部地址，产出一笔 Payment。
func (s *Service) WithdrawFunds(ctx context.Context, caller ledger.Address, companyID string, amount uint64) (ledger.Payment, error) {
	db, err := s.tx(ctx)
	if err != nil {
		return ledger.Payment{}, err
	}

	var pay ledger.Payment
	err = db.Transaction(func(tx *gorm.DB) error {
		co, err := GetCompany(tx, companyID)
		if err != nil {
			return err
		}
		pay, err = ledger.Withdraw(tx, caller, co, amount)
		return err
	})
	if err != nil {
		return ledger.Payment{}, err
	}
	return pay, nil
}

// DepositCompany 公司 owner 把一笔外部 Payment 存入公司余额。
func (s *Service) DepositCompany(ctx context.Context, caller ledger.Address, companyID string, pay ledger.Payment) error {
	db, err := s.tx(ctx)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		co, err := GetCompany(tx, companyID)
		if err != nil {
			return err
		}
		return ledger.Deposit(tx, caller, co, pay)
	})
}

// TopUpCustomer 客户给自己的余额充值（外部铸币边界，只有客户本人地址可以发起）。
func (s *Service) TopUpCustomer(ctx context.Context, caller ledger.Address, customerID string, amount uint64) error {
	db, err := s.tx(ctx)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		cu, err := GetCustomer(tx, customerID)
		if err != nil {
			return err
		}
		return ledger.Deposit(tx, caller, cu, ledger.Payment{Amount: amount})
	})
}
