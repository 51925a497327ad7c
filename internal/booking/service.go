package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CarRentChain/CarRentChain/internal/company"
	"github.com/CarRentChain/CarRentChain/internal/ledger"
)

// Service 封装预订生命周期的入口操作。
//
// 结算协议（见 DESIGN.md）：BookCar 由公司 owner 授权，负责状态流转和
// 从客户余额划款，并把收到的 Payment 交还调用方；SettleBooking 是客户
// 发起的外层入口，在同一个事务里调用 BookCar 核心逻辑并把款项汇入公司
// 余额。两步分开是因为扣客户的钱和给公司入账需要对侧各自授权。
type Service struct {
	repo  *Repo
	clock ledger.Clock
}

func NewService(repo *Repo, clock ledger.Clock) *Service {
	if clock == nil {
		clock = ledger.SystemClock{}
	}
	return &Service{repo: repo, clock: clock}
}

func (s *Service) tx(ctx context.Context) (*gorm.DB, error) {
	if s == nil || s.repo == nil || s.repo.DB() == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.DB().WithContext(ctx), nil
}

// BookCar 预订一辆车（公司 owner 调用）。
// 成功后：冻结一条 Record、扣掉客户余额里的租金、车辆转入 Booked 并记录
// 租客地址；返回收到的 Payment，由调用方负责给公司入账（见 SettleBooking）。
func (s *Service) BookCar(ctx context.Context, caller ledger.Address, companyID, customerID, carID, memoID string) (*Record, ledger.Payment, error) {
	db, err := s.tx(ctx)
	if err != nil {
		return nil, ledger.Payment{}, err
	}

	var (
		rec *Record
		pay ledger.Payment
	)
	err = db.Transaction(func(tx *gorm.DB) error {
		rec, pay, err = s.bookCarTx(tx, caller, companyID, customerID, carID, memoID)
		return err
	})
	if err != nil {
		return nil, ledger.Payment{}, err
	}
	return rec, pay, nil
}

// SettleBooking 客户发起的预订结算入口（对应两步协议的外层）。
// 校验调用方是客户本人后，以公司 owner 的身份执行 BookCar 核心逻辑，
// 并在同一个事务里把款项汇入公司余额。
func (s *Service) SettleBooking(ctx context.Context, caller ledger.Address, companyID, customerID, carID, memoID string) (*Record, error) {
	const op = "booking.SettleBooking"
	db, err := s.tx(ctx)
	if err != nil {
		return nil, err
	}

	var rec *Record
	err = db.Transaction(func(tx *gorm.DB) error {
		cu, err := company.GetCustomer(tx, customerID)
		if err != nil {
			return err
		}
		if caller != cu.AuthorizedOwner() {
			return ledger.Errf(ledger.KindNotAuthorized, op, "caller %q is not the customer owner", caller)
		}
		co, err := company.GetCompany(tx, companyID)
		if err != nil {
			return err
		}

		var pay ledger.Payment
		rec, pay, err = s.bookCarTx(tx, co.AuthorizedOwner(), companyID, customerID, carID, memoID)
		if err != nil {
			return err
		}
		return ledger.Credit(tx, co, pay, ledger.ReasonBooking)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// bookCarTx 预订核心逻辑。所有校验先于任何写入。
func (s *Service) bookCarTx(tx *gorm.DB, actor ledger.Address, companyID, customerID, carID, memoID string) (*Record, ledger.Payment, error) {
	const op = "booking.BookCar"

	co, err := company.GetCompany(tx, companyID)
	if err != nil {
		return nil, ledger.Payment{}, err
	}
	if actor != co.AuthorizedOwner() {
		return nil, ledger.Payment{}, ledger.Errf(ledger.KindNotAuthorized, op, "caller %q is not the company owner", actor)
	}

	cu, err := company.GetCustomer(tx, customerID)
	if err != nil {
		return nil, ledger.Payment{}, err
	}
	if cu.CompanyID != co.ID {
		return nil, ledger.Payment{}, ledger.Errf(ledger.KindInvalidReference, op, "customer %s does not belong to company %s", customerID, companyID)
	}

	car, err := company.GetCar(tx, carID)
	if err != nil {
		return nil, ledger.Payment{}, err
	}
	if car.CompanyID != co.ID {
		return nil, ledger.Payment{}, ledger.Errf(ledger.KindInvalidReference, op, "car %s does not belong to company %s", carID, companyID)
	}
	if StatusOf(car) != StatusAvailable {
		return nil, ledger.Payment{}, ledger.Errf(ledger.KindInvalidState, op, "car %s is already booked", carID)
	}

	memo, err := company.GetMemo(tx, memoID)
	if err != nil {
		return nil, ledger.Payment{}, err
	}
	if memo.CarID != car.ID || memo.CompanyID != co.ID {
		return nil, ledger.Payment{}, ledger.Errf(ledger.KindInvalidReference, op, "memo %s does not reference car %s", memoID, carID)
	}

	// 校验全部通过，开始写入。
	pay, err := ledger.Collect(tx, cu, memo.Fee, ledger.ReasonBooking)
	if err != nil {
		return nil, ledger.Payment{}, err
	}

	rec := &Record{
		ID:           uuid.NewString(),
		CustomerID:   cu.ID,
		CarID:        car.ID,
		CustomerAddr: cu.Owner,
		CompanyAddr:  co.Owner,
		PaidFee:      pay.Amount,
		RentalFee:    memo.Fee,
		BookedAt:     s.clock.Now(),
	}
	if err := tx.Create(rec).Error; err != nil {
		return nil, ledger.Payment{}, err
	}

	if err := Apply(car, StatusBooked, cu.AuthorizedOwner()); err != nil {
		return nil, ledger.Payment{}, err
	}
	if err := tx.Save(car).Error; err != nil {
		return nil, ledger.Payment{}, err
	}
	return rec, pay, nil
}

// TransferCarOwnership 租用中的客户把车辆的法律所有权转到自己名下。
// 只能在 Booked 状态、且调用方就是当前租客时发生。
func (s *Service) TransferCarOwnership(ctx context.Context, caller ledger.Address, carID string) (*company.Car, error) {
	const op = "booking.TransferCarOwnership"
	db, err := s.tx(ctx)
	if err != nil {
		return nil, err
	}

	var out *company.Car
	err = db.Transaction(func(tx *gorm.DB) error {
		car, err := company.GetCar(tx, carID)
		if err != nil {
			return err
		}
		if StatusOf(car) != StatusBooked {
			return ledger.Errf(ledger.KindInvalidState, op, "car %s is not booked", carID)
		}
		if string(caller) != car.Renter {
			return ledger.Errf(ledger.KindNotAuthorized, op, "caller %q is not the current renter", caller)
		}
		car.TitleOwner = string(caller)
		if err := tx.Save(car).Error; err != nil {
			return err
		}
		out = car
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReturnCar 公司 owner 收车：车辆回到 Available，租客清零。
func (s *Service) ReturnCar(ctx context.Context, caller ledger.Address, companyID, customerID, carID string) (*company.Car, error) {
	const op = "booking.ReturnCar"
	db, err := s.tx(ctx)
	if err != nil {
		return nil, err
	}

	var out *company.Car
	err = db.Transaction(func(tx *gorm.DB) error {
		co, err := company.GetCompany(tx, companyID)
		if err != nil {
			return err
		}
		if caller != co.AuthorizedOwner() {
			return ledger.Errf(ledger.KindNotAuthorized, op, "caller %q is not the company owner", caller)
		}
		cu, err := company.GetCustomer(tx, customerID)
		if err != nil {
			return err
		}
		car, err := company.GetCar(tx, carID)
		if err != nil {
			return err
		}
		if car.CompanyID != co.ID {
			return ledger.Errf(ledger.KindInvalidReference, op, "car %s does not belong to company %s", carID, companyID)
		}
		if StatusOf(car) != StatusBooked || car.Renter != cu.Owner {
			return ledger.Errf(ledger.KindInvalidState, op, "customer %s is not the current renter of car %s", customerID, carID)
		}
		if err := Apply(car, StatusAvailable, ledger.ZeroAddress); err != nil {
			return err
		}
		if err := tx.Save(car).Error; err != nil {
			return err
		}
		out = car
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
