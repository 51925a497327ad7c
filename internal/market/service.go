package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CarRentChain/CarRentChain/internal/event"
	"github.com/CarRentChain/CarRentChain/internal/ledger"
)

// Service 市场挂牌引擎。
// 与预订侧不同，这里的授权是 capability 持有，不比较调用方地址；
// 结算也不同：Purchase 的款项当场汇入公司余额（托管换手协议）。
type Service struct {
	db     *gorm.DB
	events *event.Emitter
}

func NewService(db *gorm.DB, events *event.Emitter) *Service {
	return &Service{db: db, events: events}
}

func (s *Service) tx(ctx context.Context) (*gorm.DB, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.db.WithContext(ctx), nil
}

func getCompany(tx *gorm.DB, id string) (*CarCompany, error) {
	var c CarCompany
	if err := tx.Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.Errf(ledger.KindNotFound, "market.getCompany", "car company %s not found", id)
		}
		return nil, err
	}
	return &c, nil
}

func getListing(tx *gorm.DB, companyID, itemID string) (*Listing, error) {
	var l Listing
	err := tx.Where("company_id = ? AND item_id = ?", companyID, itemID).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.Errf(ledger.KindNotFound, "market.getListing", "no listing for item %s", itemID)
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// NewCompany 创建市场公司，返回绑定它的 capability。
// capability 只在这里产生，之后所有公司侧操作都凭它授权。
func (s *Service) NewCompany(ctx context.Context, caller ledger.Address) (*CarCompany, CarCompanyCap, error) {
	const op = "market.NewCompany"
	db, err := s.tx(ctx)
	if err != nil {
		return nil, CarCompanyCap{}, err
	}
	if caller.IsZero() {
		return nil, CarCompanyCap{}, ledger.Errf(ledger.KindNotAuthorized, op, "caller address is zero")
	}

	c := &CarCompany{
		ID:    uuid.NewString(),
		Owner: string(caller),
	}
	if err := db.Create(c).Error; err != nil {
		return nil, CarCompanyCap{}, err
	}
	return c, CarCompanyCap{companyID: c.ID}, nil
}

// Mint 铸造一辆市场车辆，占用下一个车位编号，归 capability 持有方所有。
func (s *Service) Mint(ctx context.Context, cap CarCompanyCap, companyID, name, category string) (*Car, error) {
	const op = "market.Mint"
	db, err := s.tx(ctx)
	if err != nil {
		return nil, err
	}
	if !cap.Grants(companyID) {
		return nil, ledger.Errf(ledger.KindNotAuthorized, op, "capability does not grant company %s", companyID)
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
		co, err := getCompany(tx, companyID)
		if err != nil {
			return err
		}
		co.Slots++
		if err := tx.Save(co).Error; err != nil {
			return err
		}
		out = &Car{
			ID:        uuid.NewString(),
			CompanyID: co.ID,
			Slot:      co.Slots,
			Name:      name,
			Category:  category,
			Owner:     co.Owner,
		}
		return tx.Create(out).Error
	})
	if err != nil {
		return nil, err
	}

	s.events.Emit(event.Event{
		Type:   event.TypeItemCreated,
		ItemID: out.ID,
		Kind:   out.ListableKind(),
		Fields: carFields(out),
	})
	return out, nil
}

// Update 修改车辆的可变字段（空串表示不改）。挂牌中的车辆在托管里，改不了。
func (s *Service) Update(ctx context.Context, cap CarCompanyCap, companyID, carID, name, category string) (*Car, error) {
	const op = "market.Update"
	db, err := s.tx(ctx)
	if err != nil {
		return nil, err
	}
	if !cap.Grants(companyID) {
		return nil, ledger.Errf(ledger.KindNotAuthorized, op, "capability does not grant company %s", companyID)
	}

	var out *Car
	err = db.Transaction(func(tx *gorm.DB) error {
		var car Car
		err := tx.Where("id = ? AND company_id = ?", carID, companyID).First(&car).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.Errf(ledger.KindNotFound, op, "car %s not found (listed cars are escrowed)", carID)
		}
		if err != nil {
			return err
		}
		if v := strings.TrimSpace(name); v != "" {
			car.Name = v
		}
		if v := strings.TrimSpace(category); v != "" {
			car.Category = v
		}
		if err := tx.Save(&car).Error; err != nil {
			return err
		}
		out = &car
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Emit(event.Event{
		Type:   event.TypeItemUpdated,
		ItemID: out.ID,
		Kind:   out.ListableKind(),
		Fields: carFields(out),
	})
	return out, nil
}

// DeleteCar 销毁一辆未挂牌的车辆。
func (s *Service) DeleteCar(ctx context.Context, cap CarCompanyCap, companyID, carID string) error {
	const op = "market.DeleteCar"
	db, err := s.tx(ctx)
	if err != nil {
		return err
	}
	if !cap.Grants(companyID) {
		return ledger.Errf(ledger.KindNotAuthorized, op, "capability does not grant company %s", companyID)
	}

	var snapshot *Car
	err = db.Transaction(func(tx *gorm.DB) error {
		var car Car
		err := tx.Where("id = ? AND company_id = ?", carID, companyID).First(&car).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.Errf(ledger.KindNotFound, op, "car %s not found", carID)
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(&car).Error; err != nil {
			return err
		}
		snapshot = &car
		return nil
	})
	if err != nil {
		return err
	}

	s.events.Emit(event.Event{
		Type:   event.TypeItemDeleted,
		ItemID: snapshot.ID,
		Kind:   snapshot.ListableKind(),
		Fields: carFields(snapshot),
	})
	return nil
}

// List 挂牌：物品整行进入托管（从自由表删除，快照进挂牌行），记录价格。
// item 必须是指向 GORM 模型的指针。
func (s *Service) List(ctx context.Context, cap CarCompanyCap, companyID string, item Listable, price uint64) (*Listing, error) {
	const op = "market.List"
	db, err := s.tx(ctx)
	if err != nil {
		return nil, err
	}
	if !cap.Grants(companyID) {
		return nil, ledger.Errf(ledger.KindNotAuthorized, op, "capability does not grant company %s", companyID)
	}
	if item == nil || item.ListableID() == "" {
		return nil, ledger.Errf(ledger.KindInvalidInput, op, "item is nil or has no id")
	}

	snapshot, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("marshal item: %w", err)
	}

	var out *Listing
	err = db.Transaction(func(tx *gorm.DB) error {
		co, err := getCompany(tx, companyID)
		if err != nil {
			return err
		}
		if _, err := getListing(tx, companyID, item.ListableID()); err == nil {
			return ledger.Errf(ledger.KindDuplicateEntry, op, "item %s is already listed", item.ListableID())
		} else if !errors.Is(err, ledger.ErrNotFound) {
			return err
		}

		// 物品离开自由空间，进入托管。
		res := tx.Delete(item)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ledger.Errf(ledger.KindNotFound, op, "item %s not found", item.ListableID())
		}

		out = &Listing{
			ID:        uuid.NewString(),
			CompanyID: co.ID,
			ItemID:    item.ListableID(),
			Kind:      item.ListableKind(),
			Price:     price,
			Item:      snapshot,
		}
		if err := tx.Create(out).Error; err != nil {
			return err
		}
		co.Listed++
		return tx.Save(co).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delist 摘牌：挂牌行删除，托管的物品回到调用方名下。
// out 接收重建的物品，必须与挂牌时的类型一致。
func (s *Service) Delist(ctx context.Context, cap CarCompanyCap, caller ledger.Address, companyID, itemID string, out Listable) error {
	const op = "market.Delist"
	db, err := s.tx(ctx)
	if err != nil {
		return err
	}
	if !cap.Grants(companyID) {
		return ledger.Errf(ledger.KindNotAuthorized, op, "capability does not grant company %s", companyID)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		co, err := getCompany(tx, companyID)
		if err != nil {
			return err
		}
		l, err := getListing(tx, companyID, itemID)
		if err != nil {
			return err
		}
		if err := release(tx, l, caller, out); err != nil {
			return err
		}
		if co.Listed > 0 {
			co.Listed--
		}
		return tx.Save(co).Error
	})
}

// Purchase 购买：支付必须与挂牌价完全一致（不是"不少于"）；
// 款项当场汇入公司余额，物品归买方。无需 capability，任何人可调用。
func (s *Service) Purchase(ctx context.Context, caller ledger.Address, companyID, itemID string, pay ledger.Payment, out Listable) error {
	const op = "market.Purchase"
	db, err := s.tx(ctx)
	if err != nil {
		return err
	}
	if caller.IsZero() {
		return ledger.Errf(ledger.KindNotAuthorized, op, "caller address is zero")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		co, err := getCompany(tx, companyID)
		if err != nil {
			return err
		}
		l, err := getListing(tx, companyID, itemID)
		if err != nil {
			return err
		}
		if pay.Amount != l.Price {
			return ledger.Errf(ledger.KindInsufficientFunds, op, "payment %d does not match price %d", pay.Amount, l.Price)
		}
		if err := ledger.Credit(tx, co, pay, ledger.ReasonPurchase); err != nil {
			return err
		}
		if err := release(tx, l, caller, out); err != nil {
			return err
		}
		if co.Listed > 0 {
			co.Listed--
		}
		return tx.Save(co).Error
	})
}

// release 把托管快照重建成物品行并转给 to，同时删掉挂牌行。
// 快照和价格在同一行里，这两步天然同生共死。
func release(tx *gorm.DB, l *Listing, to ledger.Address, out Listable) error {
	const op = "market.release"
	if out == nil {
		return ledger.Errf(ledger.KindInvalidInput, op, "destination item is nil")
	}
	if err := json.Unmarshal(l.Item, out); err != nil {
		return fmt.Errorf("unmarshal escrowed item: %w", err)
	}
	if out.ListableKind() != l.Kind || out.ListableID() != l.ItemID {
		return ledger.Errf(ledger.KindInvalidReference, op, "destination does not match escrowed %s %s", l.Kind, l.ItemID)
	}
	out.TransferTo(to)
	if err := tx.Create(out).Error; err != nil {
		return err
	}
	return tx.Delete(l).Error
}

// Withdraw 市场公司提现（capability 授权），产出一笔送往公司 owner 的 Payment。
func (s *Service) Withdraw(ctx context.Context, cap CarCompanyCap, companyID string, amount uint64) (ledger.Payment, error) {
	const op = "market.Withdraw"
	db, err := s.tx(ctx)
	if err != nil {
		return ledger.Payment{}, err
	}
	if !cap.Grants(companyID) {
		return ledger.Payment{}, ledger.Errf(ledger.KindNotAuthorized, op, "capability does not grant company %s", companyID)
	}

	var pay ledger.Payment
	err = db.Transaction(func(tx *gorm.DB) error {
		co, err := getCompany(tx, companyID)
		if err != nil {
			return err
		}
		pay, err = ledger.Collect(tx, co, amount, ledger.ReasonWithdraw)
		return err
	})
	if err != nil {
		return ledger.Payment{}, err
	}
	return pay, nil
}

func carFields(c *Car) map[string]interface{} {
	return map[string]interface{}{
		"company_id": c.CompanyID,
		"slot":       c.Slot,
		"name":       c.Name,
		"category":   c.Category,
		"owner":      c.Owner,
	}
}
