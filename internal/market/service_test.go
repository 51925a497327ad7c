package market

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/CarRentChain/CarRentChain/internal/event"
	"github.com/CarRentChain/CarRentChain/internal/ledger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *event.MemorySink) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&ledger.Entry{}, &CarCompany{}, &Car{}, &Listing{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sink := &event.MemorySink{}
	return NewService(db, event.NewEmitter(sink, nil)), db, sink
}

func setup(t *testing.T, svc *Service) (*CarCompany, CarCompanyCap, *Car) {
	t.Helper()
	ctx := context.Background()
	co, cap, err := svc.NewCompany(ctx, "0xDEALER")
	if err != nil {
		t.Fatalf("NewCompany: %v", err)
	}
	car, err := svc.Mint(ctx, cap, co.ID, "Roadster", "sports")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	return co, cap, car
}

func TestMintAssignsSlots(t *testing.T) {
	svc, db, sink := newTestService(t)
	ctx := context.Background()
	co, cap, car := setup(t, svc)

	if car.Slot != 1 || car.Owner != "0xDEALER" {
		t.Fatalf("unexpected car: %+v", car)
	}
	second, err := svc.Mint(ctx, cap, co.ID, "Hatch", "compact")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if second.Slot != 2 {
		t.Fatalf("expected slot 2, got %d", second.Slot)
	}

	var got CarCompany
	if err := db.Where("id = ?", co.ID).First(&got).Error; err != nil {
		t.Fatalf("reload company: %v", err)
	}
	if got.Slots != 2 {
		t.Fatalf("expected slots counter 2, got %d", got.Slots)
	}

	events := sink.Events()
	if len(events) != 2 || events[0].Type != event.TypeItemCreated {
		t.Fatalf("expected 2 item_created events, got %#v", events)
	}
}

func TestCapabilityGating(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	co, _, car := setup(t, svc)

	// 另一家公司的 capability 动不了这家公司
	_, otherCap, err := svc.NewCompany(ctx, "0xOTHER")
	if err != nil {
		t.Fatalf("NewCompany: %v", err)
	}

	if _, err := svc.Mint(ctx, otherCap, co.ID, "X", "y"); !errors.Is(err, ledger.ErrNotAuthorized) {
		t.Fatalf("expected NotAuthorized, got %v", err)
	}
	if _, err := svc.List(ctx, otherCap, co.ID, car, 100); !errors.Is(err, ledger.ErrNotAuthorized) {
		t.Fatalf("expected NotAuthorized, got %v", err)
	}
	if err := svc.Delist(ctx, otherCap, "0xOTHER", co.ID, car.ID, &Car{}); !errors.Is(err, ledger.ErrNotAuthorized) {
		t.Fatalf("expected NotAuthorized, got %v", err)
	}
	if _, err := svc.Withdraw(ctx, otherCap, co.ID, 1); !errors.Is(err, ledger.ErrNotAuthorized) {
		t.Fatalf("expected NotAuthorized, got %v", err)
	}

	// 零值 capability 什么都不授权
	var zero CarCompanyCap
	if _, err := svc.Mint(ctx, zero, co.ID, "X", "y"); !errors.Is(err, ledger.ErrNotAuthorized) {
		t.Fatalf("expected NotAuthorized for zero cap, got %v", err)
	}
}

func TestListEscrowsItem(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	co, cap, car := setup(t, svc)

	l, err := svc.List(ctx, cap, co.ID, car, 500)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if l.Price != 500 || l.ItemID != car.ID {
		t.Fatalf("unexpected listing: %+v", l)
	}

	// 物品离开自由表，进入托管：价格与物品在同一行
	var carCount, listingCount int64
	if err := db.Model(&Car{}).Where("id = ?", car.ID).Count(&carCount).Error; err != nil {
		t.Fatalf("count cars: %v", err)
	}
	if err := db.Model(&Listing{}).Where("item_id = ?", car.ID).Count(&listingCount).Error; err != nil {
		t.Fatalf("count listings: %v", err)
	}
	if carCount != 0 || listingCount != 1 {
		t.Fatalf("escrow broken: cars=%d listings=%d", carCount, listingCount)
	}

	// 挂牌中的车改不了
	if _, err := svc.Update(ctx, cap, co.ID, car.ID, "New Name", ""); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected NotFound for listed car, got %v", err)
	}
}

func TestDelistRoundTrip(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	co, cap, car := setup(t, svc)

	if _, err := svc.List(ctx, cap, co.ID, car, 500); err != nil {
		t.Fatalf("List: %v", err)
	}

	var back Car
	if err := svc.Delist(ctx, cap, "0xDEALER", co.ID, car.ID, &back); err != nil {
		t.Fatalf("Delist: %v", err)
	}
	// 回来的物品和挂出去的一致
	if back.ID != car.ID || back.Name != car.Name || back.Category != car.Category || back.Slot != car.Slot {
		t.Fatalf("round trip mismatch: %+v vs %+v", back, car)
	}
	if back.Owner != "0xDEALER" {
		t.Fatalf("expected owner 0xDEALER, got %q", back.Owner)
	}

	// 挂牌行和价格一起消失，物品行回来
	var carCount, listingCount int64
	db.Model(&Car{}).Where("id = ?", car.ID).Count(&carCount)
	db.Model(&Listing{}).Where("item_id = ?", car.ID).Count(&listingCount)
	if carCount != 1 || listingCount != 0 {
		t.Fatalf("remove-together broken: cars=%d listings=%d", carCount, listingCount)
	}

	// 没有挂牌时摘牌报 NotFound
	if err := svc.Delist(ctx, cap, "0xDEALER", co.ID, car.ID, &Car{}); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestPurchaseExactPrice(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	co, cap, car := setup(t, svc)

	if _, err := svc.List(ctx, cap, co.ID, car, 500); err != nil {
		t.Fatalf("List: %v", err)
	}

	// 多给和少给都不行：必须严格等于挂牌价
	var out Car
	err := svc.Purchase(ctx, "0xBUYER", co.ID, car.ID, ledger.Payment{Amount: 499}, &out)
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected InsufficientFunds for 499, got %v", err)
	}
	err = svc.Purchase(ctx, "0xBUYER", co.ID, car.ID, ledger.Payment{Amount: 501}, &out)
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected InsufficientFunds for 501, got %v", err)
	}

	// 失败的购买不会动任何状态
	var listingCount int64
	db.Model(&Listing{}).Where("item_id = ?", car.ID).Count(&listingCount)
	if listingCount != 1 {
		t.Fatalf("failed purchase mutated listing")
	}

	if err := svc.Purchase(ctx, "0xBUYER", co.ID, car.ID, ledger.Payment{Amount: 500}, &out); err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if out.Owner != "0xBUYER" {
		t.Fatalf("expected owner 0xBUYER, got %q", out.Owner)
	}

	var got CarCompany
	if err := db.Where("id = ?", co.ID).First(&got).Error; err != nil {
		t.Fatalf("reload company: %v", err)
	}
	if got.Balance != 500 {
		t.Fatalf("expected company balance 500, got %d", got.Balance)
	}
	if got.Listed != 0 {
		t.Fatalf("expected listed counter 0, got %d", got.Listed)
	}

	var carCount int64
	db.Model(&Car{}).Where("id = ?", car.ID).Count(&carCount)
	db.Model(&Listing{}).Where("item_id = ?", car.ID).Count(&listingCount)
	if carCount != 1 || listingCount != 0 {
		t.Fatalf("remove-together broken after purchase: cars=%d listings=%d", carCount, listingCount)
	}
}

func TestUpdateAndDeleteCar(t *testing.T) {
	svc, db, sink := newTestService(t)
	ctx := context.Background()
	co, cap, car := setup(t, svc)

	updated, err := svc.Update(ctx, cap, co.ID, car.ID, "Roadster MkII", "")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Roadster MkII" || updated.Category != "sports" {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	if err := svc.DeleteCar(ctx, cap, co.ID, car.ID); err != nil {
		t.Fatalf("DeleteCar: %v", err)
	}
	var count int64
	db.Model(&Car{}).Where("id = ?", car.ID).Count(&count)
	if count != 0 {
		t.Fatalf("car not deleted")
	}
	if err := svc.DeleteCar(ctx, cap, co.ID, car.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}

	// created + updated + deleted 三个事件
	events := sink.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[1].Type != event.TypeItemUpdated || events[2].Type != event.TypeItemDeleted {
		t.Fatalf("unexpected event order: %#v", events)
	}
	if events[1].Fields["name"] != "Roadster MkII" {
		t.Fatalf("expected updated snapshot, got %#v", events[1].Fields)
	}
}

func TestWithdraw(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	co, cap, car := setup(t, svc)

	if _, err := svc.List(ctx, cap, co.ID, car, 500); err != nil {
		t.Fatalf("List: %v", err)
	}
	var out Car
	if err := svc.Purchase(ctx, "0xBUYER", co.ID, car.ID, ledger.Payment{Amount: 500}, &out); err != nil {
		t.Fatalf("Purchase: %v", err)
	}

	if _, err := svc.Withdraw(ctx, cap, co.ID, 501); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected InsufficientFunds, got %v", err)
	}
	pay, err := svc.Withdraw(ctx, cap, co.ID, 200)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if pay.Amount != 200 {
		t.Fatalf("expected payment 200, got %d", pay.Amount)
	}

	var got CarCompany
	if err := db.Where("id = ?", co.ID).First(&got).Error; err != nil {
		t.Fatalf("reload company: %v", err)
	}
	if got.Balance != 300 {
		t.Fatalf("expected balance 300, got %d", got.Balance)
	}
}
