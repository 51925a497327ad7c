package ledger

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testAccount 测试用的最小账户模型。
type testAccount struct {
	ID      string `gorm:"primaryKey;size:36"`
	Owner   string `gorm:"size:64"`
	Balance uint64 `gorm:"not null;default:0"`
}

func (a *testAccount) AccountKey() string       { return "test:" + a.ID }
func (a *testAccount) AuthorizedOwner() Address { return Address(a.Owner) }
func (a *testAccount) BalanceValue() uint64     { return a.Balance }
func (a *testAccount) SetBalance(v uint64)      { a.Balance = v }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Entry{}, &testAccount{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestDepositWithdrawConservation(t *testing.T) {
	db := newTestDB(t)

	acct := &testAccount{ID: "a-1", Owner: "0xOWNER"}
	if err := db.Create(acct).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}

	if err := Deposit(db, "0xOWNER", acct, Payment{Amount: 100}); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if err := Deposit(db, "0xOWNER", acct, Payment{Amount: 50}); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	pay, err := Withdraw(db, "0xOWNER", acct, 30)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if pay.Amount != 30 {
		t.Fatalf("expected payment 30, got %d", pay.Amount)
	}
	if acct.Balance != 120 {
		t.Fatalf("expected balance 120, got %d", acct.Balance)
	}

	// 守恒：sum(deposits) == balance + sum(withdrawals)
	var deposits, withdrawals uint64
	var entries []Entry
	if err := db.Where("account = ?", acct.AccountKey()).Find(&entries).Error; err != nil {
		t.Fatalf("load entries: %v", err)
	}
	for _, e := range entries {
		switch e.Direction {
		case DirectionCredit:
			deposits += e.Amount
		case DirectionDebit:
			withdrawals += e.Amount
		}
	}
	if deposits != acct.Balance+withdrawals {
		t.Fatalf("conservation violated: deposits=%d balance=%d withdrawals=%d", deposits, acct.Balance, withdrawals)
	}
}

func TestDepositNotAuthorized(t *testing.T) {
	db := newTestDB(t)

	acct := &testAccount{ID: "a-1", Owner: "0xOWNER"}
	if err := db.Create(acct).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}

	err := Deposit(db, "0xSOMEONE", acct, Payment{Amount: 10})
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected NotAuthorized, got %v", err)
	}
	if _, err := Withdraw(db, "0xSOMEONE", acct, 1); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected NotAuthorized, got %v", err)
	}
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	db := newTestDB(t)

	acct := &testAccount{ID: "a-1", Owner: "0xOWNER", Balance: 20}
	if err := db.Create(acct).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}

	_, err := Withdraw(db, "0xOWNER", acct, 21)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected InsufficientFunds, got %v", err)
	}
	if acct.Balance != 20 {
		t.Fatalf("balance changed on failed withdraw: %d", acct.Balance)
	}
}

func TestTransferBothOrNeither(t *testing.T) {
	db := newTestDB(t)

	from := &testAccount{ID: "a-1", Owner: "0xA", Balance: 40}
	to := &testAccount{ID: "a-2", Owner: "0xB"}
	if err := db.Create(from).Error; err != nil {
		t.Fatalf("create from: %v", err)
	}
	if err := db.Create(to).Error; err != nil {
		t.Fatalf("create to: %v", err)
	}

	if err := Transfer(db, from, to, 25, ReasonBooking); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if from.Balance != 15 || to.Balance != 25 {
		t.Fatalf("unexpected balances: %d / %d", from.Balance, to.Balance)
	}

	err := Transfer(db, from, to, 16, ReasonBooking)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected InsufficientFunds, got %v", err)
	}
	if from.Balance != 15 || to.Balance != 25 {
		t.Fatalf("failed transfer mutated balances: %d / %d", from.Balance, to.Balance)
	}
}
