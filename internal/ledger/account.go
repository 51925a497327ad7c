package ledger

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account 有余额、有唯一授权地址的实体（Company / Customer / CarCompany 都实现它）。
// 余额是 uint64：负数在类型层面不存在，出账前必须先做金额检查。
type Account interface {
	AccountKey() string       // 流水里的账户标识，如 "company:<id>"
	AuthorizedOwner() Address // 唯一有权动用余额的地址
	BalanceValue() uint64
	SetBalance(uint64)
}

// Deposit 把一笔 Payment 存入账户。只有账户的授权地址可以发起。
// Payment 在这里被消费掉。
func Deposit(tx *gorm.DB, caller Address, acct Account, pay Payment) error {
	const op = "ledger.Deposit"
	if caller != acct.AuthorizedOwner() {
		return Errf(KindNotAuthorized, op, "caller %q is not the owner of %s", caller, acct.AccountKey())
	}
	return credit(tx, acct, pay.Amount, ReasonDeposit)
}

// Withdraw 从账户划出 amount，产出一笔可转移的 Payment（由调用方送达授权地址）。
// 只有账户的授权地址可以发起；余额不足直接失败。
func Withdraw(tx *gorm.DB, caller Address, acct Account, amount uint64) (Payment, error) {
	const op = "ledger.Withdraw"
	if caller != acct.AuthorizedOwner() {
		return Payment{}, Errf(KindNotAuthorized, op, "caller %q is not the owner of %s", caller, acct.AccountKey())
	}
	if err := debit(tx, acct, amount, ReasonWithdraw); err != nil {
		return Payment{}, err
	}
	return Payment{Amount: amount}, nil
}

// Transfer 两个账户之间的内部转账（预订结算用）。
// 两边余额要么都更新、要么都不更新：必须在同一个 gorm 事务里调用。
func Transfer(tx *gorm.DB, from, to Account, amount uint64, reason string) error {
	if err := debit(tx, from, amount, reason); err != nil {
		return err
	}
	return credit(tx, to, amount, reason)
}

// Collect 按既定结算协议从账户划出一笔资金，产出待入账的 Payment。
// 不做 owner 校验：双边授权由协议层完成（见 booking.SettleBooking）。
func Collect(tx *gorm.DB, acct Account, amount uint64, reason string) (Payment, error) {
	if err := debit(tx, acct, amount, reason); err != nil {
		return Payment{}, err
	}
	return Payment{Amount: amount}, nil
}

// Credit 把一笔 Payment 并入账户余额，不要求账户 owner 发起。
// 用于第三方付款入账的场景（市场购买、预订结算的汇入一步）。
func Credit(tx *gorm.DB, acct Account, pay Payment, reason string) error {
	return credit(tx, acct, pay.Amount, reason)
}

func credit(tx *gorm.DB, acct Account, amount uint64, reason string) error {
	acct.SetBalance(acct.BalanceValue() + amount)
	if err := tx.Save(acct).Error; err != nil {
		return err
	}
	return record(tx, acct, DirectionCredit, reason, amount)
}

func debit(tx *gorm.DB, acct Account, amount uint64, reason string) error {
	if amount > acct.BalanceValue() {
		return Errf(KindInsufficientFunds, "ledger.debit",
			"%s balance %d < %d", acct.AccountKey(), acct.BalanceValue(), amount)
	}
	acct.SetBalance(acct.BalanceValue() - amount)
	if err := tx.Save(acct).Error; err != nil {
		return err
	}
	return record(tx, acct, DirectionDebit, reason, amount)
}

func record(tx *gorm.DB, acct Account, direction, reason string, amount uint64) error {
	e := &Entry{
		ID:        uuid.NewString(),
		Account:   acct.AccountKey(),
		Direction: direction,
		Reason:    reason,
		Amount:    amount,
	}
	return tx.Create(e).Error
}
