package ledger

import "time"

// 资金流水方向。
const (
	DirectionCredit = "credit" // 入账
	DirectionDebit  = "debit"  // 出账
)

// 资金流水原因。
const (
	ReasonDeposit  = "deposit"  // 外部充值
	ReasonWithdraw = "withdraw" // 提现到外部地址
	ReasonBooking  = "booking"  // 预订结算
	ReasonPurchase = "purchase" // 市场购买
)

// Entry 是 ledger_entries 表的 GORM 模型：append-only 的资金流水。
// 任何余额变动都要落一条流水，守恒性质
// sum(deposits) == balance + sum(withdrawals) 可以直接从持久化状态核对。
type Entry struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Account   string    `gorm:"index;size:72;not null"` // 账户标识，如 company:<id> / customer:<id>
	Direction string    `gorm:"size:8;not null"`        // credit / debit
	Reason    string    `gorm:"size:16;not null"`
	Amount    uint64    `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Entry) TableName() string { return "ledger_entries" }
