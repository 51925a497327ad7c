package ledger

import "time"

// Address 宿主账本里经过鉴权的交易发起方地址。
// 空字符串即零地址（例如"无租客"）。
type Address string

// ZeroAddress 零地址。
const ZeroAddress Address = ""

func (a Address) IsZero() bool { return a == ZeroAddress }

// Payment 一笔已经从某个账户里划出、等待入账的资金。
// 入账（Deposit / Credit）即消费掉这个值；不要重复入账同一笔 Payment。
type Payment struct {
	Amount uint64
}

// Clock 单调时间源，由宿主环境提供；测试里用固定时钟。
type Clock interface {
	Now() time.Time
}

// SystemClock 直接读系统时间。
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock 固定时钟（测试用）。
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }
