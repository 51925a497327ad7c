package booking

import "time"

// Record 是 booking_records 表的 GORM 模型：预订完成后的一次性审计记录。
// 创建即冻结，之后不允许更新或删除（本包不提供任何改写入口）。
type Record struct {
	ID           string    `gorm:"primaryKey;size:36"`
	CustomerID   string    `gorm:"index;size:36;not null"`
	CarID        string    `gorm:"index;size:36;not null"`
	CustomerAddr string    `gorm:"size:64;not null"`
	CompanyAddr  string    `gorm:"size:64;not null"`
	PaidFee      uint64    `gorm:"not null"` // 实际支付金额
	RentalFee    uint64    `gorm:"not null"` // memo 上的计价
	BookedAt     time.Time `gorm:"not null"` // 账本时钟给出的预订时间
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (Record) TableName() string { return "booking_records" }
