package company

import (
	"time"

	"github.com/CarRentChain/CarRentChain/internal/ledger"
)

// Company 是 companies 表的 GORM 模型（共享对象：任何人可读，owner 地址可动资金）。
// Owner 创建后不可变。
type Company struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Name      string    `gorm:"size:64;not null"`
	Owner     string    `gorm:"index;size:64;not null"` // 创建后不可变
	Balance   uint64    `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (c *Company) AccountKey() string               { return "company:" + c.ID }
func (c *Company) AuthorizedOwner() ledger.Address  { return ledger.Address(c.Owner) }
func (c *Company) BalanceValue() uint64             { return c.Balance }
func (c *Company) SetBalance(v uint64)              { c.Balance = v }

// Customer 是 customers 表的 GORM 模型（共享对象）。
// 每个 Customer 只挂在一个 Company 下；只有 Owner 地址可以授权花费余额。
type Customer struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Name      string    `gorm:"size:64;not null"`
	Owner     string    `gorm:"index;size:64;not null"`
	CompanyID string    `gorm:"index;size:36;not null"`
	Balance   uint64    `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (c *Customer) AccountKey() string              { return "customer:" + c.ID }
func (c *Customer) AuthorizedOwner() ledger.Address { return ledger.Address(c.Owner) }
func (c *Customer) BalanceValue() uint64            { return c.Balance }
func (c *Customer) SetBalance(v uint64)             { c.Balance = v }

// Car 是 cars 表的 GORM 模型。
// 不变式：Available == false 当且仅当 Renter 非零地址。
// TitleOwner 是法律所有权地址，初始为公司 owner，可在租用中被转移给租客。
type Car struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Name       string    `gorm:"size:64;not null"`
	Category   string    `gorm:"size:32;not null"`
	CompanyID  string    `gorm:"index;size:36;not null"`
	TitleOwner string    `gorm:"size:64;not null"`
	Available  bool      `gorm:"not null;default:true"`
	Renter     string    `gorm:"size:64"` // 空串 = 零地址，无租客
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// CarPrice 公司的 car-id → 价格 映射，每辆车一行。
type CarPrice struct {
	CompanyID string    `gorm:"primaryKey;size:36"`
	CarID     string    `gorm:"primaryKey;size:36"`
	Price     uint64    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// CarMemo 公司为某辆车签发的计价凭据，预订时必须出示。
// 每辆车最多一条（CompanyID+CarID 唯一），创建后不可变。
type CarMemo struct {
	ID        string    `gorm:"primaryKey;size:36"`
	CompanyID string    `gorm:"uniqueIndex:uniq_company_car;size:36;not null"`
	CarID     string    `gorm:"uniqueIndex:uniq_company_car;size:36;not null"`
	Fee       uint64    `gorm:"not null"`
	Issuer    string    `gorm:"size:64;not null"` // 签发时的公司 owner 地址
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
