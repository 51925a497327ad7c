package market

import (
	"time"

	"gorm.io/datatypes"

	"github.com/CarRentChain/CarRentChain/internal/ledger"
)

// CarCompany 是 market_companies 表的 GORM 模型（市场侧的公司对象）。
// 授权走 capability（CarCompanyCap），不比较调用方地址。
// Slots 是单调递增的车位计数器（铸造用），Listed 是当前挂牌数。
type CarCompany struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Owner     string    `gorm:"index;size:64;not null"`
	Balance   uint64    `gorm:"not null;default:0"`
	Slots     uint64    `gorm:"not null;default:0"`
	Listed    uint64    `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (CarCompany) TableName() string { return "market_companies" }

func (c *CarCompany) AccountKey() string              { return "carcompany:" + c.ID }
func (c *CarCompany) AuthorizedOwner() ledger.Address { return ledger.Address(c.Owner) }
func (c *CarCompany) BalanceValue() uint64            { return c.Balance }
func (c *CarCompany) SetBalance(v uint64)             { c.Balance = v }

// CarCompanyCap 绑定到一个 CarCompany 的 capability：持有即授权。
// 绑定 id 不导出，包外拿不到构造途径，只能通过 NewCompany 获得。
type CarCompanyCap struct {
	companyID string
}

// Grants 判断该 capability 是否授权操作指定公司。
func (c CarCompanyCap) Grants(companyID string) bool {
	return c.companyID != "" && c.companyID == companyID
}

// Listable 可挂牌物品：有全局唯一 id、有类型标签、所有权可转移。
// 实现方必须同时是可持久化的 GORM 模型（挂牌/摘牌时整行进出托管）。
type Listable interface {
	ListableID() string
	ListableKind() string
	TransferTo(owner ledger.Address)
}

// Car 是 market_cars 表的 GORM 模型：市场侧的车辆物品。
type Car struct {
	ID        string    `gorm:"primaryKey;size:36"`
	CompanyID string    `gorm:"index;size:36;not null"`
	Slot      uint64    `gorm:"not null"` // 公司内编号，由 Slots 计数器分配
	Name      string    `gorm:"size:64;not null"`
	Category  string    `gorm:"size:32;not null"`
	Owner     string    `gorm:"index;size:64;not null"` // 当前持有地址
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Car) TableName() string { return "market_cars" }

func (c *Car) ListableID() string   { return c.ID }
func (c *Car) ListableKind() string { return "market_car" }

func (c *Car) TransferTo(owner ledger.Address) { c.Owner = string(owner) }

// Listing 是 market_listings 表的 GORM 模型：一条挂牌。
// 价格和被托管物品的整行快照放在同一行里，"价格与物品要么同在、
// 要么同删"由结构本身保证，不需要额外检查。
type Listing struct {
	ID        string         `gorm:"primaryKey;size:36"`
	CompanyID string         `gorm:"index;size:36;not null"`
	ItemID    string         `gorm:"uniqueIndex;size:36;not null"`
	Kind      string         `gorm:"size:32;not null"`
	Price     uint64         `gorm:"not null"`
	Item      datatypes.JSON `gorm:"not null"` // 托管物品快照
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

func (Listing) TableName() string { return "market_listings" }
