package repository

import "time"

// CustomerListFilter 查询客户列表的过滤条件
type CustomerListFilter struct {
	Page     int
	PageSize int
	Search   string
	Status   string
	Company  string
}

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page       int
	PageSize   int
	Search     string
	Category   string
	IsActive   *bool
	LowStock   bool
	StockBelow int
}

// PromoListFilter 查询优惠列表的过滤条件
type PromoListFilter struct {
	Page     int
	PageSize int
	Search   string
	Type     string
	IsActive *bool
	ValidAt  *time.Time
}

// CustomerPromoListFilter 查询优惠发放记录的过滤条件
type CustomerPromoListFilter struct {
	Page       int
	PageSize   int
	CustomerID uint
	PromoID    uint
	IsUsed     *bool
}

// PurchaseListFilter 查询购买记录的过滤条件
type PurchaseListFilter struct {
	Page       int
	PageSize   int
	CustomerID uint
	ProductID  uint
	PromoID    uint
	DateFrom   *time.Time
	DateTo     *time.Time
}

// TaskListFilter 查询任务列表的过滤条件
type TaskListFilter struct {
	Page            int
	PageSize        int
	Search          string
	Status          string
	Priority        string
	AssignedAdminID uint
	CustomerID      uint
	DueBefore       *time.Time
}

// TicketListFilter 查询工单列表的过滤条件
type TicketListFilter struct {
	Page            int
	PageSize        int
	Search          string
	Status          string
	Priority        string
	CustomerID      uint
	AssignedAdminID uint
}

// AdminListFilter 查询员工列表的过滤条件
type AdminListFilter struct {
	Page     int
	PageSize int
	Search   string
	Role     string
}
