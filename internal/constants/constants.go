package constants

// 员工与客户角色常量
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleCustomer   = "customer"
)

// 客户状态常量
const (
	CustomerStatusActive   = "active"
	CustomerStatusInactive = "inactive"
)

// 优惠类型常量
const (
	PromoTypePercentage  = "percentage"
	PromoTypeFixedAmount = "fixed_amount"
)

// 任务状态常量
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusCanceled   = "canceled"
)

// 优先级常量（任务与工单共用）
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// 工单状态常量
const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in_progress"
	TicketStatusResolved   = "resolved"
	TicketStatusClosed     = "closed"
)

// 工单消息发送方常量
const (
	SenderTypeAdmin    = "admin"
	SenderTypeCustomer = "customer"
)

// 库存预警阈值
const LowStockThreshold = 5

// 分析接口默认时间范围与榜单数量
const (
	AnalyticsDefaultDays  = 30
	AnalyticsMaxDays      = 366
	AnalyticsDefaultLimit = 10
	AnalyticsMaxLimit     = 100
)

// 异步队列常量
const (
	QueueDefault       = "default"
	QueueNotifications = "notifications"

	TaskPurchaseReceipt   = "purchase:receipt"
	TaskTicketReplyNotify = "ticket:reply_notify"
)
