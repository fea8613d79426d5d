package models

// MilestoneStatus константы статусов этапов
const (
	MilestoneStatusPending           = "pending"
	MilestoneStatusFunded            = "funded"
	MilestoneStatusInProgress        = "in_progress"
	MilestoneStatusSubmitted         = "submitted"
	MilestoneStatusApproved          = "approved"
	MilestoneStatusRevisionRequested = "revision_requested"
	MilestoneStatusCompleted         = "completed"
)

// ProjectStatus константы статусов проектов
const (
	ProjectStatusOpenForBids       = "open_for_bids"
	ProjectStatusPendingAcceptance = "pending_acceptance"
	ProjectStatusInProgress        = "in_progress"
	ProjectStatusCompleted         = "completed"
	ProjectStatusCancelled         = "cancelled"
)

// PaymentStatus константы статусов платежей
const (
	PaymentStatusPending   = "pending"
	PaymentStatusHeld      = "held"
	PaymentStatusCompleted = "completed"
	PaymentStatusReleased  = "released"
	PaymentStatusFailed    = "failed"
)

// Статусы escrow (производное представление, см. EscrowTransaction)
const (
	EscrowStatusPending  = "pending"
	EscrowStatusHeld     = "held"
	EscrowStatusReleased = "released"
	EscrowStatusRefunded = "refunded"
)

// Приоритеты уведомлений
const (
	NotificationPriorityLow    = "low"
	NotificationPriorityMedium = "medium"
	NotificationPriorityHigh   = "high"
)

// Роли пользователей
const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
)

// ValidMilestoneStatuses список валидных статусов этапов
var ValidMilestoneStatuses = map[string]struct{}{
	MilestoneStatusPending:           {},
	MilestoneStatusFunded:            {},
	MilestoneStatusInProgress:        {},
	MilestoneStatusSubmitted:         {},
	MilestoneStatusApproved:          {},
	MilestoneStatusRevisionRequested: {},
	MilestoneStatusCompleted:         {},
}

// ValidProjectStatuses список валидных статусов проектов
var ValidProjectStatuses = map[string]struct{}{
	ProjectStatusOpenForBids:       {},
	ProjectStatusPendingAcceptance: {},
	ProjectStatusInProgress:        {},
	ProjectStatusCompleted:         {},
	ProjectStatusCancelled:         {},
}

// ValidPaymentStatuses список валидных статусов платежей
var ValidPaymentStatuses = map[string]struct{}{
	PaymentStatusPending:   {},
	PaymentStatusHeld:      {},
	PaymentStatusCompleted: {},
	PaymentStatusReleased:  {},
	PaymentStatusFailed:    {},
}

// PaidPaymentStatuses статусы, которые засчитываются в оплаченную сумму этапа.
// Неудачные и ожидающие платежи никогда не учитываются.
var PaidPaymentStatuses = map[string]struct{}{
	PaymentStatusCompleted: {},
	PaymentStatusReleased:  {},
}
