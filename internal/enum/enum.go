package enum

// ── Order lifecycle (CHECK constrained in DB) ──

// OrderStatus is the order lifecycle state. The intake-to-delivery chain is
// waiting_confirmation → waiting_payment → payment_review →
// payment_confirmed|partial_payment → settlement → fulfillment → supply →
// ready → delivered, with cancelled/returned reachable as terminal states.
type OrderStatus string

const (
	OrderStatusWaitingConfirmation OrderStatus = "waiting_confirmation"
	OrderStatusWaitingPayment      OrderStatus = "waiting_payment"
	OrderStatusPaymentReview       OrderStatus = "payment_review"
	OrderStatusPaymentConfirmed    OrderStatus = "payment_confirmed"
	OrderStatusPartialPayment      OrderStatus = "partial_payment"
	OrderStatusSettlement          OrderStatus = "settlement"
	OrderStatusFulfillment         OrderStatus = "fulfillment"
	OrderStatusSupply              OrderStatus = "supply"
	OrderStatusReady               OrderStatus = "ready"
	OrderStatusDelivered           OrderStatus = "delivered"
	OrderStatusCancelled           OrderStatus = "cancelled"
	OrderStatusReturned            OrderStatus = "returned"
)

// AllOrderStatuses lists every settable order status.
var AllOrderStatuses = []OrderStatus{
	OrderStatusWaitingConfirmation,
	OrderStatusWaitingPayment,
	OrderStatusPaymentReview,
	OrderStatusPaymentConfirmed,
	OrderStatusPartialPayment,
	OrderStatusSettlement,
	OrderStatusFulfillment,
	OrderStatusSupply,
	OrderStatusReady,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusReturned,
}

// IsValidOrderStatus reports whether s is a known order status.
func IsValidOrderStatus(s OrderStatus) bool {
	for _, v := range AllOrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminalOrderStatus reports whether s ends the order lifecycle.
func IsTerminalOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// ── Configurable labels (no DB constraint) ──

type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
)

func IsValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer:
		return true
	}
	return false
}

type PromoType string

const (
	PromoTypeFixed      PromoType = "FIXED"
	PromoTypePercentage PromoType = "PERCENTAGE"
)

type DocumentType string

const (
	DocumentTypePaymentReceipt DocumentType = "PAYMENT_RECEIPT"
	DocumentTypeAttachment     DocumentType = "ATTACHMENT"
)

// ── Roles (CHECK constrained in DB) ──

type UserRole string

const (
	UserRoleAdmin UserRole = "ADMIN"
	UserRoleStaff UserRole = "STAFF"
)
