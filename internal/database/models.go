package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/docupos/api/internal/enum"
)

// User is a staff or admin account.
type User struct {
	ID             uuid.UUID
	FullName       string
	Email          string
	Phone          pgtype.Text
	HashedPassword string
	Role           enum.UserRole
	IsActive       bool
	CreatedAt      time.Time
}

// Service is a document service (national ID, birth certificate, passport).
type Service struct {
	ID          uuid.UUID
	Name        string
	Slug        string
	Description pgtype.Text
	IsActive    bool
	CreatedAt   time.Time
}

// ServiceVariant is a priced, timed offering of a service.
type ServiceVariant struct {
	ID         uuid.UUID
	ServiceID  uuid.UUID
	Name       string
	PriceCents int64
	EtaDays    pgtype.Int4
	IsActive   bool
	CreatedAt  time.Time
}

// Fine is a named additional charge category selectable per order.
type Fine struct {
	ID           uuid.UUID
	Code         string
	Name         string
	AmountCents  int64
	IsLostReport bool
	CreatedAt    time.Time
}

// FormType is a logical category of pre-printed physical forms.
type FormType struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// FormSerial is a uniquely numbered pre-printed form consumed by at most one
// order. The available→consumed transition is irreversible.
type FormSerial struct {
	ID           uuid.UUID
	FormTypeID   uuid.UUID
	SerialNumber string
	Consumed     bool
	ConsumedAt   pgtype.Timestamptz
	OrderID      pgtype.UUID
	AddedBy      uuid.UUID
	ConsumedBy   pgtype.UUID
	CreatedAt    time.Time
}

// PromoCode is a discount code validated read-only at preview time.
type PromoCode struct {
	ID                uuid.UUID
	Code              string
	PromoType         enum.PromoType
	Value             int64
	MinOrderAmount    pgtype.Int8
	MaxDiscount       pgtype.Int8
	UsageLimit        pgtype.Int4
	UsageLimitPerUser pgtype.Int4
	CurrentUsage      int32
	StartDate         pgtype.Timestamptz
	EndDate           pgtype.Timestamptz
	IsActive          bool
	CreatedAt         time.Time
}

// Order is a customer request for document fulfillment. All money fields are
// integer minor units and satisfy:
// total = base + delivery + other + fine + surcharge - discount >= 0.
type Order struct {
	ID                      uuid.UUID
	OrderNumber             string
	CustomerName            string
	CustomerPhone           string
	UserID                  pgtype.UUID
	ServiceID               uuid.UUID
	VariantID               uuid.UUID
	Status                  enum.OrderStatus
	Quantity                int32
	BaseAmount              int64
	DeliveryFee             int64
	OtherFees               int64
	FineAmount              int64
	FineSurcharge           int64
	DiscountAmount          int64
	TotalAmount             int64
	PromoCodeID             pgtype.UUID
	WorkOrderNumber         pgtype.Text
	StatusReason            pgtype.Text
	AdminNotes              pgtype.Text
	EstimatedCompletionDate pgtype.Date
	CompletedAt             pgtype.Timestamptz
	CancelledAt             pgtype.Timestamptz
	CreatedBy               pgtype.UUID
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// OrderFine captures a fine applied to an order with the amounts charged at
// order time.
type OrderFine struct {
	OrderID        uuid.UUID
	FineID         uuid.UUID
	AmountCents    int64
	SurchargeCents int64
}

// Payment is the single payment record of an order (1:1, upserted in place).
type Payment struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	AmountCents int64
	Method      pgtype.Text
	Status      enum.PaymentStatus
	SenderPhone pgtype.Text
	EvidenceKey pgtype.Text
	Notes       string
	RecordedBy  pgtype.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Document is an uploaded artifact attached to an order.
type Document struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	DocType    enum.DocumentType
	ObjectKey  string
	UploadedBy pgtype.UUID
	CreatedAt  time.Time
}
