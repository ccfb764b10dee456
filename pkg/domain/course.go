package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CourseDelivery represents how a course is taught.
type CourseDelivery string

const (
	DeliveryOnline  CourseDelivery = "online"
	DeliveryOffline CourseDelivery = "offline"
	DeliveryHybrid  CourseDelivery = "hybrid"
)

// ValidDelivery reports whether d is a known delivery mode.
func ValidDelivery(d CourseDelivery) bool {
	switch d {
	case DeliveryOnline, DeliveryOffline, DeliveryHybrid:
		return true
	}
	return false
}

// Course represents a course owned by a tenant. (tenant_id, code) is unique.
type Course struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	InstructorID  uuid.UUID
	Code          string
	Title         string
	Description   string
	Delivery      CourseDelivery
	DurationWeeks int
	Price         decimal.Decimal
	Currency      string
	IsPublished   bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// Material represents an uploaded artifact attached to a course.
// Only the byte size matters here; file transfer is handled elsewhere.
type Material struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	CourseID  uuid.UUID
	Name      string
	SizeBytes int64
	CreatedAt time.Time
}
