package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"type:text;not null;uniqueIndex"`
	Email        string    `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string    `gorm:"type:text;not null"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime"`
}

// Device identifies a physical storage device. DeviceKey is the external
// identity (device path or serial); metadata is fixed at creation time.
type Device struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_devices_owner_key"`
	DeviceKey  string    `gorm:"type:text;not null;uniqueIndex:idx_devices_owner_key"`
	Model      string    `gorm:"type:text"`
	Firmware   string    `gorm:"type:text"`
	CapacityGB int64     `gorm:"column:capacity_gb"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime"`
}

type Certificate struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	CertificateID string    `gorm:"type:text;not null;uniqueIndex"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index"`
	DeviceID      uuid.UUID `gorm:"type:uuid;not null;index"`
	WipeMethod    string    `gorm:"type:text;not null;default:zero-fill-1pass"`
	Status        Status    `gorm:"type:text;not null;default:running"`
	LogHash       string    `gorm:"type:text"`
	// Payload is the signed certificate JSON exactly as the compute service
	// returned it; it is never rewritten after creation.
	Payload     string     `gorm:"type:text;not null"`
	Signature   string     `gorm:"type:text;not null"`
	PDFUrl      string     `gorm:"column:pdf_url;type:text"`
	Error       string     `gorm:"type:text"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime"`
	CompletedAt *time.Time
}

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition may leave the status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
