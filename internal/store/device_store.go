package store

import (
	"context"

	"securewipe/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeviceStore struct{ db *gorm.DB }

func (s *Store) Devices() *DeviceStore { return &DeviceStore{db: s.DB} }

// Resolve returns the device row for (owner, device key), creating it if
// absent. The unique index on (owner_id, device_key) makes the create safe
// under concurrent resolves: the loser of the race hits the conflict, creates
// nothing, and refetches the canonical row.
func (d *DeviceStore) Resolve(ctx context.Context, device domain.Device) (*domain.Device, error) {
	if device.ID == uuid.Nil {
		device.ID = uuid.New()
	}
	res := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&device)
	if res.Error != nil {
		return nil, res.Error
	}
	var out domain.Device
	if err := d.db.WithContext(ctx).
		First(&out, "owner_id = ? AND device_key = ?", device.OwnerID, device.DeviceKey).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (d *DeviceStore) Get(ctx context.Context, id uuid.UUID) (*domain.Device, error) {
	var device domain.Device
	if err := d.db.WithContext(ctx).First(&device, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &device, nil
}
