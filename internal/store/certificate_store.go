package store

import (
	"context"

	"securewipe/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CertificateStore struct{ db *gorm.DB }

func (s *Store) Certificates() *CertificateStore { return &CertificateStore{db: s.DB} }

// Create persists a new certificate. Certificate ids are asserted unique;
// a duplicate id is a caller bug and reported as ErrDuplicateCertificate.
func (c *CertificateStore) Create(ctx context.Context, cert domain.Certificate) (*domain.Certificate, error) {
	if cert.ID == uuid.Nil {
		cert.ID = uuid.New()
	}
	if cert.Status == "" {
		cert.Status = domain.StatusRunning
	}
	res := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&cert)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrDuplicateCertificate
	}
	return &cert, nil
}

// UpdateStatus is the only mutation path after creation. The update is guarded
// so a terminal status is never overwritten; re-applying the terminal status a
// record already holds is a no-op, so a retried artifact pipeline cannot fail
// or flip the record.
func (c *CertificateStore) UpdateStatus(ctx context.Context, certificateID string, status domain.Status, fields map[string]any) error {
	updates := map[string]any{"status": status}
	for k, v := range fields {
		updates[k] = v
	}
	res := c.db.WithContext(ctx).Model(&domain.Certificate{}).
		Where("certificate_id = ? AND status = ?", certificateID, domain.StatusRunning).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	cur, err := c.GetByCertificateID(ctx, certificateID)
	if err != nil {
		return err
	}
	if cur.Status == status {
		return nil
	}
	return ErrInvalidTransition
}

func (c *CertificateStore) GetByCertificateID(ctx context.Context, certificateID string) (*domain.Certificate, error) {
	var cert domain.Certificate
	if err := c.db.WithContext(ctx).First(&cert, "certificate_id = ?", certificateID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &cert, nil
}

func (c *CertificateStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Certificate, error) {
	var certs []domain.Certificate
	if err := c.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, certificate_id ASC").
		Find(&certs).Error; err != nil {
		return nil, err
	}
	return certs, nil
}
