package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrRecordNotFound       = errors.New("record not found")
	ErrDuplicateCertificate = errors.New("duplicate certificate id")
	ErrDuplicateUser        = errors.New("user already exists")
	ErrInvalidTransition    = errors.New("invalid status transition")
)

type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{DB: db} }

func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}
