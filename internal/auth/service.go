package auth

import (
	"context"
	"errors"
	"fmt"

	"securewipe/internal/domain"
	"securewipe/internal/dto"
	"securewipe/internal/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidRequest = errors.New("invalid request")

type Service struct {
	store  *store.Store
	tokens *Tokens
}

func NewService(st *store.Store, tokens *Tokens) *Service {
	return &Service{store: st, tokens: tokens}
}

func (s *Service) Register(ctx context.Context, req dto.RegisterRequest) (dto.RegisterResponse, error) {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return dto.RegisterResponse{}, fmt.Errorf("%w: missing username, email or password", ErrInvalidRequest)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return dto.RegisterResponse{}, err
	}
	user := domain.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			return dto.RegisterResponse{}, domain.ErrUserExists
		}
		return dto.RegisterResponse{}, err
	}
	return dto.RegisterResponse{Success: true, UserID: user.ID.String()}, nil
}

func (s *Service) Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	user, err := s.store.Users().FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return dto.LoginResponse{}, domain.ErrInvalidCredentials
		}
		return dto.LoginResponse{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return dto.LoginResponse{}, domain.ErrInvalidCredentials
	}
	token, err := s.tokens.Sign(user.ID, user.Username)
	if err != nil {
		return dto.LoginResponse{}, err
	}
	return dto.LoginResponse{Success: true, Token: token}, nil
}
