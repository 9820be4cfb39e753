package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stwalsh4118/farmboard/internal/farmapi"
	"github.com/stwalsh4118/farmboard/internal/logger"
)

// FarmClient is the subset of the Farm API client the services use.
type FarmClient interface {
	Register(ctx context.Context, reg farmapi.Registration) (*farmapi.User, error)
	Login(ctx context.Context, creds farmapi.Credentials) (farmapi.Tokens, error)
	RefreshTokens(ctx context.Context, refresh string) (farmapi.Tokens, error)

	ListParcels(ctx context.Context, sess *farmapi.Session) ([]farmapi.Parcel, error)
	GetParcel(ctx context.Context, sess *farmapi.Session, id farmapi.ID) (*farmapi.Parcel, error)
	CreateParcel(ctx context.Context, sess *farmapi.Session, in farmapi.ParcelInput) (*farmapi.Parcel, error)
	UpdateParcel(ctx context.Context, sess *farmapi.Session, id farmapi.ID, in farmapi.ParcelInput) (*farmapi.Parcel, error)
	DeleteParcel(ctx context.Context, sess *farmapi.Session, id farmapi.ID) error

	ListPersonnel(ctx context.Context, sess *farmapi.Session) ([]farmapi.Personnel, error)
	ListEquipment(ctx context.Context, sess *farmapi.Session) ([]farmapi.Equipment, error)
	ListInputs(ctx context.Context, sess *farmapi.Session) ([]farmapi.Input, error)
	ListOperations(ctx context.Context, sess *farmapi.Session) ([]farmapi.Operation, error)
}

// AuthService passes authentication calls through to the Authentication API.
type AuthService interface {
	Register(ctx context.Context, reg farmapi.Registration) (*farmapi.User, error)
	Login(ctx context.Context, creds farmapi.Credentials) (farmapi.Tokens, error)
	Refresh(ctx context.Context, refresh string) (farmapi.Tokens, error)
}

type authService struct {
	client FarmClient
	log    *logger.Logger
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(client FarmClient, log *logger.Logger) AuthService {
	return &authService{client: client, log: log.Component("auth")}
}

func (s *authService) Register(ctx context.Context, reg farmapi.Registration) (*farmapi.User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)

	user, err := s.client.Register(ctx, reg)
	if err != nil {
		s.log.Warn("Registration failed", map[string]interface{}{
			"username": reg.Username,
			"error":    err.Error(),
		})
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info("User registered", map[string]interface{}{
		"username": user.Username,
		"user_id":  user.ID,
	})
	return user, nil
}

func (s *authService) Login(ctx context.Context, creds farmapi.Credentials) (farmapi.Tokens, error) {
	creds.Username = strings.TrimSpace(creds.Username)

	tokens, err := s.client.Login(ctx, creds)
	if err != nil {
		s.log.Warn("Login failed", map[string]interface{}{
			"username": creds.Username,
			"error":    err.Error(),
		})
		return farmapi.Tokens{}, fmt.Errorf("login: %w", err)
	}

	s.log.Info("User signed in", map[string]interface{}{
		"username": creds.Username,
	})
	return tokens, nil
}

// Refresh exchanges a refresh token. A token the API rejects yields
// farmapi.ErrSessionExpired. An empty rotated refresh token means the old one stays
// valid, so it is handed back to the caller.
func (s *authService) Refresh(ctx context.Context, refresh string) (farmapi.Tokens, error) {
	tokens, err := s.client.RefreshTokens(ctx, refresh)
	if err != nil {
		var apiErr *farmapi.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			s.log.Debug("Token refresh rejected", map[string]interface{}{
				"status": apiErr.StatusCode,
			})
			return farmapi.Tokens{}, fmt.Errorf("%w: %w", farmapi.ErrSessionExpired, err)
		}
		return farmapi.Tokens{}, fmt.Errorf("refresh: %w", err)
	}
	if tokens.Refresh == "" {
		tokens.Refresh = refresh
	}
	return tokens, nil
}
