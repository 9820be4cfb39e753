package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/farmboard/internal/farmapi"
	"github.com/stwalsh4118/farmboard/internal/logger"
)

func TestAuthService_Login(t *testing.T) {
	client := new(MockFarmClient)
	ctx := context.Background()
	client.On("Login", ctx, farmapi.Credentials{Username: "amal", Password: "secret"}).
		Return(farmapi.Tokens{Access: "a", Refresh: "r"}, nil)

	tokens, err := NewAuthService(client, logger.Nop()).Login(ctx, farmapi.Credentials{Username: " amal ", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, farmapi.Tokens{Access: "a", Refresh: "r"}, tokens)
}

func TestAuthService_Register(t *testing.T) {
	client := new(MockFarmClient)
	ctx := context.Background()
	reg := farmapi.Registration{Username: "amal", Email: "amal@example.com", Password: "longenough"}
	client.On("Register", ctx, reg).Return(&farmapi.User{ID: "5", Username: "amal"}, nil)

	user, err := NewAuthService(client, logger.Nop()).Register(ctx, reg)
	require.NoError(t, err)
	assert.Equal(t, farmapi.ID("5"), user.ID)
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		upstream    farmapi.Tokens
		upstreamErr error
		want        farmapi.Tokens
		wantExpired bool
		wantErr     bool
	}{
		{
			name:     "rotated pair",
			upstream: farmapi.Tokens{Access: "a2", Refresh: "r2"},
			want:     farmapi.Tokens{Access: "a2", Refresh: "r2"},
		},
		{
			name:     "refresh token kept",
			upstream: farmapi.Tokens{Access: "a2"},
			want:     farmapi.Tokens{Access: "a2", Refresh: "r1"},
		},
		{
			name:        "rejected token",
			upstreamErr: &farmapi.APIError{StatusCode: http.StatusUnauthorized, Message: "Token is invalid or expired"},
			wantExpired: true,
			wantErr:     true,
		},
		{
			name:        "api down",
			upstreamErr: fmt.Errorf("%w: dial tcp", farmapi.ErrUnavailable),
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(MockFarmClient)
			client.On("RefreshTokens", ctx, "r1").Return(tt.upstream, tt.upstreamErr)

			got, err := NewAuthService(client, logger.Nop()).Refresh(ctx, "r1")
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantExpired, errors.Is(err, farmapi.ErrSessionExpired))
		})
	}
}
