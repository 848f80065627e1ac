package verify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/taskflow/internal/http/middlewarectx"
	"github.com/magabrotheeeer/taskflow/internal/models"
	services "github.com/magabrotheeeer/taskflow/internal/services/auth"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) CurrentUser(ctx context.Context, username string) (*models.PublicUser, error) {
	args := m.Called(ctx, username)
	resp, _ := args.Get(0).(*models.PublicUser)
	return resp, args.Error(1)
}

func TestVerifyHandler(t *testing.T) {
	alice := &models.PublicUser{ID: 3, Username: "alice", Email: "alice@x.com"}

	tests := []struct {
		name     string
		username string
		mockResp *models.PublicUser
		mockErr  error
		wantCode int
	}{
		{name: "valid", username: "alice", mockResp: alice, wantCode: http.StatusOK},
		{name: "no username in context", wantCode: http.StatusUnauthorized},
		{name: "user gone", username: "ghost", mockErr: services.ErrInvalidToken, wantCode: http.StatusUnauthorized},
		{name: "storage failure", username: "alice", mockErr: errors.New("db down"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(AuthServiceMock)
			if tt.mockResp != nil || tt.mockErr != nil {
				svc.On("CurrentUser", mock.Anything, tt.username).Return(tt.mockResp, tt.mockErr).Once()
			}
			h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, false)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify", nil)
			if tt.username != "" {
				req = req.WithContext(middlewarectx.WithUsername(req.Context(), tt.username))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				var got struct {
					Status string   `json:"status"`
					Data   Response `json:"data"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
				assert.Equal(t, "OK", got.Status)
				assert.Equal(t, alice, got.Data.User)
			}
			svc.AssertExpectations(t)
		})
	}
}
