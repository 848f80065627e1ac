package register

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/taskflow/internal/models"
	services "github.com/magabrotheeeer/taskflow/internal/services/auth"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Register(ctx context.Context, username, email, password string) (*services.RegisterResult, error) {
	args := m.Called(ctx, username, email, password)
	resp, _ := args.Get(0).(*services.RegisterResult)
	return resp, args.Error(1)
}

func (m *AuthServiceMock) Mode() services.RegistrationMode {
	return services.ModeDirect
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegisterHandler_ServeHTTP(t *testing.T) {
	valid := Request{Username: "alice", Email: "alice@x.com", Password: "pw123"}

	tests := []struct {
		name           string
		body           any
		mockResp       *services.RegisterResult
		mockErr        error
		wantStatusCode int
		wantError      string
		wantData       map[string]any
	}{
		{
			name:           "direct mode creates user",
			body:           valid,
			mockResp:       &services.RegisterResult{Mode: services.ModeDirect, User: &models.PublicUser{ID: 1, Username: "alice", Email: "alice@x.com"}},
			wantStatusCode: http.StatusCreated,
			wantData:       map[string]any{"id": float64(1), "username": "alice", "email": "alice@x.com"},
		},
		{
			name:           "queued mode accepts request",
			body:           valid,
			mockResp:       &services.RegisterResult{Mode: services.ModeQueued, RequestID: "req-1"},
			wantStatusCode: http.StatusAccepted,
			wantData:       map[string]any{"requestId": "req-1", "status": "pending"},
		},
		{
			name:           "invalid json",
			body:           "{",
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
		},
		{
			name:           "missing email",
			body:           Request{Username: "alice", Password: "pw"},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "field Email is a required field",
		},
		{
			name:           "malformed email",
			body:           Request{Username: "alice", Email: "not-an-email", Password: "pw"},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "field Email must be a valid email",
		},
		{
			name:           "password over 72 bytes",
			body:           Request{Username: "alice", Email: "alice@x.com", Password: strings.Repeat("я", 60)},
			mockErr:        fmt.Errorf("wrapped: %w", services.ErrPasswordTooLong),
			wantStatusCode: http.StatusBadRequest,
			wantError:      "password must not exceed 72 bytes",
		},
		{
			name:           "conflict",
			body:           valid,
			mockErr:        fmt.Errorf("wrapped: %w", services.ErrUserExists),
			wantStatusCode: http.StatusConflict,
			wantError:      "username or email already exists",
		},
		{
			name:           "queue unavailable",
			body:           valid,
			mockErr:        services.ErrQueueUnavailable,
			wantStatusCode: http.StatusServiceUnavailable,
			wantError:      "registration service is temporarily unavailable, try again later",
		},
		{
			name:           "enqueue failure",
			body:           valid,
			mockErr:        fmt.Errorf("%w: %w", services.ErrEnqueueFailed, errors.New("channel closed")),
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "failed to process registration request",
		},
		{
			name:           "storage failure",
			body:           valid,
			mockErr:        errors.New("db down"),
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(AuthServiceMock)
			if tt.mockResp != nil || tt.mockErr != nil {
				req := tt.body.(Request)
				svc.On("Register", mock.Anything, req.Username, req.Email, req.Password).
					Return(tt.mockResp, tt.mockErr).Once()
			}
			handler := New(newNoopLogger(), svc, false)

			var bodyBytes []byte
			if s, ok := tt.body.(string); ok {
				bodyBytes = []byte(s)
			} else {
				var err error
				bodyBytes, err = json.Marshal(tt.body)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(bodyBytes))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			if tt.wantError != "" {
				assert.Equal(t, "Error", got["status"])
				assert.Equal(t, tt.wantError, got["error"])
				assert.NotContains(t, got, "details")
			} else {
				assert.Equal(t, "OK", got["status"])
				assert.Equal(t, tt.wantData, got["data"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestRequest_LogValueHidesPassword(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	log.Info("req", slog.Any("request", Request{Username: "alice", Email: "a@x.com", Password: "topsecret"}))

	assert.Contains(t, buf.String(), "a@x.com")
	assert.NotContains(t, buf.String(), "topsecret")
}
