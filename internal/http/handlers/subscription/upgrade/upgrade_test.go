package upgrade

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-manager/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-manager/internal/http/response"
	"github.com/magabrotheeeer/subscription-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-manager/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Upgrade(ctx context.Context, user models.Identity, newPlanID int64) (*models.Confirmation, error) {
	args := m.Called(ctx, user, newPlanID)
	if res := args.Get(0); res != nil {
		return res.(*models.Confirmation), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestUpgradeHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	user := models.Identity{UserID: 3, Username: "alice", Role: models.RoleUser}

	tests := []struct {
		name       string
		planID     string
		setupMock  func(*MockService)
		wantStatus int
		wantError  string
	}{
		{
			name:   "upgraded",
			planID: "2",
			setupMock: func(m *MockService) {
				m.On("Upgrade", mock.Anything, user, int64(2)).Return(&models.Confirmation{
					Message:  "Upgraded to Pro until 2026-12-01 00:00:00",
					PlanName: "Pro",
					EndDate:  time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
				}, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "no active subscription",
			planID: "2",
			setupMock: func(m *MockService) {
				m.On("Upgrade", mock.Anything, user, int64(2)).
					Return(nil, apperr.BadRequest("No active subscription to upgrade")).Once()
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "No active subscription to upgrade",
		},
		{
			name:   "unknown plan",
			planID: "42",
			setupMock: func(m *MockService) {
				m.On("Upgrade", mock.Anything, user, int64(42)).
					Return(nil, apperr.NotFound("New subscription plan not found")).Once()
			},
			wantStatus: http.StatusNotFound,
			wantError:  "New subscription plan not found",
		},
		{
			name:   "concurrent activation reported as bad request",
			planID: "2",
			setupMock: func(m *MockService) {
				m.On("Upgrade", mock.Anything, user, int64(2)).
					Return(nil, apperr.Conflict("User already has an active subscription. Cancel it first.")).Once()
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "User already has an active subscription. Cancel it first.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			req := httptest.NewRequest(http.MethodPost, "/subscriptions/upgrade/"+tt.planID, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("plan_id", tt.planID)
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			req = req.WithContext(middlewarectx.WithIdentity(ctx, user))

			w := httptest.NewRecorder()
			New(logger, mockService).ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			var resp response.Response
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			if tt.wantError != "" {
				assert.Equal(t, response.StatusError, resp.Status)
				assert.Equal(t, tt.wantError, resp.Error)
			} else {
				assert.Equal(t, response.StatusOK, resp.Status)
				data := resp.Data.(map[string]any)
				assert.Equal(t, "Pro", data["plan_name"])
				assert.Equal(t, "Upgraded to Pro until 2026-12-01 00:00:00", data["message"])
			}
			mockService.AssertExpectations(t)
		})
	}
}
