package history

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-manager/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-manager/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) History(ctx context.Context, userID int64) ([]models.HistoryEntry, error) {
	args := m.Called(ctx, userID)
	if res := args.Get(0); res != nil {
		return res.([]models.HistoryEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) HistoryProjections(ctx context.Context, userID int64) ([]models.HistoryProjection, error) {
	args := m.Called(ctx, userID)
	if res := args.Get(0); res != nil {
		return res.([]models.HistoryProjection), args.Error(1)
	}
	return nil, args.Error(1)
}

var user = models.Identity{UserID: 21, Username: "erin", Role: models.RoleUser}

func authed(path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	return req.WithContext(middlewarectx.WithIdentity(req.Context(), user))
}

func TestHistoryHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	t0 := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.AddDate(0, 0, 10)
	t1End := t1.AddDate(0, 0, 30)

	t.Run("entries keep service order", func(t *testing.T) {
		mockService := new(MockService)
		mockService.On("History", mock.Anything, int64(21)).Return([]models.HistoryEntry{
			{PlanName: "Pro", PlanPrice: 25, StartDate: t1, EndDate: &t1End, Status: models.DisplayActive, CreatedAt: t1, UpdatedAt: t1},
			{PlanName: "Basic", PlanPrice: 10, StartDate: t0, EndDate: &t1, Status: models.DisplayInactive, CreatedAt: t0, UpdatedAt: t1},
		}, nil).Once()

		w := httptest.NewRecorder()
		New(logger, mockService).ServeHTTP(w, authed("/subscriptions/history"))

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data []models.HistoryEntry `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Len(t, resp.Data, 2)
		assert.Equal(t, "Pro", resp.Data[0].PlanName)
		assert.Equal(t, models.DisplayActive, resp.Data[0].Status)
		assert.Equal(t, models.DisplayInactive, resp.Data[1].Status)
		mockService.AssertExpectations(t)
	})

	t.Run("storage failure", func(t *testing.T) {
		mockService := new(MockService)
		mockService.On("History", mock.Anything, int64(21)).
			Return(nil, apperr.Internal(errors.New("timeout"))).Once()

		w := httptest.NewRecorder()
		New(logger, mockService).ServeHTTP(w, authed("/subscriptions/history"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "timeout")
	})

	t.Run("no identity", func(t *testing.T) {
		w := httptest.NewRecorder()
		New(logger, new(MockService)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/subscriptions/history", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestOptimizedHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 5)

	mockService := new(MockService)
	mockService.On("HistoryProjections", mock.Anything, int64(21)).Return([]models.HistoryProjection{
		{
			ActiveProjection: models.ActiveProjection{ID: 1, Name: "Basic", Price: 10, DurationDays: 30, StartDate: start, EndDate: &end},
			Status:           models.StatusCancelled,
		},
	}, nil).Once()

	w := httptest.NewRecorder()
	NewOptimized(logger, mockService).ServeHTTP(w, authed("/subscriptions/history/optimized"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"cancelled"`)
	assert.Contains(t, w.Body.String(), `"name":"Basic"`)
	mockService.AssertExpectations(t)
}
