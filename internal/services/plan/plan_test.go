package plan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-manager/internal/cache"
	"github.com/magabrotheeeer/subscription-manager/internal/config"
	"github.com/magabrotheeeer/subscription-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-manager/internal/models"
	"github.com/magabrotheeeer/subscription-manager/internal/storage"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) ListPlans(ctx context.Context) ([]models.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Plan), args.Error(1)
}

func (m *RepoMock) GetPlan(ctx context.Context, id int64) (*models.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *RepoMock) CreatePlan(ctx context.Context, plan models.Plan) (int64, error) {
	args := m.Called(ctx, plan)
	return args.Get(0).(int64), args.Error(1)
}

func newTestService(t *testing.T, repo Repository) (*Service, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := cache.InitServer(context.Background(), config.Redis{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, c, time.Minute, log), mr
}

func ptr[T any](v T) *T { return &v }

var admin = models.Identity{UserID: 1, Username: "admin", Role: models.RoleAdmin}

func TestService_List_UsesCache(t *testing.T) {
	repo := new(RepoMock)
	svc, mr := newTestService(t, repo)
	ctx := context.Background()

	plans := []models.Plan{{ID: 1, Name: "Basic", Price: 10, DurationDays: 30}}
	repo.On("ListPlans", mock.Anything).Return(plans, nil).Once()

	got, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, plans, got)
	assert.True(t, mr.Exists(allPlansKey))

	got, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, plans, got)
	repo.AssertExpectations(t)
}

func TestService_List_EmptyCatalog(t *testing.T) {
	repo := new(RepoMock)
	svc, _ := newTestService(t, repo)

	repo.On("ListPlans", mock.Anything).Return([]models.Plan{}, nil)

	got, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestService_List_StorageError(t *testing.T) {
	repo := new(RepoMock)
	svc, _ := newTestService(t, repo)
	repo.On("ListPlans", mock.Anything).Return(nil, errors.New("db down"))

	_, err := svc.List(context.Background())
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestService_List_CacheDown(t *testing.T) {
	repo := new(RepoMock)
	svc, mr := newTestService(t, repo)
	mr.Close()

	plans := []models.Plan{{ID: 1, Name: "Basic", Price: 10, DurationDays: 30}}
	repo.On("ListPlans", mock.Anything).Return(plans, nil)

	got, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, plans, got)
}

func TestService_Get(t *testing.T) {
	repo := new(RepoMock)
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	plan := &models.Plan{ID: 3, Name: "Pro", Price: 25, DurationDays: 90}
	repo.On("GetPlan", mock.Anything, int64(3)).Return(plan, nil).Once()
	repo.On("GetPlan", mock.Anything, int64(4)).Return(nil, storage.ErrPlanNotFound)

	got, err := svc.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, plan, got)

	got, err = svc.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Pro", got.Name)

	_, err = svc.Get(ctx, 4)
	assert.ErrorIs(t, err, storage.ErrPlanNotFound)
	repo.AssertExpectations(t)
}

func TestService_Create(t *testing.T) {
	tests := []struct {
		name      string
		requester models.Identity
		input     models.PlanInput
		setup     func(r *RepoMock)
		wantKind  apperr.Kind
		wantMsg   string
		wantName  string
	}{
		{
			name:      "success",
			requester: admin,
			input:     models.PlanInput{Name: "Basic", Price: ptr(int64(10)), DurationDays: ptr(30), Description: ptr("monthly")},
			setup: func(r *RepoMock) {
				r.On("CreatePlan", mock.Anything, mock.MatchedBy(func(p models.Plan) bool {
					return p.Name == "Basic" && p.Price == 10 && p.DurationDays == 30 && *p.Description == "monthly"
				})).Return(int64(5), nil).Once()
			},
		},
		{
			name:      "free plan is allowed",
			requester: admin,
			input:     models.PlanInput{Name: "Free", Price: ptr(int64(0)), DurationDays: ptr(7)},
			setup: func(r *RepoMock) {
				r.On("CreatePlan", mock.Anything, mock.Anything).Return(int64(6), nil).Once()
			},
		},
		{
			name:      "name stored trimmed",
			requester: admin,
			input:     models.PlanInput{Name: "  Basic\t", Price: ptr(int64(10)), DurationDays: ptr(30)},
			setup: func(r *RepoMock) {
				r.On("CreatePlan", mock.Anything, mock.MatchedBy(func(p models.Plan) bool {
					return p.Name == "Basic"
				})).Return(int64(7), nil).Once()
			},
			wantName: "Basic",
		},
		{
			name:      "padded duplicate of existing name",
			requester: admin,
			input:     models.PlanInput{Name: " Basic ", Price: ptr(int64(10)), DurationDays: ptr(30)},
			setup: func(r *RepoMock) {
				r.On("CreatePlan", mock.Anything, mock.MatchedBy(func(p models.Plan) bool {
					return p.Name == "Basic"
				})).Return(int64(0), storage.ErrPlanNameExists).Once()
			},
			wantKind: apperr.KindConflict,
			wantMsg:  "Subscription plan name already exists",
		},
		{
			name:      "not admin",
			requester: models.Identity{UserID: 2, Username: "bob", Role: models.RoleUser},
			input:     models.PlanInput{},
			wantKind:  apperr.KindForbidden,
			wantMsg:   "Admin access required",
		},
		{
			name:      "missing price",
			requester: admin,
			input:     models.PlanInput{Name: "Basic", DurationDays: ptr(30)},
			wantKind:  apperr.KindBadRequest,
			wantMsg:   "Name, price, and duration_days are required",
		},
		{
			name:      "blank name",
			requester: admin,
			input:     models.PlanInput{Name: "  ", Price: ptr(int64(1)), DurationDays: ptr(30)},
			wantKind:  apperr.KindBadRequest,
			wantMsg:   "Name, price, and duration_days are required",
		},
		{
			name:      "zero duration",
			requester: admin,
			input:     models.PlanInput{Name: "Basic", Price: ptr(int64(1)), DurationDays: ptr(0)},
			wantKind:  apperr.KindBadRequest,
		},
		{
			name:      "duplicate name",
			requester: admin,
			input:     models.PlanInput{Name: "Basic", Price: ptr(int64(10)), DurationDays: ptr(30)},
			setup: func(r *RepoMock) {
				r.On("CreatePlan", mock.Anything, mock.Anything).Return(int64(0), storage.ErrPlanNameExists).Once()
			},
			wantKind: apperr.KindConflict,
			wantMsg:  "Subscription plan name already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			if tt.setup != nil {
				tt.setup(repo)
			}
			svc, _ := newTestService(t, repo)

			got, err := svc.Create(context.Background(), tt.requester, tt.input)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
				if tt.wantMsg != "" {
					assert.Equal(t, tt.wantMsg, apperr.MessageOf(err))
				}
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Positive(t, got.ID)
				wantName := tt.wantName
				if wantName == "" {
					wantName = tt.input.Name
				}
				assert.Equal(t, wantName, got.Name)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_Create_InvalidatesList(t *testing.T) {
	repo := new(RepoMock)
	svc, mr := newTestService(t, repo)
	ctx := context.Background()

	repo.On("ListPlans", mock.Anything).Return([]models.Plan{}, nil).Once()
	_, err := svc.List(ctx)
	require.NoError(t, err)
	require.True(t, mr.Exists(allPlansKey))

	repo.On("CreatePlan", mock.Anything, mock.Anything).Return(int64(1), nil).Once()
	_, err = svc.Create(ctx, admin, models.PlanInput{Name: "Basic", Price: ptr(int64(10)), DurationDays: ptr(30)})
	require.NoError(t, err)
	assert.False(t, mr.Exists(allPlansKey))
}
