package subscription

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscription-manager/internal/models"
	"github.com/magabrotheeeer/subscription-manager/internal/storage"
)

// memLedger: реестр в памяти. WithinUserLock держит общий мьютекс
// и откатывает изменения, если fn вернула ошибку. onLock вызывается сразу
// после захвата блокировки и имитирует ожидание конкурирующей транзакции.
type memLedger struct {
	mu     sync.Mutex
	rows   []models.Subscription
	plans  map[int64]models.Plan
	nextID int64
	err    error
	onLock func()
}

func newMemLedger(plans ...models.Plan) *memLedger {
	l := &memLedger{plans: make(map[int64]models.Plan)}
	for _, p := range plans {
		l.plans[p.ID] = p
	}
	return l
}

func (l *memLedger) WithinUserLock(ctx context.Context, _ int64, fn func(tx storage.LedgerTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	if l.onLock != nil {
		l.onLock()
	}
	snapshot := append([]models.Subscription(nil), l.rows...)
	nextID := l.nextID
	if err := fn(&memTx{l: l}); err != nil {
		l.rows = snapshot
		l.nextID = nextID
		return err
	}
	return nil
}

func (l *memLedger) ActiveSubscription(_ context.Context, userID int64, now time.Time) (*models.SubscriptionWithPlan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	for _, row := range l.rows {
		if row.UserID == userID && row.Status == models.StatusActive &&
			(row.EndDate == nil || row.EndDate.After(now)) {
			return l.withPlan(row), nil
		}
	}
	return nil, storage.ErrSubscriptionNotFound
}

func (l *memLedger) SubscriptionHistory(_ context.Context, userID int64) ([]models.SubscriptionWithPlan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	result := make([]models.SubscriptionWithPlan, 0)
	for _, row := range l.sortedFor(userID) {
		result = append(result, *l.withPlan(row))
	}
	return result, nil
}

func (l *memLedger) ActiveProjections(_ context.Context, userID int64, now time.Time) ([]models.ActiveProjection, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	result := make([]models.ActiveProjection, 0)
	for _, row := range l.rows {
		if row.UserID == userID && row.Status == models.StatusActive &&
			(row.EndDate == nil || row.EndDate.After(now)) {
			result = append(result, l.projection(row))
		}
	}
	return result, nil
}

func (l *memLedger) HistoryProjections(_ context.Context, userID int64) ([]models.HistoryProjection, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	result := make([]models.HistoryProjection, 0)
	for _, row := range l.sortedFor(userID) {
		result = append(result, models.HistoryProjection{ActiveProjection: l.projection(row), Status: row.Status})
	}
	return result, nil
}

func (l *memLedger) sortedFor(userID int64) []models.Subscription {
	var rows []models.Subscription
	for _, row := range l.rows {
		if row.UserID == userID {
			rows = append(rows, row)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].StartDate.Equal(rows[j].StartDate) {
			return rows[i].StartDate.After(rows[j].StartDate)
		}
		return rows[i].ID > rows[j].ID
	})
	return rows
}

func (l *memLedger) withPlan(row models.Subscription) *models.SubscriptionWithPlan {
	plan := l.plans[row.PlanID]
	return &models.SubscriptionWithPlan{Subscription: row, PlanName: plan.Name, PlanPrice: plan.Price}
}

func (l *memLedger) projection(row models.Subscription) models.ActiveProjection {
	plan := l.plans[row.PlanID]
	return models.ActiveProjection{
		ID:           row.ID,
		Name:         plan.Name,
		Price:        plan.Price,
		DurationDays: plan.DurationDays,
		StartDate:    row.StartDate,
		EndDate:      row.EndDate,
	}
}

// snapshot возвращает копию всех записей.
func (l *memLedger) snapshot() []models.Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Subscription(nil), l.rows...)
}

func (l *memLedger) countActive(userID int64) int {
	n := 0
	for _, row := range l.snapshot() {
		if row.UserID == userID && row.Status == models.StatusActive {
			n++
		}
	}
	return n
}

type memTx struct {
	l *memLedger
}

func (t *memTx) FindActive(_ context.Context, userID int64) (*models.Subscription, error) {
	for _, row := range t.l.rows {
		if row.UserID == userID && row.Status == models.StatusActive {
			found := row
			return &found, nil
		}
	}
	return nil, storage.ErrSubscriptionNotFound
}

func (t *memTx) CreateSubscription(_ context.Context, sub models.Subscription) (int64, error) {
	if sub.Status == models.StatusActive {
		for _, row := range t.l.rows {
			if row.UserID == sub.UserID && row.Status == models.StatusActive {
				return 0, storage.ErrActiveSubscriptionExists
			}
		}
	}
	t.l.nextID++
	sub.ID = t.l.nextID
	t.l.rows = append(t.l.rows, sub)
	return sub.ID, nil
}

func (t *memTx) CancelSubscription(_ context.Context, id int64, at time.Time) error {
	for i := range t.l.rows {
		if t.l.rows[i].ID == id {
			t.l.rows[i].Status = models.StatusCancelled
			end := at
			t.l.rows[i].EndDate = &end
			t.l.rows[i].UpdatedAt = at
			return nil
		}
	}
	return storage.ErrSubscriptionNotFound
}

// memPlans отдаёт планы из memLedger.
type memPlans struct {
	l *memLedger
}

func (p memPlans) Get(_ context.Context, id int64) (*models.Plan, error) {
	plan, ok := p.l.plans[id]
	if !ok {
		return nil, storage.ErrPlanNotFound
	}
	return &plan, nil
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}
