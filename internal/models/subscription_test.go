package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscription_DisplayStatus(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		status  SubscriptionStatus
		endDate *time.Time
		want    string
	}{
		{name: "active with future end", status: StatusActive, endDate: &future, want: DisplayActive},
		{name: "stored active past end", status: StatusActive, endDate: &past, want: DisplayInactive},
		{name: "cancelled past end", status: StatusCancelled, endDate: &past, want: DisplayInactive},
		{name: "cancelled future end", status: StatusCancelled, endDate: &future, want: DisplayActive},
		{name: "end equals now", status: StatusActive, endDate: &now, want: DisplayInactive},
		{name: "no end date", status: StatusActive, endDate: nil, want: DisplayActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := Subscription{Status: tt.status, EndDate: tt.endDate}
			assert.Equal(t, tt.want, sub.DisplayStatus(now))
		})
	}
}

func TestNewSubscriptionEvent(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	end := now.AddDate(0, 0, 30)
	sub := Subscription{ID: 5, UserID: 2, PlanID: 3, EndDate: &end}

	e1 := NewSubscriptionEvent(EventSubscriptionCreated, sub, now)
	e2 := NewSubscriptionEvent(EventSubscriptionCreated, sub, now)

	assert.NotEqual(t, e1.ID, e2.ID)
	assert.Equal(t, EventSubscriptionCreated, e1.Type)
	assert.Equal(t, int64(5), e1.SubscriptionID)
	assert.Equal(t, int64(2), e1.UserID)
	assert.Equal(t, int64(3), e1.PlanID)
	assert.Equal(t, &end, e1.EndDate)
	assert.Equal(t, now, e1.OccurredAt)
}

func TestIdentity_IsAdmin(t *testing.T) {
	assert.True(t, Identity{Role: RoleAdmin}.IsAdmin())
	assert.False(t, Identity{Role: RoleUser, Username: "admin"}.IsAdmin())
}
