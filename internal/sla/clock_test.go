package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cityflow/crm/internal/domain"
)

var anchor = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestDueAtRoundTrip(t *testing.T) {
	for _, hours := range []int{0, 1, 2, 6, 24, 72, 720} {
		due := DueAt(anchor, hours)
		assert.Equal(t, anchor.Add(time.Duration(hours)*time.Hour), due)
		assert.Equal(t, hours, HoursBetween(anchor, due))
	}
}

func TestEvaluateBoundaries(t *testing.T) {
	due := anchor.Add(10 * time.Hour)

	tests := []struct {
		name      string
		remaining time.Duration
		want      domain.SLAStatus
	}{
		{"plenty of time", 5 * time.Hour, domain.SLAStatusOnTrack},
		{"one second outside window", 2*time.Hour + time.Second, domain.SLAStatusOnTrack},
		{"exactly two hours", 2 * time.Hour, domain.SLAStatusWarning},
		{"inside window", 30 * time.Minute, domain.SLAStatusWarning},
		{"exactly due", 0, domain.SLAStatusWarning},
		{"one second late", -time.Second, domain.SLAStatusBreached},
		{"two hours late", -2 * time.Hour, domain.SLAStatusBreached},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := due.Add(-tt.remaining)
			assert.Equal(t, tt.want, Evaluate(due, now))
		})
	}
}

func TestEvaluateIsStableWithinBucket(t *testing.T) {
	due := anchor.Add(6 * time.Hour)
	first := Evaluate(due, anchor.Add(time.Hour))
	second := Evaluate(due, anchor.Add(time.Hour+3*time.Second))
	assert.Equal(t, first, second)
}

func TestDescribe(t *testing.T) {
	due := anchor.Add(4 * time.Hour)

	assert.Equal(t, "3h 15m remaining", Describe(due, due.Add(-3*time.Hour-15*time.Minute-20*time.Second)))
	assert.Equal(t, "0h 0m remaining", Describe(due, due))
	assert.Equal(t, "2h 0m overdue", Describe(due, due.Add(2*time.Hour)))
	assert.Equal(t, "0h 45m overdue", Describe(due, due.Add(45*time.Minute)))
}

func TestTrackOverdueTicket(t *testing.T) {
	now := anchor
	due := now.Add(-2 * time.Hour)

	timer := Track(&due, domain.TicketStatusAssigned, now)

	assert.Equal(t, domain.SLAStatusBreached, timer.Status)
	assert.False(t, timer.Completed)
	assert.Regexp(t, `overdue$`, timer.Label)
}

func TestTrackCompletedTicketSuppressesTimer(t *testing.T) {
	due := anchor.Add(-5 * time.Hour)

	for _, status := range []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusClosed} {
		timer := Track(&due, status, anchor)
		assert.True(t, timer.Completed)
		assert.Equal(t, "Completed", timer.Label)
		assert.Empty(t, timer.Status)
	}
}

func TestTrackWithoutDueDate(t *testing.T) {
	timer := Track(nil, domain.TicketStatusNew, anchor)
	assert.Equal(t, "No SLA", timer.Label)
	assert.Equal(t, domain.SLAStatusOnTrack, timer.Status)
}

func TestTrackGroup(t *testing.T) {
	due := anchor.Add(time.Hour)
	group := &domain.TicketGroup{SLADueAt: &due, Status: domain.TicketGroupActive}
	assert.Equal(t, domain.SLAStatusWarning, TrackGroup(group, anchor).Status)

	group.Status = domain.TicketGroupResolved
	assert.True(t, TrackGroup(group, anchor).Completed)
}

func TestStatusAt(t *testing.T) {
	due := anchor.Add(-time.Minute)
	open := &domain.Ticket{Status: domain.TicketStatusInProgress, SLADueAt: &due, SLAStatus: domain.SLAStatusWarning}
	assert.Equal(t, domain.SLAStatusBreached, StatusAt(open, anchor))

	resolved := &domain.Ticket{Status: domain.TicketStatusResolved, SLADueAt: &due, SLAStatus: domain.SLAStatusWarning}
	assert.Equal(t, domain.SLAStatusWarning, StatusAt(resolved, anchor))

	noDue := &domain.Ticket{Status: domain.TicketStatusNew}
	assert.Equal(t, domain.SLAStatusOnTrack, StatusAt(noDue, anchor))
}
