package reporting

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cityflow/crm/internal/domain"
)

var day0 = time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func ticket(status domain.TicketStatus, team, issueType string, created time.Time) domain.Ticket {
	t := domain.Ticket{
		Status:      status,
		IssueTypeID: issueType,
		CreatedAt:   created,
		SLAStatus:   domain.SLAStatusOnTrack,
	}
	if team != "" {
		t.TeamID = strPtr(team)
	}
	if status == domain.TicketStatusResolved {
		t.ResolvedAt = timePtr(created.Add(3 * time.Hour))
	}
	if status == domain.TicketStatusClosed {
		t.ClosedAt = timePtr(created.Add(26 * time.Hour))
	}
	return t
}

func TestResolutionRateTenTicketsThreeDone(t *testing.T) {
	var tickets []domain.Ticket
	for i := 0; i < 7; i++ {
		tickets = append(tickets, ticket(domain.TicketStatusAssigned, "t1", "it1", day0))
	}
	tickets = append(tickets,
		ticket(domain.TicketStatusResolved, "t1", "it1", day0),
		ticket(domain.TicketStatusResolved, "t1", "it1", day0),
		ticket(domain.TicketStatusClosed, "t1", "it1", day0),
	)

	assert.Equal(t, 30, ResolutionRate(tickets))
}

func TestResolutionRateEmpty(t *testing.T) {
	assert.Equal(t, 0, ResolutionRate(nil))
}

func TestResolutionRateByTeam(t *testing.T) {
	tickets := []domain.Ticket{
		ticket(domain.TicketStatusResolved, "ops", "it1", day0),
		ticket(domain.TicketStatusNew, "ops", "it1", day0),
		ticket(domain.TicketStatusPending, "ops", "it1", day0),
		ticket(domain.TicketStatusClosed, "", "it1", day0),
	}
	names := map[string]string{"ops": "Operations", "idle": "Idle Team"}

	rates := ResolutionRateByTeam(tickets, names)
	require.Len(t, rates, 3)

	byID := map[string]TeamRate{}
	for _, r := range rates {
		byID[r.TeamID] = r
	}
	assert.Equal(t, TeamRate{TeamID: "ops", TeamName: "Operations", Total: 3, Completed: 1, RatePercent: 33}, byID["ops"])
	assert.Equal(t, TeamRate{TeamID: "idle", TeamName: "Idle Team"}, byID["idle"])
	assert.Equal(t, 100, byID[""].RatePercent)
	assert.Equal(t, "Unassigned", byID[""].TeamName)
}

func TestDailyVolume(t *testing.T) {
	tickets := []domain.Ticket{
		ticket(domain.TicketStatusResolved, "", "it1", day0.Add(8*time.Hour)),
		ticket(domain.TicketStatusClosed, "", "it1", day0.Add(9*time.Hour)),
		ticket(domain.TicketStatusNew, "", "it1", day0.Add(50*time.Hour)),
		ticket(domain.TicketStatusNew, "", "it1", day0.Add(-48*time.Hour)),
	}

	days := DailyVolume(tickets, day0.Add(5*time.Hour), day0.AddDate(0, 0, 2))
	require.Len(t, days, 3)

	assert.Equal(t, DayCount{Day: day0, Created: 2, Resolved: 1}, days[0])
	assert.Equal(t, DayCount{Day: day0.AddDate(0, 0, 1), Created: 0, Resolved: 1}, days[1])
	assert.Equal(t, DayCount{Day: day0.AddDate(0, 0, 2), Created: 1, Resolved: 0}, days[2])
}

func TestDailyVolumeInvertedRange(t *testing.T) {
	assert.Empty(t, DailyVolume(nil, day0, day0.AddDate(0, 0, -1)))
}

func TestDayWindow(t *testing.T) {
	start, end := DayWindow(day0.Add(13*time.Hour), day0.AddDate(0, 0, 2))
	assert.Equal(t, day0, start)
	assert.Equal(t, day0.AddDate(0, 0, 3), end)

	start, end = DayWindow(day0, day0)
	assert.Equal(t, day0, start)
	assert.Equal(t, day0.AddDate(0, 0, 1), end)
}

func TestSLABreakdown(t *testing.T) {
	now := day0.Add(12 * time.Hour)
	onTrack := ticket(domain.TicketStatusAssigned, "", "it1", day0)
	onTrack.SLADueAt = timePtr(now.Add(10 * time.Hour))
	warning := ticket(domain.TicketStatusInProgress, "", "it1", day0)
	warning.SLADueAt = timePtr(now.Add(time.Hour))
	breached := ticket(domain.TicketStatusPending, "", "it1", day0)
	breached.SLADueAt = timePtr(now.Add(-time.Hour))
	done := ticket(domain.TicketStatusResolved, "", "it1", day0)
	done.SLADueAt = timePtr(now.Add(-5 * time.Hour))

	shares := SLABreakdown([]domain.Ticket{onTrack, warning, breached, done}, now)

	assert.Equal(t, []SLAShare{
		{Bucket: "on-track", Count: 1, Percent: 25},
		{Bucket: "warning", Count: 1, Percent: 25},
		{Bucket: "breached", Count: 1, Percent: 25},
		{Bucket: "completed", Count: 1, Percent: 25},
	}, shares)
}

func TestSLABreakdownEmpty(t *testing.T) {
	for _, share := range SLABreakdown(nil, day0) {
		assert.Zero(t, share.Count)
		assert.Zero(t, share.Percent)
	}
}

func TestTopIssueTypesDeterministicTies(t *testing.T) {
	tickets := []domain.Ticket{
		ticket(domain.TicketStatusNew, "", "b", day0),
		ticket(domain.TicketStatusNew, "", "a", day0),
		ticket(domain.TicketStatusNew, "", "c", day0),
		ticket(domain.TicketStatusNew, "", "c", day0),
	}
	names := map[string]string{"a": "Late delivery", "b": "Damaged goods", "c": "Billing"}

	top := TopIssueTypes(tickets, 2, names)

	assert.Equal(t, []IssueTypeCount{
		{IssueTypeID: "c", Name: "Billing", Count: 2},
		{IssueTypeID: "b", Name: "Damaged goods", Count: 1},
	}, top)
	assert.Len(t, TopIssueTypes(tickets, 0, names), 3)
}

func TestExportWorkbook(t *testing.T) {
	tickets := []domain.Ticket{
		ticket(domain.TicketStatusResolved, "ops", "it1", day0),
		ticket(domain.TicketStatusNew, "ops", "it1", day0),
	}
	report := Build(tickets, Options{
		From:           day0,
		To:             day0,
		Now:            day0.Add(time.Hour),
		TopN:           5,
		IssueTypeNames: map[string]string{"it1": "Late delivery"},
		TeamNames:      map[string]string{"ops": "Operations"},
	})

	data, err := ExportWorkbook(report)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Volume", "SLA", "Teams", "IssueTypes"}, f.GetSheetList())

	day, err := f.GetCellValue("Volume", "A2")
	require.NoError(t, err)
	assert.Equal(t, "2026-05-04", day)

	rate, err := f.GetCellValue("Teams", "D2")
	require.NoError(t, err)
	assert.Equal(t, "50", rate)

	name, err := f.GetCellValue("IssueTypes", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Late delivery", name)
}
