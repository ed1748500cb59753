package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cityflow/crm/internal/domain"
	apperrors "github.com/cityflow/crm/pkg/util/errorutil"
)

func TestDashboardResolutionRate(t *testing.T) {
	env := newTestEnv(t)
	r := env.seedRouting(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 10; i++ {
		ids = append(ids, env.createTicket(t, r, "ticket").ID)
	}
	for _, id := range ids[:2] {
		_, err := env.ticketSvc.UpdateStatus(ctx, env.agent, id, domain.TicketStatusResolved)
		require.NoError(t, err)
	}
	_, err := env.ticketSvc.UpdateStatus(ctx, env.agent, ids[2], domain.TicketStatusClosed)
	require.NoError(t, err)

	report, err := env.reportSvc.Dashboard(ctx, ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, 10, report.Total)
	assert.Equal(t, 30, report.ResolutionRate)
	assert.Len(t, report.Volume, 30)
	require.NotEmpty(t, report.IssueTypes)
	assert.Equal(t, "Missed pickup", report.IssueTypes[0].Name)
	assert.Equal(t, 10, report.IssueTypes[0].Count)
}

func TestDashboardWindowValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := env.clock.Now()

	from := now
	to := now.Add(-time.Hour)
	_, err := env.reportSvc.Dashboard(ctx, ReportFilter{From: &from, To: &to})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	from = now.AddDate(-2, 0, 0)
	to = now
	_, err = env.reportSvc.Dashboard(ctx, ReportFilter{From: &from, To: &to})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestDashboardCoversWholeEndDay(t *testing.T) {
	env := newTestEnv(t)
	r := env.seedRouting(t)
	env.createTicket(t, r, "created this morning")

	to, err := time.Parse("2006-01-02", "2024-05-06")
	require.NoError(t, err)
	report, err := env.reportSvc.Dashboard(context.Background(), ReportFilter{To: &to})
	require.NoError(t, err)

	window := env.tickets.activityWindow
	assert.Equal(t, time.Date(2024, 4, 7, 0, 0, 0, 0, time.UTC), window[0])
	assert.Equal(t, time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC), window[1])

	require.Len(t, report.Volume, 30)
	last := report.Volume[len(report.Volume)-1]
	assert.Equal(t, to, last.Day)
	assert.Equal(t, 1, last.Created)
}

func TestDashboardDefaultWindowAlignsToDays(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.reportSvc.Dashboard(context.Background(), ReportFilter{})
	require.NoError(t, err)

	window := env.tickets.activityWindow
	assert.Equal(t, time.Date(2024, 4, 7, 0, 0, 0, 0, time.UTC), window[0])
	assert.Equal(t, time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC), window[1])
}

func TestExportWorkbookOpens(t *testing.T) {
	env := newTestEnv(t)
	r := env.seedRouting(t)
	env.createTicket(t, r, "exported")

	data, err := env.reportSvc.Export(context.Background(), ReportFilter{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.NotEmpty(t, f.GetSheetList())
}
