package guap_test

import (
	"context"
	"testing"

	"guapassist-backend/internal/apperr"
	"guapassist-backend/internal/browser"
	"guapassist-backend/internal/scrapers/guap"
	"guapassist-backend/internal/scrapers/guap/guaptest"

	"github.com/stretchr/testify/require"
)

const reportsPath = "/inside/student/reports/"

func TestParseReportsPage(t *testing.T) {
	rows := []guaptest.ReportRow{
		{Id: 11, Number: 1, Name: "Лабораторная работа №1", Teacher: "Орлов О.О.", Status: "Принят", Score: "9 / 10", Date: "01.03.2025", Download: true},
		{Id: 12, Number: 2, Name: "Курсовая работа", Teacher: "Орлов О.О.", Status: "Проверяется", Score: "―", Date: "05.03.2025"},
	}
	snapshot := browser.Snapshot{
		URL: guaptest.BaseURL + reportsPath,
		Doc: fixtureDocFromString(t, guaptest.ReportsPage(2, rows, guaptest.Pager(1, -1))),
	}

	reports, err := guap.ParseReportsPage(snapshot)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	graded := reports[0]
	require.Equal(t, int64(11), *graded.Task.Id)
	require.Equal(t, 1, *graded.Task.Number)
	require.Equal(t, "Лабораторная работа", graded.Task.Type)
	require.Equal(t, guap.StatusAccepted, graded.Status.Code)
	require.False(t, graded.Score.IsEmpty)
	require.Equal(t, 9, *graded.Score.Achieved)
	require.Equal(t, 10, *graded.Score.Max)
	require.Equal(t, "01.03.2025", graded.LoadDate.Text)
	require.True(t, graded.Attachments.HasAttachment)
	require.Equal(t, "https://pro.guap.ru/inside/student/reports/11/download", graded.Attachments.DownloadUrl)

	pending := reports[1]
	require.Equal(t, "Курсовой проект (работа)", pending.Task.Type)
	require.Equal(t, guap.StatusChecking, pending.Status.Code)
	require.True(t, pending.Score.IsEmpty)
	require.Nil(t, pending.Score.Achieved)
	require.False(t, pending.Attachments.HasAttachment)

	_, err = guap.ParseReportsPage(browser.Snapshot{
		URL: guaptest.BaseURL + reportsPath,
		Doc: fixtureDocFromString(t, guaptest.BrokenPage(2, "")),
	})
	require.Equal(t, apperr.KindStructural, apperr.KindOf(err))
}

func TestScrapeReports(t *testing.T) {
	ctx := context.Background()

	t.Run("all pages", func(t *testing.T) {
		env := guaptest.NewEnv()
		env.Fake.ServePaginated(reportsPath,
			guaptest.ReportsPage(4, guaptest.Reports(1, 2), guaptest.Pager(1, 1)),
			guaptest.ReportsPage(4, guaptest.Reports(3, 2), guaptest.Pager(2, -1)),
		)

		result, err := env.Portal.ScrapeReports(ctx, guaptest.Credentials())
		require.NoError(t, err)
		require.Equal(t, 4, result.ReportsCount)
		require.Equal(t, 4, result.TotalReports)
		require.False(t, result.Partial)
	})

	t.Run("third of five pages keeps failing", func(t *testing.T) {
		env := guaptest.NewEnv()
		env.Fake.ServePaginated(reportsPath,
			guaptest.ReportsPage(10, guaptest.Reports(1, 2), guaptest.Pager(1, 1)),
			guaptest.ReportsPage(10, guaptest.Reports(3, 2), guaptest.Pager(2, 2)),
			guaptest.BrokenPage(10, guaptest.Pager(3, 2)),
			guaptest.ReportsPage(10, guaptest.Reports(5, 2), guaptest.Pager(4, 4)),
			guaptest.ReportsPage(10, guaptest.Reports(7, 2), guaptest.Pager(5, -1)),
		)

		result, err := env.Portal.ScrapeReports(ctx, guaptest.Credentials())
		require.NoError(t, err)
		require.True(t, result.Success)
		require.True(t, result.Partial)
		require.Equal(t, 4, result.ReportsCount)
		require.Less(t, result.ReportsCount, result.TotalReports)
		require.Equal(t, 2, result.PagesVisited)
		for i, report := range result.Reports {
			require.Equal(t, int64(i+1), *report.Task.Id)
		}
		require.Equal(t, 1, env.Sessions.Stats().Active, "a partial result keeps the session")
	})

	t.Run("empty list", func(t *testing.T) {
		env := guaptest.NewEnv()
		env.Fake.Serve(reportsPath, `<html><body><nav class="navigation"></nav><div class="alert alert-info">Нет записей</div></body></html>`)

		result, err := env.Portal.ScrapeReports(ctx, guaptest.Credentials())
		require.NoError(t, err)
		require.NotNil(t, result.Reports)
		require.Empty(t, result.Reports)
	})

	t.Run("access denied", func(t *testing.T) {
		env := guaptest.NewEnv()
		env.Fake.Serve(reportsPath, `<html><body><p>У вас нет доступа к этому разделу</p></body></html>`)

		_, err := env.Portal.ScrapeReports(ctx, guaptest.Credentials())
		require.Equal(t, apperr.KindAuth, apperr.KindOf(err))
		require.Zero(t, env.Sessions.Stats().Total)
	})
}
