package guap

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"guapassist-backend/internal/apperr"
	"guapassist-backend/internal/browser"
	"guapassist-backend/internal/session"
	"guapassist-backend/lib/htmlutil"
	"guapassist-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	minReportCells   = 7
	emptyScoreMarker = "―"
)

func parseReportRow(row *goquery.Selection, base *url.URL) *ReportRecord {
	cells := row.Find("td")
	if cells.Length() < minReportCells {
		return nil
	}

	task := htmlutil.GetAnchor(cells.Eq(2).Find("a.blue-link"), base)
	if task.Name == "" {
		return nil
	}
	teacher := htmlutil.GetAnchor(cells.Eq(3).Find("a.blue-link"), base)
	statusText := htmlutil.Text(cells.Eq(4).Find(".badge").First())

	record := ReportRecord{
		Task: ReportTask{
			Id:     taskIdFromLink(task.Href),
			Number: parseNumber(htmlutil.Text(cells.Eq(1).Find("span.text-center").First())),
			Name:   task.Name,
			Type:   reportType(task.Name),
			Link:   task.Href,
		},
		Teacher: Teacher{FullName: teacher.Name, Link: teacher.Href},
		Status:  Status{Code: MapStatus(statusText), Text: statusText},
		Score:   ReportScore{IsEmpty: true},
	}

	scoreText := htmlutil.Text(cells.Eq(5).Find("span").First())
	if scoreText != "" && scoreText != emptyScoreMarker {
		if achieved, max, ok := parseScore(scoreText); ok {
			record.Score = ReportScore{Achieved: &achieved, Max: &max}
		}
	}

	date := htmlutil.Text(cells.Eq(6).Find(".text-center span").First())
	if date == "" {
		date = htmlutil.Text(cells.Eq(6))
	}
	record.LoadDate = LoadDate{Text: date}

	download := cells.Eq(0).Find("a.btn-outline-dark").First()
	if download.Length() > 0 {
		record.Attachments = Attachments{
			DownloadUrl:   htmlutil.ResolveURL(base, download.AttrOr("href", "")),
			HasAttachment: true,
		}
	}
	return &record
}

// ParseReportsPage parses the first table of a reports page.
func ParseReportsPage(snapshot browser.Snapshot) ([]ReportRecord, error) {
	if snapshot.Doc == nil {
		return nil, apperr.Structural("", fmt.Errorf("reports: empty snapshot"))
	}
	table := snapshot.Doc.Find("table").First()
	if table.Length() == 0 {
		return nil, apperr.Structural("", fmt.Errorf("reports: no table at %s", snapshot.URL))
	}
	base := snapshot.Base()
	reports := []ReportRecord{}
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		if record := parseReportRow(row, base); record != nil {
			reports = append(reports, *record)
		}
	})
	return reports, nil
}

func ReportKey(r ReportRecord) string {
	if r.Task.Id != nil {
		return "id:" + strconv.FormatInt(*r.Task.Id, 10)
	}
	return r.Task.Name + "|" + r.LoadDate.Text
}

var accessDeniedPhrases = []string{"нет доступа", "не авторизован"}

// ScrapeReports walks every page of the student's uploaded reports.
func (p *Portal) ScrapeReports(ctx context.Context, creds session.Credentials) (ReportsResult, error) {
	var walk walkResult[ReportRecord]
	total := 0

	err := p.scrape(ctx, creds, "Portal.ScrapeReports", func(ctx context.Context, page browser.Page) error {
		snapshot, state, err := p.openPage(
			ctx, page, p.urls.Reports(),
			withContainer("table"),
			withTimeouts(p.timeouts.ReportsNavigation, p.timeouts.DomReady),
			withSettleOnIdle(),
		)
		if err != nil {
			return err
		}
		switch state {
		case Empty:
			walk = walkResult[ReportRecord]{Records: []ReportRecord{}}
			return nil
		case NotRecognized:
			if textutil.ContainsAny(snapshot.BodyText(), accessDeniedPhrases...) {
				return apperr.Auth(messageSessionExpired, fmt.Errorf("access denied at %s", snapshot.URL))
			}
			return apperr.Structural("Не удалось распознать страницу отчетов", fmt.Errorf("no reports table at %s", snapshot.URL))
		}

		total = ParseTotal(snapshot.Doc)
		walk, err = walkPages(ctx, page, p.tel, walkOptions{
			Total:       total,
			RowsTimeout: p.timeouts.PageRows,
			Settle:      p.timeouts.PaginationSettle,
		}, ParseReportsPage, ReportKey)
		return err
	})
	if err != nil {
		return ReportsResult{}, err
	}

	return ReportsResult{
		Success:      true,
		Message:      fmt.Sprintf("✅ Успешный вход! Найдено отчетов: %d", len(walk.Records)),
		Reports:      walk.Records,
		ReportsCount: len(walk.Records),
		TotalReports: total,
		Partial:      walk.Partial,
		PagesVisited: walk.Pages,
		Timestamp:    p.time.Now(),
	}, nil
}
