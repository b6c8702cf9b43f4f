package guap

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"guapassist-backend/internal/apperr"
	"guapassist-backend/internal/browser"
	"guapassist-backend/internal/components/chrono"
	"guapassist-backend/internal/session"
	"guapassist-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const report_schedule_unrecognized = "schedule.unrecognized-page"

var dayOrder = map[string]int{
	"Пн": 1, "Вт": 2, "Ср": 3, "Чт": 4, "Пт": 5, "Сб": 6, "Вс": 7,
}

var dayLinkPattern = regexp.MustCompile(`schedule/day/(\d{4}-\d{2}-\d{2})`)

// parseDayHeader reads a "Пн - 03.11" column header linking to the day view.
func parseDayHeader(header *goquery.Selection) DaySchedule {
	day := DaySchedule{Classes: []ScheduleEntry{}}
	link := header.Find("a").First()
	text := htmlutil.Text(link)
	if text == "" {
		text = htmlutil.Text(header)
	}
	parts := strings.SplitN(text, "-", 2)
	if len(parts) == 2 {
		day.DayName = strings.TrimSpace(parts[0])
		day.Date = strings.TrimSpace(parts[1])
	} else {
		day.DayName = text
	}
	if match := dayLinkPattern.FindStringSubmatch(link.AttrOr("href", "")); match != nil {
		day.FullDate = match[1]
	}
	day.Order = dayOrder[day.DayName]
	return day
}

// ParseWeekSchedule parses the weekly grid (rows are pair slots, columns
// after the first two are days) and the table of classes outside the grid.
func ParseWeekSchedule(doc *goquery.Document) WeekSchedule {
	schedule := WeekSchedule{
		Days:         []DaySchedule{},
		ExtraClasses: []ScheduleEntry{},
	}
	tables := doc.Find(selectorScheduleTable)
	if tables.Length() == 0 {
		return schedule
	}

	main := tables.First()
	var days []DaySchedule
	main.Find("thead th").Each(func(i int, th *goquery.Selection) {
		if i < 2 {
			return
		}
		days = append(days, parseDayHeader(th))
	})

	main.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 || !cells.Eq(0).HasClass("text-center") {
			return
		}
		pair := htmlutil.Text(cells.Eq(0))
		timeRange := htmlutil.Text(cells.Eq(1))
		// columns are mapped to days before the days get reordered
		for i := range days {
			cell := cells.Eq(i + 2)
			if cell.Length() == 0 || htmlutil.Text(cell) == "" {
				continue
			}
			entry := parseClassCell(cell)
			entry.PairNumber = pair
			entry.TimeRange = timeRange
			days[i].Classes = append(days[i].Classes, entry)
		}
	})

	sort.SliceStable(days, func(i, j int) bool {
		return days[i].Order < days[j].Order
	})
	for _, day := range days {
		if len(day.Classes) > 0 {
			schedule.Days = append(schedule.Days, day)
		}
	}

	if tables.Length() > 1 {
		tables.Eq(1).Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
			cell := row.Find("td").First()
			if cell.Length() == 0 || htmlutil.Text(cell) == "" {
				return
			}
			entry := parseClassCell(cell)
			if entry.Type == "" {
				entry.Type = "extra"
			}
			schedule.ExtraClasses = append(schedule.ExtraClasses, entry)
		})
	}
	return schedule
}

// ScrapeWeekSchedule scrapes the weekly schedule. A zero year or week is
// replaced by the current ISO week.
func (p *Portal) ScrapeWeekSchedule(ctx context.Context, creds session.Credentials, year, week int) (WeekScheduleResult, error) {
	if year == 0 || week == 0 {
		currentYear, currentWeek := chrono.ISOWeek(p.time)
		if year == 0 {
			year = currentYear
		}
		if week == 0 {
			week = currentWeek
		}
	}
	if week < 1 || week > 53 {
		return WeekScheduleResult{}, apperr.Validation(fmt.Sprintf("❌ Неверный номер недели: %d", week))
	}

	var schedule WeekSchedule
	err := p.scrape(ctx, creds, "Portal.ScrapeWeekSchedule", func(ctx context.Context, page browser.Page) error {
		snapshot, state, err := p.openPage(
			ctx, page, p.urls.WeekSchedule(year, week),
			withContainer(selectorScheduleTable),
		)
		if err != nil {
			return err
		}
		switch state {
		case Empty:
			schedule = WeekSchedule{Days: []DaySchedule{}, ExtraClasses: []ScheduleEntry{}}
		case Found:
			schedule = ParseWeekSchedule(snapshot.Doc)
		default:
			p.tel.ReportBroken(report_schedule_unrecognized, snapshot.URL)
			return apperr.Structural("Не удалось распознать страницу расписания", fmt.Errorf("no schedule table at %s", snapshot.URL))
		}
		return nil
	})
	if err != nil {
		return WeekScheduleResult{}, err
	}

	return WeekScheduleResult{
		Success:   true,
		Message:   "✅ Успешный вход! Расписание загружено",
		Schedule:  schedule,
		Year:      year,
		Week:      week,
		Timestamp: p.time.Now(),
	}, nil
}

// ParseDaySchedule parses the single-day table, a "no classes" alert yields
// an empty list.
func ParseDaySchedule(doc *goquery.Document) []ScheduleEntry {
	classes := []ScheduleEntry{}
	if doc.Find(selectorInfoAlert).Length() > 0 {
		return classes
	}
	table := doc.Find(selectorScheduleTable).First()
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		cell := cells.Eq(2)
		if isEmptyCell(cell) {
			return
		}
		entry := parseClassCell(cell)
		entry.PairNumber = htmlutil.Text(cells.Eq(0))
		entry.TimeRange = htmlutil.Text(cells.Eq(1))
		classes = append(classes, entry)
	})
	return classes
}

const MessageBadDate = "❌ Укажите дату в формате YYYY-MM-DD"

// ValidateDate checks the YYYY-MM-DD form expected by the day view.
func ValidateDate(date string) error {
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return apperr.Validation(MessageBadDate)
	}
	return nil
}

// ScrapeDaySchedule scrapes the schedule of one day in YYYY-MM-DD form.
func (p *Portal) ScrapeDaySchedule(ctx context.Context, creds session.Credentials, date string) (DayScheduleResult, error) {
	if err := ValidateDate(date); err != nil {
		return DayScheduleResult{}, err
	}

	var classes []ScheduleEntry
	err := p.scrape(ctx, creds, "Portal.ScrapeDaySchedule", func(ctx context.Context, page browser.Page) error {
		snapshot, state, err := p.openPage(
			ctx, page, p.urls.DaySchedule(date),
			withContainer(selectorScheduleTable),
			withSettleOnIdle(),
		)
		if err != nil {
			return err
		}
		switch state {
		case Empty:
			classes = []ScheduleEntry{}
		case Found:
			classes = ParseDaySchedule(snapshot.Doc)
		default:
			p.tel.ReportBroken(report_schedule_unrecognized, snapshot.URL)
			return apperr.Structural("Не удалось распознать страницу расписания", fmt.Errorf("no schedule table at %s", snapshot.URL))
		}
		return nil
	})
	if err != nil {
		return DayScheduleResult{}, err
	}

	return DayScheduleResult{
		Success:   true,
		Message:   fmt.Sprintf("✅ Расписание на %s загружено", date),
		Schedule:  classes,
		Date:      date,
		Timestamp: p.time.Now(),
	}, nil
}
