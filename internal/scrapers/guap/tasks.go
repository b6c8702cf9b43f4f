package guap

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"guapassist-backend/internal/apperr"
	"guapassist-backend/internal/browser"
	"guapassist-backend/internal/session"
	"guapassist-backend/lib/htmlutil"
	"guapassist-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultDeadlineText = "Спи спокойно"
	minTaskCells        = 9
)

var taskTypes = []string{
	"Лабораторная работа",
	"Практическая работа",
	"Домашнее задание",
	"Курсовой проект (работа)",
}

// rowCells hands out the cells of a table row, each at most once, so a cell
// matched by one field is never reinterpreted as another.
type rowCells struct {
	cells   []*goquery.Selection
	claimed []bool
}

func newRowCells(row *goquery.Selection) *rowCells {
	cells := []*goquery.Selection{}
	row.Find("td").Each(func(_ int, td *goquery.Selection) {
		cells = append(cells, td)
	})
	return &rowCells{cells: cells, claimed: make([]bool, len(cells))}
}

// pick returns the cell at the preferred index if it matches, otherwise the
// first unclaimed cell that does. Columns shift when the subject cell carries
// the teacher link, so position alone is not trusted.
func (r *rowCells) pick(preferred int, match func(*goquery.Selection) bool) *goquery.Selection {
	if preferred >= 0 && preferred < len(r.cells) && !r.claimed[preferred] && match(r.cells[preferred]) {
		r.claimed[preferred] = true
		return r.cells[preferred]
	}
	for i, cell := range r.cells {
		if r.claimed[i] || !match(cell) {
			continue
		}
		r.claimed[i] = true
		return cell
	}
	return nil
}

func has(selector string) func(*goquery.Selection) bool {
	return func(cell *goquery.Selection) bool {
		return cell.Find(selector).Length() > 0
	}
}

func isNumberCell(cell *goquery.Selection) bool {
	return cell.HasClass("text-center") && parseNumber(htmlutil.Text(cell)) != nil
}

func isScoreCell(cell *goquery.Selection) bool {
	_, _, ok := parseScore(htmlutil.Text(cell))
	return ok
}

func isTypeCell(cell *goquery.Selection) bool {
	return textutil.BestMatch(htmlutil.Text(cell), taskTypes) >= 0
}

func isDeadlineCell(cell *goquery.Selection) bool {
	return cell.Find("span.text-warning, span.text-danger").Length() > 0
}

func isBlankDeadlineCell(cell *goquery.Selection) bool {
	return cell.HasClass("text-center") &&
		cell.Find("time").Length() == 0 &&
		cell.Find(".badge").Length() == 0
}

// parseTaskRow maps a 9+ cell row of the tasks table, nil when the row has
// neither a subject nor a task name.
func parseTaskRow(row *goquery.Selection, base *url.URL, location *time.Location, now time.Time) *TaskRecord {
	r := newRowCells(row)
	if len(r.cells) < minTaskCells {
		return nil
	}
	r.pick(0, has("a.btn"))

	record := TaskRecord{
		Deadline: Deadline{Text: defaultDeadlineText},
		Status:   Status{Code: StatusUnknown},
	}

	subjectCell := r.pick(1, has("a.blue-link"))
	if subjectCell != nil {
		subject := htmlutil.GetAnchor(subjectCell.Find("a.blue-link"), base)
		record.Subject = Subject{Name: subject.Name, Link: subject.Href}
	}
	if cell := r.pick(2, isNumberCell); cell != nil {
		record.Task.Number = parseNumber(htmlutil.Text(cell))
	}
	if cell := r.pick(3, has("a.link-switch-blue")); cell != nil {
		task := htmlutil.GetAnchor(cell.Find("a.link-switch-blue"), base)
		record.Task.Name = task.Name
		record.Task.Link = task.Href
		record.Task.Id = taskIdFromLink(task.Href)
	}
	if cell := r.pick(4, has(".badge")); cell != nil {
		text := htmlutil.Text(cell.Find(".badge").First())
		record.Status = Status{Code: MapStatus(text), Text: text}
	}
	if cell := r.pick(5, isScoreCell); cell != nil {
		record.Score.Achieved, record.Score.Max, _ = parseScore(htmlutil.Text(cell))
	}
	if cell := r.pick(6, isTypeCell); cell != nil {
		text := htmlutil.Text(cell)
		record.Task.Type = taskTypes[textutil.BestMatch(text, taskTypes)]
	}

	deadlineCell := r.pick(7, isDeadlineCell)
	if deadlineCell == nil {
		deadlineCell = r.pick(7, isBlankDeadlineCell)
	}
	if deadlineCell != nil {
		if span := deadlineCell.Find("span").First(); span.Length() > 0 {
			if text := htmlutil.Text(span); text != "" {
				record.Deadline.Text = text
			}
		}
	}
	record.Deadline.ParsedDate = parseDeadline(record.Deadline.Text, location)

	record.Task.CreatedAt = now.Format(time.RFC3339)
	if cell := r.pick(8, has("time")); cell != nil {
		t := cell.Find("time").First()
		if text := htmlutil.Text(t); text != "" {
			record.Task.CreatedAt = text
		} else if attr := t.AttrOr("datetime", ""); attr != "" {
			record.Task.CreatedAt = attr
		}
	}

	if cell := r.pick(9, has("a.blue-link")); cell != nil {
		teacher := htmlutil.GetAnchor(cell.Find("a.blue-link"), base)
		record.Teacher = Teacher{FullName: teacher.Name, Link: teacher.Href}
	} else if subjectCell != nil {
		links := subjectCell.Find("a.blue-link")
		if links.Length() > 1 {
			teacher := htmlutil.GetAnchor(links.Eq(1), base)
			record.Teacher = Teacher{FullName: teacher.Name, Link: teacher.Href}
		}
	}

	if record.Subject.Name == "" && record.Task.Name == "" {
		return nil
	}
	return &record
}

// ParseTasksPage parses the first table of a tasks page.
func ParseTasksPage(snapshot browser.Snapshot, location *time.Location, now time.Time) ([]TaskRecord, error) {
	if snapshot.Doc == nil {
		return nil, apperr.Structural("", fmt.Errorf("tasks: empty snapshot"))
	}
	table := snapshot.Doc.Find("table").First()
	if table.Length() == 0 {
		return nil, apperr.Structural("", fmt.Errorf("tasks: no table at %s", snapshot.URL))
	}
	base := snapshot.Base()
	tasks := []TaskRecord{}
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		if record := parseTaskRow(row, base, location, now); record != nil {
			tasks = append(tasks, *record)
		}
	})
	return tasks, nil
}

// TaskKey identifies a task across pages: the portal id when the link has
// one, otherwise subject, type and deadline.
func TaskKey(t TaskRecord) string {
	if t.Task.Id != nil {
		return "id:" + strconv.FormatInt(*t.Task.Id, 10)
	}
	return t.Subject.Name + "|" + t.Task.Type + "|" + t.Deadline.Text
}

// ScrapeTasks walks every page of the student's task list.
func (p *Portal) ScrapeTasks(ctx context.Context, creds session.Credentials) (TasksResult, error) {
	var walk walkResult[TaskRecord]
	total := 0

	err := p.scrape(ctx, creds, "Portal.ScrapeTasks", func(ctx context.Context, page browser.Page) error {
		snapshot, state, err := p.openPage(ctx, page, p.urls.Tasks(), withContainer("table"))
		if err != nil {
			return err
		}
		if state == NotRecognized {
			return apperr.Structural("Не удалось распознать страницу заданий", fmt.Errorf("no tasks table at %s", snapshot.URL))
		}
		if state == Empty {
			walk = walkResult[TaskRecord]{Records: []TaskRecord{}}
			return nil
		}

		total = ParseTotal(snapshot.Doc)
		location := p.time.Location()
		walk, err = walkPages(ctx, page, p.tel, walkOptions{
			Total:       total,
			RowsTimeout: p.timeouts.PageRows,
			Settle:      p.timeouts.PaginationSettle,
		}, func(s browser.Snapshot) ([]TaskRecord, error) {
			return ParseTasksPage(s, location, p.time.Now())
		}, TaskKey)
		return err
	})
	if err != nil {
		return TasksResult{}, err
	}

	return TasksResult{
		Success:      true,
		Message:      fmt.Sprintf("✅ Успешный вход! Найдено заданий: %d", len(walk.Records)),
		Tasks:        walk.Records,
		TasksCount:   len(walk.Records),
		TotalTasks:   total,
		Partial:      walk.Partial,
		PagesVisited: walk.Pages,
		Timestamp:    p.time.Now(),
	}, nil
}
