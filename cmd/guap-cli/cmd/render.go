package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"guapassist-backend/internal/scrapers/guap"
	"guapassist-backend/internal/session"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(out io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

func printJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(value)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func renderSessions(out io.Writer, stats session.Stats, sessions []session.Info) {
	t := newTable(out, fmt.Sprintf("sessions: %d total, %d active, %d expired", stats.Total, stats.Active, stats.Expired))
	t.AppendHeader(table.Row{"User", "Created", "Last activity", "Age", "Valid", "Expired"})
	for _, s := range sessions {
		t.AppendRow(table.Row{
			s.UserId,
			s.CreatedAt.Format(time.DateTime),
			s.LastActivity.Format(time.DateTime),
			(time.Duration(s.Age) * time.Millisecond).Round(time.Second).String(),
			s.IsValid,
			s.Expired,
		})
	}
	t.Render()
}

func renderEntries(t table.Writer, day string, entries []guap.ScheduleEntry) {
	for _, e := range entries {
		t.AppendRow(table.Row{
			day,
			orDash(e.PairNumber),
			orDash(e.TimeRange),
			orDash(e.Type),
			e.Subject,
			orDash(e.Teacher),
			orDash(e.Location),
		})
	}
}

var scheduleHeader = table.Row{"Day", "Pair", "Time", "Type", "Subject", "Teacher", "Location"}

func renderWeek(out io.Writer, result guap.WeekScheduleResult) {
	t := newTable(out, fmt.Sprintf("%d, week %d", result.Year, result.Week))
	t.AppendHeader(scheduleHeader)
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, AutoMerge: true}})
	for _, day := range result.Schedule.Days {
		label := strings.TrimSpace(day.DayName + " " + day.Date)
		if len(day.Classes) == 0 {
			t.AppendRow(table.Row{label, "-", "-", "-", "нет занятий", "-", "-"})
			continue
		}
		renderEntries(t, label, day.Classes)
	}
	renderEntries(t, "вне сетки", result.Schedule.ExtraClasses)
	t.Render()
}

func renderDay(out io.Writer, result guap.DayScheduleResult) {
	t := newTable(out, result.Date)
	t.AppendHeader(scheduleHeader)
	renderEntries(t, result.Date, result.Schedule)
	t.Render()
}

func footer(count, total int, partial bool, pages int) string {
	summary := fmt.Sprintf("%d of %d, %d pages", count, total, pages)
	if partial {
		summary += " (partial)"
	}
	return summary
}

func statusColor(code guap.StatusCode) text.Colors {
	switch code {
	case guap.StatusAccepted:
		return text.Colors{text.FgGreen}
	case guap.StatusChecking, guap.StatusSubmitted:
		return text.Colors{text.FgYellow}
	case guap.StatusNotSubmitted:
		return text.Colors{text.FgRed}
	default:
		return nil
	}
}

func renderTasks(out io.Writer, result guap.TasksResult) {
	t := newTable(out, "tasks")
	t.AppendHeader(table.Row{"#", "Task", "Subject", "Deadline", "Score", "Status"})
	for _, task := range result.Tasks {
		number := "-"
		if task.Task.Number != nil {
			number = fmt.Sprint(*task.Task.Number)
		}
		t.AppendRow(table.Row{
			number,
			task.Task.Name,
			task.Subject.Name,
			task.Deadline.Text,
			fmt.Sprintf("%d/%d", task.Score.Achieved, task.Score.Max),
			statusColor(task.Status.Code).Sprint(orDash(task.Status.Text)),
		})
	}
	t.AppendFooter(table.Row{"", footer(result.TasksCount, result.TotalTasks, result.Partial, result.PagesVisited)})
	t.Render()
}

func optionalScore(score *int) string {
	if score == nil {
		return "―"
	}
	return fmt.Sprint(*score)
}

func renderReports(out io.Writer, result guap.ReportsResult) {
	t := newTable(out, "reports")
	t.AppendHeader(table.Row{"Task", "Type", "Teacher", "Loaded", "Score", "Status", "File"})
	for _, r := range result.Reports {
		score := "―"
		if !r.Score.IsEmpty {
			score = fmt.Sprintf("%s/%s", optionalScore(r.Score.Achieved), optionalScore(r.Score.Max))
		}
		file := "-"
		if r.Attachments.HasAttachment {
			file = r.Attachments.DownloadUrl
		}
		t.AppendRow(table.Row{
			r.Task.Name,
			orDash(r.Task.Type),
			orDash(r.Teacher.FullName),
			orDash(r.LoadDate.Text),
			score,
			statusColor(r.Status.Code).Sprint(orDash(r.Status.Text)),
			file,
		})
	}
	t.AppendFooter(table.Row{footer(result.ReportsCount, result.TotalReports, result.Partial, result.PagesVisited)})
	t.Render()
}

func renderProfile(out io.Writer, result guap.ProfileResult) {
	p := result.Profile
	t := newTable(out, orDash(p.FullName))
	rows := []table.Row{
		{"Институт", p.Institute},
		{"Группа", p.Group},
		{"Студенческий билет", p.StudentId},
		{"Специальность", strings.TrimSpace(p.SpecialtyCode + " " + p.Specialty)},
		{"Направленность", p.Direction},
		{"Форма обучения", p.EducationForm},
		{"Уровень", p.EducationLevel},
		{"Статус", p.Status},
		{"Приказ о зачислении", p.EnrollmentOrder},
		{"Email", p.Contacts.Email},
		{"Телефон", p.Contacts.Phone},
	}
	if p.CurrentCabinet != nil {
		rows = append(rows, table.Row{"Кабинет", p.CurrentCabinet.Label})
	}
	for _, row := range rows {
		t.AppendRow(table.Row{row[0], orDash(fmt.Sprint(row[1]))})
	}
	t.Render()
}
