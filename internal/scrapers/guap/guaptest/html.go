package guaptest

import (
	"embed"
	"fmt"
	"html"
	"strings"
)

//go:embed fixtures/*.html
var fixtures embed.FS

// Fixture returns the content of fixtures/<name>.html.
func Fixture(name string) string {
	content, err := fixtures.ReadFile("fixtures/" + name + ".html")
	if err != nil {
		panic(err)
	}
	return string(content)
}

func LoginForm(errorText string) string {
	alert := ""
	if errorText != "" {
		alert = fmt.Sprintf(`<div class="alert alert-error"><span class="kc-feedback-text">%s</span></div>`, html.EscapeString(errorText))
	}
	return `<html><head><title>Sign in</title></head><body><div id="kc-form">` + alert + `
<form id="kc-form-login" action="/login-actions/authenticate" method="post">
  <input id="username" name="username" type="text">
  <input id="password-input" name="password" type="password">
  <input type="submit" class="btn btn-primary" value="Войти">
</form></div></body></html>`
}

func Dashboard() string {
	return `<html><body>
<nav class="navigation"><ul class="menu"><li><a href="/inside/profile">Профиль</a></li></ul></nav>
<div class="user-block"><span class="username">Иванов И.И.</span></div>
<main><h1>Личный кабинет</h1></main>
</body></html>`
}

func NotFound() string {
	return `<html><body><nav class="navigation"></nav><h1>404</h1><p>Страница не найдена</p></body></html>`
}

// Pager renders a bootstrap pagination, next is the data-page index of the
// following page or -1 when the "next" control is disabled.
func Pager(active, next int) string {
	var b strings.Builder
	b.WriteString(`<ul class="pagination">`)
	fmt.Fprintf(&b, `<li class="page-item active"><a class="page-link" href="#">%d</a></li>`, active)
	if next >= 0 {
		fmt.Fprintf(&b, `<li class="page-item"><a class="page-link" href="#" aria-label="Next" data-page="%d">›</a></li>`, next)
	} else {
		b.WriteString(`<li class="page-item disabled"><a class="page-link" href="#" aria-label="Next">›</a></li>`)
	}
	b.WriteString(`</ul>`)
	return b.String()
}

func listPage(total int, head, rows, pager string) string {
	return fmt.Sprintf(`<html><body><nav class="navigation"></nav>
<div class="float-start">Всего %d записей</div>
<table class="table table-striped"><thead>%s</thead><tbody>%s</tbody></table>
%s
</body></html>`, total, head, rows, pager)
}

// BrokenPage has the pager of a list page but no table.
func BrokenPage(total int, pager string) string {
	return fmt.Sprintf(`<html><body><nav class="navigation"></nav>
<div class="float-start">Всего %d записей</div>
<div class="alert alert-danger">Ошибка загрузки данных</div>
%s
</body></html>`, total, pager)
}

type TaskRow struct {
	Id       int
	Number   int
	Subject  string
	Teacher  string
	Name     string
	Status   string
	Score    string
	Type     string
	Deadline string
	Updated  string
	// TeacherInSubject puts the teacher link under the subject and drops the
	// teacher column, as the portal does for some disciplines.
	TeacherInSubject bool
}

func (r TaskRow) HTML() string {
	var b strings.Builder
	b.WriteString("<tr>")
	fmt.Fprintf(&b, `<td><a class="btn btn-sm btn-outline-primary" href="/inside/student/tasks/%d/edit">✎</a></td>`, r.Id)
	if r.TeacherInSubject {
		fmt.Fprintf(&b, `<td><a class="blue-link" href="/inside/subjects/%d">%s</a><br><a class="blue-link" href="/inside/professors/%d">%s</a></td>`,
			r.Id, r.Subject, r.Id, r.Teacher)
	} else {
		fmt.Fprintf(&b, `<td><a class="blue-link" href="/inside/subjects/%d">%s</a></td>`, r.Id, r.Subject)
	}
	fmt.Fprintf(&b, `<td class="text-center">%d</td>`, r.Number)
	fmt.Fprintf(&b, `<td><a class="link-switch-blue" href="/inside/student/tasks/%d">%s</a></td>`, r.Id, r.Name)
	fmt.Fprintf(&b, `<td><span class="badge bg-success">%s</span></td>`, r.Status)
	fmt.Fprintf(&b, `<td class="text-center">%s</td>`, r.Score)
	fmt.Fprintf(&b, `<td>%s</td>`, r.Type)
	if r.Deadline != "" {
		fmt.Fprintf(&b, `<td class="text-center"><span class="text-warning">%s</span></td>`, r.Deadline)
	} else {
		b.WriteString(`<td class="text-center"></td>`)
	}
	fmt.Fprintf(&b, `<td><time datetime="%s">%s</time></td>`, r.Updated, r.Updated)
	if !r.TeacherInSubject {
		fmt.Fprintf(&b, `<td><a class="blue-link" href="/inside/professors/%d">%s</a></td>`, r.Id, r.Teacher)
	}
	b.WriteString("</tr>")
	return b.String()
}

func TasksPage(total int, rows []TaskRow, pager string) string {
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(r.HTML())
	}
	head := `<tr><th></th><th>Дисциплина</th><th>№</th><th>Задание</th><th>Статус</th><th>Баллы</th><th>Тип</th><th>Срок</th><th>Обновлено</th><th>Преподаватель</th></tr>`
	return listPage(total, head, b.String(), pager)
}

// Tasks generates n distinct task rows with ids starting at from.
func Tasks(from, n int) []TaskRow {
	rows := make([]TaskRow, 0, n)
	for id := from; id < from+n; id++ {
		rows = append(rows, TaskRow{
			Id:       id,
			Number:   id,
			Subject:  fmt.Sprintf("Дисциплина %d", id),
			Teacher:  fmt.Sprintf("Преподаватель %d", id),
			Name:     fmt.Sprintf("Задание %d", id),
			Status:   "Принят",
			Score:    "5 / 10",
			Type:     "Лабораторная работа",
			Deadline: "15.03.2025",
			Updated:  "01.03.2025 10:00",
		})
	}
	return rows
}

type ReportRow struct {
	Id       int
	Number   int
	Name     string
	Teacher  string
	Status   string
	Score    string
	Date     string
	Download bool
}

func (r ReportRow) HTML() string {
	var b strings.Builder
	b.WriteString("<tr><td>")
	if r.Download {
		fmt.Fprintf(&b, `<a class="btn btn-sm btn-outline-dark" href="/inside/student/reports/%d/download">⬇</a>`, r.Id)
	}
	b.WriteString("</td>")
	fmt.Fprintf(&b, `<td><span class="text-center">%d</span></td>`, r.Number)
	fmt.Fprintf(&b, `<td><a class="blue-link" href="/inside/student/tasks/%d">%s</a></td>`, r.Id, r.Name)
	fmt.Fprintf(&b, `<td><a class="blue-link" href="/inside/professors/%d">%s</a></td>`, r.Id, r.Teacher)
	fmt.Fprintf(&b, `<td><span class="badge bg-info">%s</span></td>`, r.Status)
	fmt.Fprintf(&b, `<td><span>%s</span></td>`, r.Score)
	fmt.Fprintf(&b, `<td><div class="text-center"><span>%s</span></div></td>`, r.Date)
	b.WriteString("</tr>")
	return b.String()
}

func ReportsPage(total int, rows []ReportRow, pager string) string {
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(r.HTML())
	}
	head := `<tr><th></th><th>№</th><th>Задание</th><th>Преподаватель</th><th>Статус</th><th>Баллы</th><th>Дата загрузки</th></tr>`
	return listPage(total, head, b.String(), pager)
}

// Reports generates n distinct report rows with ids starting at from.
func Reports(from, n int) []ReportRow {
	rows := make([]ReportRow, 0, n)
	for id := from; id < from+n; id++ {
		rows = append(rows, ReportRow{
			Id:       id,
			Number:   id,
			Name:     fmt.Sprintf("Лабораторная работа %d", id),
			Teacher:  fmt.Sprintf("Преподаватель %d", id),
			Status:   "Проверяется",
			Score:    "―",
			Date:     "02.03.2025",
			Download: true,
		})
	}
	return rows
}
