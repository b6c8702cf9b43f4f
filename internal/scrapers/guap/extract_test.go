package guap

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parseHTML(t *testing.T, content string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	require.NoError(t, err)
	return doc
}

func TestMapStatus(t *testing.T) {
	cases := []struct {
		text     string
		expected StatusCode
	}{
		{"Принят", StatusAccepted},
		{"Зачтено", StatusAccepted},
		{"accepted", StatusAccepted},
		{"Проверяется", StatusChecking},
		{"Ожидает проверки", StatusChecking},
		{"Отправлен", StatusSubmitted},
		{"Не отправлен", StatusNotSubmitted},
		{"not submitted", StatusNotSubmitted},
		{"Не принят", StatusUnknown},
		{"Отклонен", StatusUnknown},
		{"Требует доработки", StatusUnknown},
		{"", StatusUnknown},
		{"что-то новое", StatusUnknown},
	}
	for _, c := range cases {
		t.Run(c.text, func(t *testing.T) {
			require.Equal(t, c.expected, MapStatus(c.text))
		})
	}
}

func TestParseDeadline(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*60*60)

	t.Run("date only ends the day", func(t *testing.T) {
		parsed := parseDeadline("15.03.2025", moscow)
		require.NotNil(t, parsed)
		require.Equal(t, time.Date(2025, time.March, 15, 23, 59, 0, 0, moscow), *parsed)
	})

	t.Run("date and time", func(t *testing.T) {
		parsed := parseDeadline("до 01.04.2025 18:30", moscow)
		require.NotNil(t, parsed)
		require.Equal(t, time.Date(2025, time.April, 1, 18, 30, 0, 0, moscow), *parsed)
	})

	t.Run("no date", func(t *testing.T) {
		require.Nil(t, parseDeadline("Спи спокойно", moscow))
	})

	t.Run("impossible month", func(t *testing.T) {
		require.Nil(t, parseDeadline("10.13.2025", moscow))
	})
}

func TestParseTotal(t *testing.T) {
	cases := []struct {
		name     string
		html     string
		expected int
	}{
		{"float start", `<div class="float-start">Всего 42 записей</div>`, 42},
		{"short form", `<div class="float-start">17 записей</div>`, 17},
		{"bare number", `<div class="float-start">Итого: 9</div>`, 9},
		{"datatables", `<div class="dataTables_info">Показано с 1 по 10 из 35</div>`, 35},
		{"absent", `<div>nothing here</div>`, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.expected, ParseTotal(parseHTML(t, c.html)))
		})
	}
}

func TestSplitLocation(t *testing.T) {
	building, location := splitLocation(" Б.Морская 67, ауд. 52-18* ")
	require.Equal(t, "Б.Морская 67", building)
	require.Equal(t, "ауд. 52-18", location)

	building, location = splitLocation("Гастелло 15*")
	require.Equal(t, "Гастелло 15", building)
	require.Equal(t, "", location)
}

func TestNextPageSelector(t *testing.T) {
	t.Run("labeled next", func(t *testing.T) {
		doc := parseHTML(t, `<ul>
			<li class="page-item active"><a class="page-link">1</a></li>
			<li class="page-item"><a class="page-link">2</a></li>
			<li class="page-item"><a class="page-link" aria-label="Next" id="next">›</a></li>
		</ul>`)
		selector, ok := nextPageSelector(doc)
		require.True(t, ok)
		require.Equal(t, "next", doc.Find(selector).AttrOr("id", ""))
	})

	t.Run("disabled next", func(t *testing.T) {
		doc := parseHTML(t, `<ul>
			<li class="page-item active"><a class="page-link">3</a></li>
			<li class="page-item disabled"><a class="page-link" aria-label="Next">›</a></li>
		</ul>`)
		_, ok := nextPageSelector(doc)
		require.False(t, ok)
	})

	t.Run("unlabeled last arrow", func(t *testing.T) {
		doc := parseHTML(t, `<ul>
			<li class="page-item active"><a class="page-link">1</a></li>
			<li class="page-item"><a class="page-link" id="arrow">&gt;</a></li>
		</ul>`)
		selector, ok := nextPageSelector(doc)
		require.True(t, ok)
		require.Equal(t, "arrow", doc.Find(selector).AttrOr("id", ""))
	})

	t.Run("numbered last item is not next", func(t *testing.T) {
		doc := parseHTML(t, `<ul>
			<li class="page-item active"><a class="page-link">1</a></li>
			<li class="page-item"><a class="page-link">2</a></li>
		</ul>`)
		_, ok := nextPageSelector(doc)
		require.False(t, ok)
	})
}

func TestParseTaskRow(t *testing.T) {
	base, _ := url.Parse("https://pro.guap.ru/inside/student/tasks/")
	moscow := time.FixedZone("MSK", 3*60*60)
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, moscow)

	t.Run("teacher column", func(t *testing.T) {
		doc := parseHTML(t, `<table><tbody><tr>
			<td><a class="btn" href="/edit">e</a></td>
			<td><a class="blue-link" href="/inside/subjects/3">Базы данных</a></td>
			<td class="text-center">4</td>
			<td><a class="link-switch-blue" href="/inside/student/tasks/991">ЛР4 Индексы</a></td>
			<td><span class="badge">Не отправлен</span></td>
			<td class="text-center">0 / 10</td>
			<td>Лабораторная работа</td>
			<td class="text-center"><span class="text-danger">20.03.2025 12:00</span></td>
			<td><time>01.03.2025</time></td>
			<td><a class="blue-link" href="/inside/professors/8">Орлов О.О.</a></td>
		</tr></tbody></table>`)
		record := parseTaskRow(doc.Find("tr").First(), base, moscow, now)
		require.NotNil(t, record)
		require.Equal(t, "Базы данных", record.Subject.Name)
		require.Equal(t, "https://pro.guap.ru/inside/subjects/3", record.Subject.Link)
		require.Equal(t, 4, *record.Task.Number)
		require.Equal(t, int64(991), *record.Task.Id)
		require.Equal(t, "ЛР4 Индексы", record.Task.Name)
		require.Equal(t, StatusNotSubmitted, record.Status.Code)
		require.Equal(t, Score{Achieved: 0, Max: 10}, record.Score)
		require.Equal(t, "Лабораторная работа", record.Task.Type)
		require.Equal(t, "20.03.2025 12:00", record.Deadline.Text)
		require.Equal(t, time.Date(2025, time.March, 20, 12, 0, 0, 0, moscow), *record.Deadline.ParsedDate)
		require.Equal(t, "01.03.2025", record.Task.CreatedAt)
		require.Equal(t, "Орлов О.О.", record.Teacher.FullName)
	})

	t.Run("teacher inside the subject cell", func(t *testing.T) {
		doc := parseHTML(t, `<table><tbody><tr>
			<td><a class="btn" href="/edit">e</a></td>
			<td><a class="blue-link" href="/s/1">Физика</a><br><a class="blue-link" href="/p/2">Кузнецов К.К.</a></td>
			<td class="text-center">1</td>
			<td><a class="link-switch-blue" href="/inside/student/tasks/5">Отчет 1</a></td>
			<td><span class="badge">Принят</span></td>
			<td class="text-center">8 / 10</td>
			<td>Практическая работа</td>
			<td class="text-center"></td>
			<td><time datetime="2025-02-01"></time></td>
		</tr></tbody></table>`)
		record := parseTaskRow(doc.Find("tr").First(), base, moscow, now)
		require.NotNil(t, record)
		require.Equal(t, "Кузнецов К.К.", record.Teacher.FullName)
		require.Equal(t, "Практическая работа", record.Task.Type)
		require.Equal(t, defaultDeadlineText, record.Deadline.Text)
		require.Nil(t, record.Deadline.ParsedDate)
		require.Equal(t, "2025-02-01", record.Task.CreatedAt)
	})

	t.Run("short row", func(t *testing.T) {
		doc := parseHTML(t, `<table><tbody><tr><td>1</td><td>2</td></tr></tbody></table>`)
		require.Nil(t, parseTaskRow(doc.Find("tr").First(), base, moscow, now))
	})
}

func TestTaskKey(t *testing.T) {
	id := int64(7)
	require.Equal(t, "id:7", TaskKey(TaskRecord{Task: TaskInfo{Id: &id}}))
	require.Equal(t, "Физика|Лабораторная работа|Спи спокойно", TaskKey(TaskRecord{
		Subject:  Subject{Name: "Физика"},
		Task:     TaskInfo{Type: "Лабораторная работа"},
		Deadline: Deadline{Text: "Спи спокойно"},
	}))
}

func TestReportType(t *testing.T) {
	require.Equal(t, "Лабораторная работа", reportType("Лабораторная №3"))
	require.Equal(t, "Практическая работа", reportType("Практика 2"))
	require.Equal(t, "Домашнее задание", reportType("Домашка"))
	require.Equal(t, "Курсовой проект (работа)", reportType("Курсовая"))
	require.Equal(t, "Отчет", reportType("Эссе"))
}
