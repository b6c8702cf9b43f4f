package guap

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"guapassist-backend/internal/browser"
	"guapassist-backend/lib/htmlutil"
	"guapassist-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// State is the outcome of looking for a page's data container.
type State int

const (
	// Found means the data container is present.
	Found State = iota
	// Empty means the page explicitly says there is nothing to show.
	Empty
	// NotRecognized means neither the container nor an empty marker is present.
	NotRecognized
)

func (s State) String() string {
	switch s {
	case Found:
		return "found"
	case Empty:
		return "empty"
	default:
		return "not recognized"
	}
}

const (
	selectorScheduleTable = "table.table-bordered"
	selectorInfoAlert     = ".alert.alert-info"
	selectorLoading       = `[class*="loading"], [class*="spinner"]`
)

var emptyPhrases = []string{"нет занятий", "занятий не найдено", "нет записей", "нет данных", "no data"}

// detect classifies a snapshot by its container selector and empty markers.
func detect(snapshot browser.Snapshot, container string) State {
	if snapshot.Has(container) {
		return Found
	}
	if snapshot.Has(selectorInfoAlert) {
		return Empty
	}
	if textutil.ContainsAny(snapshot.BodyText(), emptyPhrases...) {
		return Empty
	}
	return NotRecognized
}

var parens = regexp.MustCompile(`[()]`)

func stripParens(s string) string {
	return strings.TrimSpace(parens.ReplaceAllString(s, ""))
}

// splitLocation splits "building, room" and drops the asterisks the portal
// uses to mark remote rooms.
func splitLocation(raw string) (building, location string) {
	raw = strings.ReplaceAll(raw, "*", "")
	parts := strings.Split(raw, ",")
	building = htmlutil.Clean(parts[0])
	if len(parts) > 1 {
		rest := make([]string, 0, len(parts)-1)
		for _, p := range parts[1:] {
			if p = htmlutil.Clean(p); p != "" {
				rest = append(rest, p)
			}
		}
		location = strings.Join(rest, ", ")
	}
	return building, location
}

// parseClassCell extracts one class from a schedule cell, pair number and time
// range are filled in by the caller.
func parseClassCell(cell *goquery.Selection) ScheduleEntry {
	entry := ScheduleEntry{
		Type:    htmlutil.Text(cell.Find(".badge").Not(".bg-dark").First()),
		Subject: htmlutil.Text(cell.Find(".fw-bolder").First()),
		Group:   htmlutil.Text(cell.Find(".badge.bg-dark").First()),
	}

	teacher := cell.Find(`[class*="teacher"], .short-teacher`).First()
	if teacher.Length() > 0 {
		entry.Teacher = htmlutil.FirstOwnText(teacher)
		info := teacher.Find("span").First()
		entry.TeacherInfo = stripParens(htmlutil.Text(info))
		if entry.Teacher == "" {
			entry.Teacher = htmlutil.Text(teacher)
		}
	}

	geo := cell.Find(".bi-geo-alt").First()
	if geo.Length() > 0 {
		raw := htmlutil.FollowingText(geo)
		if raw == "" {
			raw = htmlutil.Text(geo.Parent())
		}
		entry.Building, entry.Location = splitLocation(raw)
	}
	return entry
}

func isEmptyCell(cell *goquery.Selection) bool {
	text := htmlutil.Text(cell)
	return text == "" || textutil.ContainsAny(text, "нет занятий", "занятий не найдено")
}

var statusRules = []struct {
	code    StatusCode
	needles []string
}{
	// negated forms first, "не отправлен" contains "отправлен"
	{code: StatusNotSubmitted, needles: []string{"не отправлен", "not submitted", "не сдан", "не загружен"}},
	{code: StatusUnknown, needles: []string{"не принят", "отклон", "rejected", "доработ"}},
	{code: StatusChecking, needles: []string{"проверяется", "на проверке", "ожидает проверки", "checking", "review"}},
	{code: StatusAccepted, needles: []string{"принят", "accepted", "зачтен", "зачтён"}},
	{code: StatusSubmitted, needles: []string{"отправлен", "submitted", "загружен"}},
}

// MapStatus maps the portal's status badge text onto a closed set of codes.
func MapStatus(text string) StatusCode {
	for _, rule := range statusRules {
		if textutil.ContainsAny(text, rule.needles...) {
			return rule.code
		}
	}
	return StatusUnknown
}

var scorePattern = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)

func parseScore(text string) (achieved, max int, ok bool) {
	match := scorePattern.FindStringSubmatch(text)
	if match == nil {
		return 0, 0, false
	}
	achieved, _ = strconv.Atoi(match[1])
	max, _ = strconv.Atoi(match[2])
	return achieved, max, true
}

var deadlinePattern = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})(?:\s*,?\s*(\d{1,2}):(\d{2}))?`)

// parseDeadline understands "dd.mm.yyyy" with an optional "hh:mm".
func parseDeadline(text string, location *time.Location) *time.Time {
	match := deadlinePattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	day, _ := strconv.Atoi(match[1])
	month, _ := strconv.Atoi(match[2])
	year, _ := strconv.Atoi(match[3])
	hour, minute := 23, 59
	if match[4] != "" {
		hour, _ = strconv.Atoi(match[4])
		minute, _ = strconv.Atoi(match[5])
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	if location == nil {
		location = time.UTC
	}
	parsed := time.Date(year, time.Month(month), day, hour, minute, 0, 0, location)
	return &parsed
}

var taskIdPattern = regexp.MustCompile(`/tasks/(\d+)`)

func taskIdFromLink(link string) *int64 {
	match := taskIdPattern.FindStringSubmatch(link)
	if match == nil {
		return nil
	}
	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

var digitsPattern = regexp.MustCompile(`^\d+$`)

func parseNumber(text string) *int {
	text = strings.TrimSpace(text)
	if !digitsPattern.MatchString(text) {
		return nil
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return nil
	}
	return &n
}

var totalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`Всего\s+(\d+)\s+запис`),
	regexp.MustCompile(`(\d+)\s+запис`),
	regexp.MustCompile(`из\s+(\d+)`),
	regexp.MustCompile(`(\d+)`),
}

// ParseTotal reads the "Всего N записей" counter of a paginated list, 0 if absent.
func ParseTotal(doc *goquery.Document) int {
	candidates := []string{htmlutil.Text(doc.Find(".float-start").First())}
	doc.Find(".dataTables_info, .pagination-info, .total-records").Each(func(_ int, s *goquery.Selection) {
		candidates = append(candidates, htmlutil.Text(s))
	})

	for _, text := range candidates {
		if text == "" {
			continue
		}
		for _, pattern := range totalPatterns {
			match := pattern.FindStringSubmatch(text)
			if match == nil {
				continue
			}
			if n, err := strconv.Atoi(match[1]); err == nil {
				return n
			}
		}
	}
	return 0
}

func reportType(name string) string {
	switch {
	case textutil.ContainsAny(name, "лаб"):
		return "Лабораторная работа"
	case textutil.ContainsAny(name, "практ"):
		return "Практическая работа"
	case textutil.ContainsAny(name, "дом"):
		return "Домашнее задание"
	case textutil.ContainsAny(name, "курс"):
		return "Курсовой проект (работа)"
	default:
		return "Отчет"
	}
}
