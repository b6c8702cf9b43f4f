package htmlutil

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, doc string) *goquery.Document {
	t.Helper()
	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	require.NoError(t, err)
	return parsed
}

func TestTextHelpers(t *testing.T) {
	doc := parse(t, `<div class="teacher">
		Иванов И.И.
		<span>(доцент)</span>
	</div>
	<p><i class="bi-geo-alt"></i> ул. Гастелло, 15 <b>x</b> tail</p>`)

	teacher := doc.Find(".teacher")
	require.Equal(t, "Иванов И.И. (доцент)", Text(teacher))
	require.Equal(t, "Иванов И.И.", OwnText(teacher))
	require.Equal(t, "Иванов И.И.", FirstOwnText(teacher))
	require.Equal(t, "ул. Гастелло, 15", FollowingText(doc.Find(".bi-geo-alt")))
	require.Equal(t, "", Text(doc.Find(".missing")))
}

func TestResolveURL(t *testing.T) {
	base, err := url.Parse("https://pro.guap.ru/inside/student/tasks/")
	require.NoError(t, err)

	table := []struct {
		href     string
		expected string
	}{
		{href: "/inside/student/tasks/123", expected: "https://pro.guap.ru/inside/student/tasks/123"},
		{href: "456", expected: "https://pro.guap.ru/inside/student/tasks/456"},
		{href: "HTTPS://PRO.GUAP.RU:443/x", expected: "https://pro.guap.ru/x"},
		{href: "", expected: ""},
		{href: "#", expected: ""},
		{href: "javascript:void(0)", expected: ""},
	}
	for _, row := range table {
		require.Equal(t, row.expected, ResolveURL(base, row.href), row.href)
	}
}

func TestCSSPath(t *testing.T) {
	doc := parse(t, `<html><body>
		<div>first</div>
		<ul class="pagination">
			<li class="page-item"><a class="page-link">1</a></li>
			<li class="page-item"><a class="page-link" aria-label="Next">›</a></li>
		</ul>
	</body></html>`)

	next := doc.Find(`.page-link[aria-label="Next"]`)
	path := CSSPath(next)
	require.Equal(t, "html > body:nth-child(2) > ul:nth-child(2) > li:nth-child(2) > a:nth-child(1)", path)

	found := doc.Find(path)
	require.Equal(t, 1, found.Length())
	require.Equal(t, "›", Text(found))
}

func TestGetAnchor(t *testing.T) {
	base, _ := url.Parse("https://pro.guap.ru/")
	doc := parse(t, `<td><a class="blue-link" href="/subjects/1"> Физика </a><a class="blue-link" href="/users/2">Петров П.П.</a></td>`)

	require.Equal(t, Anchor{Name: "Физика", Href: "https://pro.guap.ru/subjects/1"}, GetAnchor(doc.Find("a.blue-link"), base))
	require.Equal(t, Anchor{}, GetAnchor(doc.Find("a.missing"), base))
}
