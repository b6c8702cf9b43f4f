package htmlutil

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/PuerkitoBio/purell"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		getTextRecursive(child, buffer)
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// Clean removes non-printable runes, trims and collapses inner whitespace.
func Clean(s string) string {
	s = removeNonPrintable(s)
	s = innerWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Text returns the cleaned text of the first node in the selection.
func Text(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return Clean(GetText(sel.Nodes[0]))
}

// OwnText returns the cleaned text of the direct text children of the first node,
// ignoring text nested inside child elements.
func OwnText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	var buffer strings.Builder
	for child := sel.Nodes[0].FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			buffer.WriteString(child.Data)
			buffer.WriteString(" ")
		}
	}
	return Clean(buffer.String())
}

// FirstOwnText returns the first non-blank direct text child of the first node.
func FirstOwnText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	for child := sel.Nodes[0].FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.TextNode {
			continue
		}
		if text := Clean(child.Data); text != "" {
			return text
		}
	}
	return ""
}

// FollowingText returns the text of the sibling text nodes right after the first
// node of the selection, stopping at the next element.
func FollowingText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	var buffer strings.Builder
	for sibling := sel.Nodes[0].NextSibling; sibling != nil; sibling = sibling.NextSibling {
		if sibling.Type == html.ElementNode {
			break
		}
		if sibling.Type == html.TextNode {
			buffer.WriteString(sibling.Data)
		}
	}
	return Clean(buffer.String())
}

// ResolveURL resolves href against base and normalizes the result. Invalid
// or empty hrefs resolve to the empty string.
func ResolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") || href == "#" {
		return ""
	}
	link, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		link = base.ResolveReference(link)
	}
	return purell.NormalizeURL(link, purell.FlagsSafe|purell.FlagRemoveDuplicateSlashes)
}

type Anchor struct {
	Name string
	Href string
}

// GetAnchor returns the first anchor of the selection with its href resolved against base.
func GetAnchor(sel *goquery.Selection, base *url.URL) Anchor {
	if sel.Length() == 0 {
		return Anchor{}
	}
	first := sel.First()
	return Anchor{
		Name: Text(first),
		Href: ResolveURL(base, first.AttrOr("href", "")),
	}
}

// CSSPath builds a selector that addresses exactly the first node of sel from the
// document root, ex. "html > body > div:nth-child(2) > a:nth-child(1)".
func CSSPath(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	segments := []string{}
	for node := sel.Nodes[0]; node != nil && node.Type == html.ElementNode; node = node.Parent {
		if node.Data == "html" {
			segments = append(segments, "html")
			break
		}
		index := 1
		for prev := node.PrevSibling; prev != nil; prev = prev.PrevSibling {
			if prev.Type == html.ElementNode {
				index++
			}
		}
		segments = append(segments, fmt.Sprintf("%s:nth-child(%d)", node.Data, index))
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, " > ")
}
