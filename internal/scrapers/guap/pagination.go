package guap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"guapassist-backend/internal/apperr"
	"guapassist-backend/internal/browser"
	"guapassist-backend/internal/components/telemetry"
	"guapassist-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_walk_parse = "pagination.parse-page"
	report_walk_next  = "pagination.next-page"

	maxConsecutivePageErrors = 2
)

// nextPageSelector finds the enabled "next" control of a bootstrap pagination
// and returns a selector addressing it, false when there is none.
func nextPageSelector(doc *goquery.Document) (string, bool) {
	var next *goquery.Selection
	doc.Find(".page-item").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if item.HasClass("disabled") || item.HasClass("active") {
			return true
		}
		link := item.Find(".page-link").First()
		if link.Length() == 0 {
			return true
		}
		label := strings.ToLower(link.AttrOr("aria-label", ""))
		text := htmlutil.Text(link)
		if strings.Contains(label, "next") ||
			strings.Contains(label, "следующ") ||
			text == "›" || text == "»" ||
			strings.Contains(strings.ToLower(text), "следующая") {
			next = link
			return false
		}
		return true
	})

	if next == nil {
		// some lists only render an unlabeled arrow as the last item
		last := doc.Find(".page-item").Last()
		link := last.Find(".page-link").First()
		if last.Length() > 0 && link.Length() > 0 &&
			!last.HasClass("disabled") && !last.HasClass("active") &&
			parseNumber(htmlutil.Text(link)) == nil {
			next = link
		}
	}
	if next == nil {
		return "", false
	}
	return htmlutil.CSSPath(next), true
}

// pageFingerprint changes whenever a different page of the table is rendered.
func pageFingerprint(doc *goquery.Document) string {
	return htmlutil.Text(doc.Find("table tbody tr").First()) + "|" + htmlutil.Text(doc.Find(".page-item.active").First())
}

type walkOptions struct {
	// Total is the declared record count, 0 when the page shows none.
	Total       int
	RowsTimeout time.Duration
	Settle      time.Duration
}

type walkResult[T any] struct {
	Records []T
	Pages   int
	// Partial is set when the walk stopped before reaching Total.
	Partial bool
}

// walkPages parses the current page of a paginated table, then keeps clicking
// "next" and merging records by key until Total is reached, there is no next
// control, two pages in a row fail to parse or add no new records, or Total+2
// page advances happened.
// Per-page failures are not errors, only a dead page or a cancelled context is.
func walkPages[T any](
	ctx context.Context,
	page browser.Page,
	tel telemetry.API,
	options walkOptions,
	parse func(browser.Snapshot) ([]T, error),
	key func(T) string,
) (walkResult[T], error) {
	result := walkResult[T]{Records: []T{}}
	seen := map[string]struct{}{}
	consecutiveErrors := 0
	advances := 0
	stoppedOnErrors := false

	for {
		snapshot, err := browser.TakeSnapshot(ctx, page)
		var records []T
		if err == nil {
			records, err = parse(snapshot)
		}
		if err != nil && (errors.Is(err, apperr.ErrDetached) || ctx.Err() != nil) {
			return result, err
		}

		if err != nil {
			consecutiveErrors++
			tel.ReportWarning(report_walk_parse, err, advances)
			if consecutiveErrors >= maxConsecutivePageErrors {
				stoppedOnErrors = true
				break
			}
		} else {
			result.Pages++
			added := 0
			for _, record := range records {
				k := key(record)
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				result.Records = append(result.Records, record)
				added++
			}
			if len(result.Records) >= options.Total {
				break
			}
			// an advance that shows nothing new counts as a failed page
			if added > 0 || advances == 0 {
				consecutiveErrors = 0
			} else {
				consecutiveErrors++
				tel.ReportDebug("page added no new records", advances)
				if consecutiveErrors >= maxConsecutivePageErrors {
					stoppedOnErrors = true
					break
				}
			}
		}

		if advances >= options.Total+2 || snapshot.Doc == nil {
			break
		}
		selector, ok := nextPageSelector(snapshot.Doc)
		if !ok {
			break
		}
		before := pageFingerprint(snapshot.Doc)

		err = page.Click(ctx, selector)
		if err != nil {
			if errors.Is(err, apperr.ErrDetached) || ctx.Err() != nil {
				return result, err
			}
			tel.ReportWarning(report_walk_next, err, selector)
			break
		}
		advances++

		_, err = browser.WaitFor(ctx, page, options.RowsTimeout, func(s browser.Snapshot) bool {
			return s.Doc.Find("table tbody tr").Length() > 0 && pageFingerprint(s.Doc) != before
		})
		if err != nil {
			if errors.Is(err, apperr.ErrDetached) || ctx.Err() != nil {
				return result, err
			}
			tel.ReportDebug("next page did not render new rows", advances, err)
		}
		if err := browser.Sleep(ctx, options.Settle); err != nil {
			return result, apperr.Transient("", err)
		}
	}

	if options.Total > 0 && len(result.Records) > options.Total {
		result.Records = result.Records[:options.Total]
	}
	result.Partial = stoppedOnErrors || (options.Total > 0 && len(result.Records) < options.Total)
	if result.Partial {
		tel.ReportWarning(report_walk_parse, fmt.Sprintf("stopped at %d of %d records", len(result.Records), options.Total))
	}
	return result, nil
}
