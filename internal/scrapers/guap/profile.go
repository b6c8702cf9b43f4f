package guap

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"guapassist-backend/internal/apperr"
	"guapassist-backend/internal/browser"
	"guapassist-backend/internal/session"
	"guapassist-backend/lib/htmlutil"
	"guapassist-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

const selectorProfileCard = ".card"

type profileField struct {
	label string
	set   func(p *ProfileRecord, value string)
}

// matched in order, a longer label must come before any label it contains
var profileFields = []profileField{
	{"Институт", func(p *ProfileRecord, v string) { p.Institute = v }},
	{"Группа", func(p *ProfileRecord, v string) { p.Group = v }},
	{"Номер студенческого билета", func(p *ProfileRecord, v string) { p.StudentId = v }},
	{"Номер зачетной книжки", func(p *ProfileRecord, v string) { p.StudentId = v }},
	{"Специальность", setSpecialty},
	{"Направленность", func(p *ProfileRecord, v string) { p.Direction = v }},
	{"Форма обучения", func(p *ProfileRecord, v string) { p.EducationForm = v }},
	{"Уровень профессионального образования", func(p *ProfileRecord, v string) { p.EducationLevel = v }},
	{"Уровень образования", func(p *ProfileRecord, v string) { p.EducationLevel = v }},
	{"Статус", func(p *ProfileRecord, v string) { p.Status = v }},
	{"Приказ о зачислении", func(p *ProfileRecord, v string) { p.EnrollmentOrder = v }},
}

var contactFields = []profileField{
	{"Почта аккаунта", func(p *ProfileRecord, v string) { p.Contacts.AccountEmail = v }},
	{"Email", func(p *ProfileRecord, v string) { p.Contacts.Email = v }},
	{"E-mail", func(p *ProfileRecord, v string) { p.Contacts.Email = v }},
	{"Электронная почта", func(p *ProfileRecord, v string) { p.Contacts.Email = v }},
	{"Телефон", func(p *ProfileRecord, v string) { p.Contacts.Phone = v }},
}

var specialtyCodePattern = regexp.MustCompile(`\d{2}\.\d{2}\.\d{2}`)

func setSpecialty(p *ProfileRecord, value string) {
	p.Specialty = value
	p.SpecialtyCode = specialtyCodePattern.FindString(value)
}

func labels(fields []profileField) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.label
	}
	return out
}

// applyListItems matches each ".list-group-item" heading against fields and
// stores the item's value.
func applyListItems(card *goquery.Selection, fields []profileField, profile *ProfileRecord) {
	candidates := labels(fields)
	card.Find(".list-group-item").Each(func(_ int, item *goquery.Selection) {
		heading := item.Find("h5, h6").First()
		if heading.Length() == 0 {
			return
		}
		label := htmlutil.OwnText(heading)
		if label == "" {
			label = htmlutil.Text(heading)
		}
		i := textutil.BestMatch(label, candidates)
		if i < 0 {
			return
		}

		value := htmlutil.Text(heading.Find("span.fw-light").First())
		if value == "" {
			value = htmlutil.Text(item.Find(".small").First())
		}
		if value == "" {
			value = htmlutil.Text(item.Find("span.fw-light").First())
		}
		fields[i].set(profile, value)
	})
}

type profileCards struct {
	personal *goquery.Selection
	contacts *goquery.Selection
	cabinets *goquery.Selection
}

// classifyCards identifies the three profile cards by their content and falls
// back to page order for any card that could not be recognized.
func classifyCards(doc *goquery.Document) profileCards {
	var found profileCards
	cards := doc.Find(selectorProfileCard)
	cards.Each(func(_ int, card *goquery.Selection) {
		switch {
		case found.personal == nil && card.Find("h3.text-center, .profile_image").Length() > 0:
			found.personal = card
		case found.cabinets == nil && card.Find(`select[name="eid"]`).Length() > 0:
			found.cabinets = card
		case found.contacts == nil && hasContactHeading(card):
			found.contacts = card
		}
	})

	if found.personal == nil && cards.Length() > 0 {
		found.personal = cards.Eq(0)
	}
	if found.contacts == nil && cards.Length() > 1 {
		found.contacts = cards.Eq(1)
	}
	if found.cabinets == nil && cards.Length() > 2 {
		found.cabinets = cards.Eq(2)
	}
	return found
}

func hasContactHeading(card *goquery.Selection) bool {
	candidates := labels(contactFields)
	match := false
	card.Find("h5, h6").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		match = textutil.BestMatch(htmlutil.OwnText(h), candidates) >= 0
		return !match
	})
	return match
}

// ParseProfile parses the profile page.
func ParseProfile(doc *goquery.Document, base *url.URL) (ProfileRecord, error) {
	profile := ProfileRecord{AvailableCabinets: []Cabinet{}}
	cards := classifyCards(doc)
	if cards.personal == nil {
		return profile, apperr.Structural("Не удалось распознать страницу профиля", fmt.Errorf("no profile cards"))
	}

	image := cards.personal.Find(".profile_image").First()
	if src, ok := image.Attr("src"); ok {
		profile.PhotoUrl = htmlutil.ResolveURL(base, src)
	}
	profile.FullName = htmlutil.Text(cards.personal.Find("h3.text-center").First())
	applyListItems(cards.personal, profileFields, &profile)

	if cards.contacts != nil {
		applyListItems(cards.contacts, contactFields, &profile)
	}

	if cards.cabinets != nil {
		cards.cabinets.Find(`select[name="eid"] option`).Each(func(_ int, option *goquery.Selection) {
			value := option.AttrOr("value", "")
			label := htmlutil.Text(option)
			if value == "" || label == "" {
				return
			}
			_, selected := option.Attr("selected")
			profile.AvailableCabinets = append(profile.AvailableCabinets, Cabinet{
				Value:    value,
				Label:    label,
				Selected: selected,
			})
		})
		for i := range profile.AvailableCabinets {
			if profile.AvailableCabinets[i].Selected {
				current := profile.AvailableCabinets[i]
				profile.CurrentCabinet = &current
				break
			}
		}
	}
	return profile, nil
}

// ScrapeProfile scrapes the student's profile page.
func (p *Portal) ScrapeProfile(ctx context.Context, creds session.Credentials) (ProfileResult, error) {
	var profile ProfileRecord
	err := p.scrape(ctx, creds, "Portal.ScrapeProfile", func(ctx context.Context, page browser.Page) error {
		snapshot, state, err := p.openPage(ctx, page, p.urls.Profile(), withContainer(selectorProfileCard))
		if err != nil {
			return err
		}
		if state != Found {
			return apperr.Structural("Не удалось распознать страницу профиля", fmt.Errorf("no profile cards at %s", snapshot.URL))
		}
		profile, err = ParseProfile(snapshot.Doc, snapshot.Base())
		if err != nil {
			return err
		}
		profile.ScrapedAt = p.time.Now()
		return nil
	})
	if err != nil {
		return ProfileResult{}, err
	}

	return ProfileResult{
		Success:   true,
		Message:   "✅ Профиль успешно получен!",
		Profile:   profile,
		Timestamp: p.time.Now(),
	}, nil
}
