package guap_test

import (
	"context"
	"net/url"
	"testing"

	"guapassist-backend/internal/scrapers/guap"
	"guapassist-backend/internal/scrapers/guap/guaptest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseProfile(t *testing.T) {
	base, _ := url.Parse(guaptest.BaseURL + "/inside/profile")
	profile, err := guap.ParseProfile(fixtureDoc(t, "profile"), base)
	require.NoError(t, err)

	current := guap.Cabinet{Value: "1001", Label: "Студент, 4331", Selected: true}
	expected := guap.ProfileRecord{
		PhotoUrl:        "https://pro.guap.ru/storage/photos/4331-ivanov.jpg",
		FullName:        "Иванов Иван Иванович",
		Institute:       "Институт №4",
		Group:           "4331",
		StudentId:       "2021/0412",
		Specialty:       "09.03.04 Программная инженерия",
		SpecialtyCode:   "09.03.04",
		Direction:       "Разработка программных систем",
		EducationForm:   "Очная",
		EducationLevel:  "Бакалавриат",
		Status:          "Обучается",
		EnrollmentOrder: "№ 05-1234/21 от 01.08.2021",
		Contacts: guap.Contacts{
			Email:        "ivan.ivanov@example.com",
			AccountEmail: "ivanov@guap.ru",
			Phone:        "+7 900 000-00-00",
		},
		AvailableCabinets: []guap.Cabinet{
			current,
			{Value: "1002", Label: "Абитуриент"},
		},
		CurrentCabinet: &current,
	}
	if diff := cmp.Diff(expected, profile); diff != "" {
		t.Fatalf("profile (-want +got):\n%s", diff)
	}
}

func TestParseProfileWithoutCards(t *testing.T) {
	_, err := guap.ParseProfile(fixtureDocFromString(t, "<html><body><p>пусто</p></body></html>"), nil)
	require.Error(t, err)
}

func TestScrapeProfile(t *testing.T) {
	env := guaptest.NewEnv()
	env.Fake.Serve("/inside/profile", guaptest.Fixture("profile"))

	result, err := env.Portal.ScrapeProfile(context.Background(), guaptest.Credentials())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, "Иванов Иван Иванович", result.Profile.FullName)
	require.Equal(t, env.Clock.Now(), result.Profile.ScrapedAt)
}
