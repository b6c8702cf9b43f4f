package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeLabel(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "Группа:", expected: "группа"},
		{input: "  Форма \n обучения  ", expected: "форма обучения"},
		{input: "Email", expected: "email"},
	}
	for _, row := range table {
		require.Equal(t, row.expected, NormalizeLabel(row.input))
	}
}

func TestBestMatch(t *testing.T) {
	candidates := []string{"Институт", "Группа", "Форма обучения"}

	table := []struct {
		label    string
		expected int
	}{
		{label: "Институт/факультет:", expected: 0},
		{label: "Группа", expected: 1},
		{label: "Форма обученя", expected: 2},
		{label: "Телефон", expected: -1},
		{label: "", expected: -1},
	}
	for _, row := range table {
		require.Equal(t, row.expected, BestMatch(row.label, candidates), row.label)
	}
}

func TestContainsAny(t *testing.T) {
	require.True(t, ContainsAny("Лабораторная работа №3", "лаб"))
	require.False(t, ContainsAny("Реферат", "лаб", "практ"))
}
