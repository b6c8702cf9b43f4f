package guap_test

import (
	"context"
	"testing"

	"guapassist-backend/internal/browser/browsertest"
	"guapassist-backend/internal/scrapers/guap"
	"guapassist-backend/internal/scrapers/guap/guaptest"

	"github.com/stretchr/testify/require"
)

const tasksPath = "/inside/student/tasks/"

func requireUniqueTasks(t *testing.T, tasks []guap.TaskRecord) {
	t.Helper()
	seen := map[string]bool{}
	for _, task := range tasks {
		key := guap.TaskKey(task)
		require.False(t, seen[key], "duplicate task %s", key)
		seen[key] = true
	}
}

// paginationClicks counts clicks other than the login form submission.
func paginationClicks(page *browsertest.Page) int {
	n := 0
	for _, selector := range page.Clicks() {
		if selector != `input[type="submit"]` {
			n++
		}
	}
	return n
}

func TestScrapeTasks(t *testing.T) {
	ctx := context.Background()

	t.Run("two pages", func(t *testing.T) {
		env := guaptest.NewEnv()
		env.Fake.ServePaginated(tasksPath,
			guaptest.TasksPage(10, guaptest.Tasks(1, 7), guaptest.Pager(1, 1)),
			guaptest.TasksPage(10, guaptest.Tasks(8, 3), guaptest.Pager(2, -1)),
		)

		result, err := env.Portal.ScrapeTasks(ctx, guaptest.Credentials())
		require.NoError(t, err)
		require.True(t, result.Success)
		require.Len(t, result.Tasks, 10)
		require.Equal(t, 10, result.TasksCount)
		require.Equal(t, 10, result.TotalTasks)
		require.Equal(t, 2, result.PagesVisited)
		require.False(t, result.Partial)
		requireUniqueTasks(t, result.Tasks)

		first := result.Tasks[0]
		require.Equal(t, int64(1), *first.Task.Id)
		require.Equal(t, "https://pro.guap.ru/inside/student/tasks/1", first.Task.Link)
		require.Equal(t, "Дисциплина 1", first.Subject.Name)
		require.Equal(t, "Преподаватель 1", first.Teacher.FullName)
		require.Equal(t, guap.StatusAccepted, first.Status.Code)
		require.Equal(t, guap.Score{Achieved: 5, Max: 10}, first.Score)
		require.NotNil(t, first.Deadline.ParsedDate)
	})

	t.Run("re-rendered first page is deduplicated", func(t *testing.T) {
		env := guaptest.NewEnv()
		env.Fake.ServePaginated(tasksPath,
			guaptest.TasksPage(8, guaptest.Tasks(1, 5), guaptest.Pager(1, 1)),
			guaptest.TasksPage(8, guaptest.Tasks(1, 5), guaptest.Pager(1, 2)),
			guaptest.TasksPage(8, guaptest.Tasks(6, 3), guaptest.Pager(2, -1)),
		)

		result, err := env.Portal.ScrapeTasks(ctx, guaptest.Credentials())
		require.NoError(t, err)
		require.Len(t, result.Tasks, 8)
		requireUniqueTasks(t, result.Tasks)
	})

	t.Run("declared total caps the result", func(t *testing.T) {
		env := guaptest.NewEnv()
		env.Fake.ServePaginated(tasksPath,
			guaptest.TasksPage(6, guaptest.Tasks(1, 5), guaptest.Pager(1, 1)),
			guaptest.TasksPage(6, guaptest.Tasks(6, 3), guaptest.Pager(2, -1)),
		)

		result, err := env.Portal.ScrapeTasks(ctx, guaptest.Credentials())
		require.NoError(t, err)
		require.Len(t, result.Tasks, 6)
		require.False(t, result.Partial)
	})

	t.Run("fewer distinct tasks than declared", func(t *testing.T) {
		env := guaptest.NewEnv()
		env.Fake.ServePaginated(tasksPath,
			guaptest.TasksPage(20, guaptest.Tasks(1, 4), guaptest.Pager(1, 1)),
			guaptest.TasksPage(20, guaptest.Tasks(3, 4), guaptest.Pager(2, -1)),
		)

		result, err := env.Portal.ScrapeTasks(ctx, guaptest.Credentials())
		require.NoError(t, err)
		require.Len(t, result.Tasks, 6)
		require.Equal(t, 20, result.TotalTasks)
		require.True(t, result.Partial)
		requireUniqueTasks(t, result.Tasks)
	})

	t.Run("next control that never advances", func(t *testing.T) {
		env := guaptest.NewEnv()
		env.Fake.ServePaginated(tasksPath,
			guaptest.TasksPage(3, guaptest.Tasks(1, 2), guaptest.Pager(1, 0)),
		)

		result, err := env.Portal.ScrapeTasks(ctx, guaptest.Credentials())
		require.NoError(t, err)
		require.Len(t, result.Tasks, 2)
		require.True(t, result.Partial)

		pages := env.Launcher.Pages()
		require.Len(t, pages, 1)
		require.LessOrEqual(t, paginationClicks(pages[0]), 3+2)
	})

	t.Run("stuck pager stops early on a large total", func(t *testing.T) {
		env := guaptest.NewEnv()
		env.Fake.ServePaginated(tasksPath,
			guaptest.TasksPage(200, guaptest.Tasks(1, 10), guaptest.Pager(1, 0)),
		)

		result, err := env.Portal.ScrapeTasks(ctx, guaptest.Credentials())
		require.NoError(t, err)
		require.Len(t, result.Tasks, 10)
		require.Equal(t, 200, result.TotalTasks)
		require.True(t, result.Partial)
		require.Equal(t, 3, result.PagesVisited)

		pages := env.Launcher.Pages()
		require.Len(t, pages, 1)
		require.Equal(t, 2, paginationClicks(pages[0]))
	})

	t.Run("no total counter reads a single page", func(t *testing.T) {
		env := guaptest.NewEnv()
		env.Fake.Serve(tasksPath, `<html><body><nav class="navigation"></nav><table><tbody>`+
			guaptest.Tasks(1, 1)[0].HTML()+`</tbody></table></body></html>`)

		result, err := env.Portal.ScrapeTasks(ctx, guaptest.Credentials())
		require.NoError(t, err)
		require.Len(t, result.Tasks, 1)
		require.Zero(t, result.TotalTasks)
		require.Equal(t, 1, result.PagesVisited)
	})

	t.Run("legacy key without task links", func(t *testing.T) {
		row := `<tr><td></td><td><a class="blue-link" href="/s/1">Физика</a></td><td class="text-center">1</td>` +
			`<td>Отчет</td><td><span class="badge">Принят</span></td><td class="text-center">1 / 2</td>` +
			`<td>Лабораторная работа</td><td class="text-center"><span class="text-warning">01.04.2025</span></td>` +
			`<td><time>01.03.2025</time></td><td><a class="blue-link" href="/p/1">Орлов</a></td></tr>`
		env := guaptest.NewEnv()
		env.Fake.Serve(tasksPath, `<html><body><div class="float-start">Всего 2 записей</div><table><tbody>`+
			row+row+`</tbody></table></body></html>`)

		result, err := env.Portal.ScrapeTasks(ctx, guaptest.Credentials())
		require.NoError(t, err)
		require.Len(t, result.Tasks, 1)
		require.Nil(t, result.Tasks[0].Task.Id)
		require.True(t, result.Partial)
	})
}
