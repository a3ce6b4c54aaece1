package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/workout_journal/internal/handlers"
	"github.com/Skotchmaster/workout_journal/internal/models"
)

func benchPress() []models.Exercise {
	return []models.Exercise{
		{
			Name: "Bench Press",
			Sets: []models.Set{
				{Weight: "60kg", Reps: "10", Rest: "90s"},
				{Weight: "70kg", Reps: "8", Rest: "120s"},
			},
		},
		{
			Name: "Squat",
			Sets: []models.Set{
				{Weight: "bodyweight", Reps: "15", Rest: "60s"},
			},
		},
	}
}

func getNotes(t *testing.T, env *testEnv, path, token string) []handlers.NoteResponse {
	rec := env.doJSON(http.MethodGet, path, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var notes []handlers.NoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notes))
	return notes
}

func TestNoteRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup("a@b.com", "pw123", "alice")

	payload := map[string]interface{}{
		"note":      "heavy day",
		"exercises": benchPress(),
	}
	rec := env.doJSON(http.MethodPost, "/api/notes/2024-06-01", payload, token)
	require.Equal(t, http.StatusOK, rec.Code)

	notes := getNotes(t, env, "/api/notes/2024-06-01", token)
	require.Len(t, notes, 1)
	require.Equal(t, "2024-06-01", notes[0].Date)
	require.Equal(t, "heavy day", notes[0].Note)
	require.Equal(t, benchPress(), notes[0].Exercises)
}

func TestGetNoteAbsentIsEmptyNotError(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup("a@b.com", "pw123", "alice")

	notes := getNotes(t, env, "/api/notes/2024-06-01", token)
	require.Empty(t, notes)
}

func TestNoteDateValidation(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup("a@b.com", "pw123", "alice")

	for _, date := range []string{"yesterday", "2024-13-01", "01-06-2024", "2024-6-1"} {
		rec := env.doJSON(http.MethodGet, "/api/notes/"+date, nil, token)
		require.Equal(t, http.StatusBadRequest, rec.Code, "date %q", date)
	}
}

func TestNoteUpsertLastWriteWins(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup("a@b.com", "pw123", "alice")

	first := map[string]interface{}{"note": "morning", "exercises": benchPress()}
	rec := env.doJSON(http.MethodPost, "/api/notes/2024-06-01", first, token)
	require.Equal(t, http.StatusOK, rec.Code)

	second := map[string]interface{}{"note": "evening", "exercises": []models.Exercise{}}
	rec = env.doJSON(http.MethodPost, "/api/notes/2024-06-01", second, token)
	require.Equal(t, http.StatusOK, rec.Code)

	notes := getNotes(t, env, "/api/notes/2024-06-01", token)
	require.Len(t, notes, 1)
	require.Equal(t, "evening", notes[0].Note)
	require.Empty(t, notes[0].Exercises)

	var count int64
	env.DB.Model(&models.Note{}).Count(&count)
	require.EqualValues(t, 1, count)
}

func TestNotesAreScopedPerUser(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.signup("a@b.com", "pw123", "alice")
	bob, _ := env.signup("b@b.com", "pw123", "bob")

	rec := env.doJSON(http.MethodPost, "/api/notes/2024-06-01", map[string]interface{}{"note": "alice only"}, alice)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, getNotes(t, env, "/api/notes/2024-06-01", alice), 1)
	require.Empty(t, getNotes(t, env, "/api/notes/2024-06-01", bob))
}

func TestListNotesByDateRange(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup("a@b.com", "pw123", "alice")

	for _, date := range []string{"2024-05-30", "2024-06-01", "2024-06-15", "2024-07-01"} {
		rec := env.doJSON(http.MethodPost, "/api/notes/"+date, map[string]interface{}{"note": date}, token)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	notes := getNotes(t, env, "/api/notes?from=2024-06-01&to=2024-06-30", token)
	require.Len(t, notes, 2)
	require.Equal(t, "2024-06-01", notes[0].Date)
	require.Equal(t, "2024-06-15", notes[1].Date)

	require.Len(t, getNotes(t, env, "/api/notes", token), 4)

	rec := env.doJSON(http.MethodGet, "/api/notes?from=junk", nil, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNoteTags(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup("a@b.com", "pw123", "alice")

	rec := env.doJSON(http.MethodPost, "/api/tags", map[string]string{"name": "legs"}, token)
	require.Equal(t, http.StatusCreated, rec.Code)

	payload := map[string]interface{}{
		"note": "squats",
		"tags": []string{"legs", "never-created"},
	}
	rec = env.doJSON(http.MethodPost, "/api/notes/2024-06-01", payload, token)
	require.Equal(t, http.StatusOK, rec.Code)

	notes := getNotes(t, env, "/api/notes/2024-06-01", token)
	require.Len(t, notes, 1)
	// unknown tag names are skipped, not auto-created
	require.Equal(t, []string{"legs"}, notes[0].Tags)

	byTag := getNotes(t, env, "/api/notes/by-tag/legs", token)
	require.Len(t, byTag, 1)
	require.Equal(t, "2024-06-01", byTag[0].Date)

	require.Empty(t, getNotes(t, env, "/api/notes/by-tag/unknown", token))
}

func TestSearchUnavailableWithoutCluster(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup("a@b.com", "pw123", "alice")

	rec := env.doJSON(http.MethodGet, "/api/notes/search?q=bench", nil, token)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNotesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(http.MethodGet, "/api/notes/2024-06-01", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.doJSON(http.MethodPost, "/api/notes/2024-06-01", map[string]interface{}{"note": "x"}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
