package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/workout_journal/internal/events"
	"github.com/Skotchmaster/workout_journal/internal/logging"
	authmw "github.com/Skotchmaster/workout_journal/internal/middleware/auth"
	"github.com/Skotchmaster/workout_journal/internal/models"
	"github.com/Skotchmaster/workout_journal/internal/service/search"
)

const dateLayout = "2006-01-02"

type NoteHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
	ES       *elasticsearch.Client
	Index    string
}

// NoteResponse is the wire form of a note: exercises parsed back from
// their stored serialization, tags as plain names.
type NoteResponse struct {
	Date      string            `json:"date"`
	Note      string            `json:"note"`
	Exercises []models.Exercise `json:"exercises"`
	Tags      []string          `json:"tags"`
}

func (h *NoteHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicNoteEvents, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("event publish failed", "error", err)
	}
}

func parseDateParam(c echo.Context) (string, error) {
	date := c.Param("date")
	if _, err := time.Parse(dateLayout, date); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}
	return date, nil
}

// GetNote returns the note for (current user, date), or an empty list when
// none exists. Absence is not an error.
func (h *NoteHandler) GetNote(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}
	date, err := parseDateParam(c)
	if err != nil {
		return err
	}

	var note models.Note
	tx := h.DB.Where("user_id = ? AND date = ?", userID, date).First(&note)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusOK, []NoteResponse{})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	resp, err := h.noteResponse(&note)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, []NoteResponse{*resp})
}

// SaveNote upserts the note keyed by (user, date). Concurrent saves to the
// same key are last-write-wins.
func (h *NoteHandler) SaveNote(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "note_save")

	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}
	date, err := parseDateParam(c)
	if err != nil {
		return err
	}

	var req struct {
		Note      string            `json:"note"`
		Exercises []models.Exercise `json:"exercises"`
		Tags      []string          `json:"tags"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	serialized, err := models.EncodeExercises(req.Exercises)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid exercises")
	}

	var note models.Note
	tx := h.DB.Where("user_id = ? AND date = ?", userID, date).First(&note)
	switch {
	case tx.Error == nil:
		note.Text = req.Note
		note.Exercises = serialized
		if err := h.DB.Save(&note).Error; err != nil {
			l.Error("note save failed", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
	case errors.Is(tx.Error, gorm.ErrRecordNotFound):
		note = models.Note{
			UserID:    userID,
			Date:      date,
			Text:      req.Note,
			Exercises: serialized,
		}
		if err := h.DB.Create(&note).Error; err != nil {
			l.Error("note create failed", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	if req.Tags != nil {
		if err := h.replaceNoteTags(userID, note.ID, req.Tags); err != nil {
			l.Error("note tags update failed", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
	}

	h.indexNote(c, userID, &note, req.Exercises)
	h.publish(c, fmt.Sprint(userID), map[string]any{
		"type":   "note_saved",
		"userID": userID,
		"date":   date,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message": "note saved",
	})
}

// ListNotes returns the user's notes, optionally bounded by from/to dates.
func (h *NoteHandler) ListNotes(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	q := h.DB.Where("user_id = ?", userID)
	if from := c.QueryParam("from"); from != "" {
		if _, err := time.Parse(dateLayout, from); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
		}
		q = q.Where("date >= ?", from)
	}
	if to := c.QueryParam("to"); to != "" {
		if _, err := time.Parse(dateLayout, to); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
		}
		q = q.Where("date <= ?", to)
	}

	var notes []models.Note
	if err := q.Order("date ASC").Find(&notes).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, h.noteResponses(notes))
}

// NotesByTag lists the notes carrying the named tag. An unknown tag yields
// an empty list, matching the absent-note behavior.
func (h *NoteHandler) NotesByTag(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}
	name := c.Param("tag")

	var tag models.Tag
	tx := h.DB.Where("user_id = ? AND name = ?", userID, name).First(&tag)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusOK, []NoteResponse{})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	var notes []models.Note
	if err := h.DB.
		Joins("JOIN note_tags ON note_tags.note_id = notes.id").
		Where("note_tags.tag_id = ? AND notes.user_id = ?", tag.ID, userID).
		Order("date ASC").
		Find(&notes).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, h.noteResponses(notes))
}

func (h *NoteHandler) noteResponse(note *models.Note) (*NoteResponse, error) {
	exercises, err := models.DecodeExercises(note.Exercises)
	if err != nil {
		return nil, err
	}

	tags := []string{}
	var tagRows []models.Tag
	if err := h.DB.
		Joins("JOIN note_tags ON note_tags.tag_id = tags.id").
		Where("note_tags.note_id = ?", note.ID).
		Order("tags.name ASC").
		Find(&tagRows).Error; err == nil {
		for _, t := range tagRows {
			tags = append(tags, t.Name)
		}
	}

	return &NoteResponse{
		Date:      note.Date,
		Note:      note.Text,
		Exercises: exercises,
		Tags:      tags,
	}, nil
}

func (h *NoteHandler) noteResponses(notes []models.Note) []NoteResponse {
	out := make([]NoteResponse, 0, len(notes))
	for i := range notes {
		resp, err := h.noteResponse(&notes[i])
		if err != nil {
			continue
		}
		out = append(out, *resp)
	}
	return out
}

// replaceNoteTags swaps the note's tag links for the given names. Names the
// user has not created through the tag flow are skipped, not auto-created.
func (h *NoteHandler) replaceNoteTags(userID, noteID uint, names []string) error {
	return h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("note_id = ?", noteID).Delete(&models.NoteTag{}).Error; err != nil {
			return err
		}
		for _, name := range names {
			var tag models.Tag
			if err := tx.Where("user_id = ? AND name = ?", userID, name).First(&tag).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return err
			}
			if err := tx.Create(&models.NoteTag{NoteID: noteID, TagID: tag.ID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// indexNote is best effort: a dead search cluster never fails a save.
func (h *NoteHandler) indexNote(c echo.Context, userID uint, note *models.Note, exercises []models.Exercise) {
	if h.ES == nil {
		return
	}

	names := make([]string, 0, len(exercises))
	for _, ex := range exercises {
		names = append(names, ex.Name)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	doc := search.NoteDoc{
		UserID:    userID,
		Date:      note.Date,
		Note:      note.Text,
		Exercises: names,
	}
	if err := search.IndexNote(ctx, h.ES, h.Index, doc); err != nil {
		logging.FromContext(c.Request().Context()).Error("note index failed", "error", err)
	}
}
