package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/workout_journal/internal/logging"
	authmw "github.com/Skotchmaster/workout_journal/internal/middleware/auth"
	"github.com/Skotchmaster/workout_journal/internal/models"
)

type TagHandler struct {
	DB *gorm.DB
}

// CreateTag adds a label to the user's tag list. Creating the same name
// twice is a conflict, never a silent duplicate.
func (h *TagHandler) CreateTag(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "tag name is required")
	}

	tag := models.Tag{UserID: userID, Name: req.Name}
	tx := h.DB.Where("user_id = ? AND name = ?", userID, req.Name).FirstOrCreate(&tag)
	if tx.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	if tx.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusConflict, "tag already exists")
	}

	return c.JSON(http.StatusCreated, tag)
}

func (h *TagHandler) ListTags(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	var tags []models.Tag
	if err := h.DB.Where("user_id = ?", userID).Order("name ASC").Find(&tags).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, tags)
}

// DeleteTag removes the tag from the user's list and detaches it from every
// note in the same transaction, so notes never reference a missing tag.
func (h *TagHandler) DeleteTag(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "tag_delete")

	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}
	name := c.Param("name")

	var tag models.Tag
	tx := h.DB.Where("user_id = ? AND name = ?", userID, name).First(&tag)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "tag not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	err = h.DB.Transaction(func(txn *gorm.DB) error {
		if err := txn.Where("tag_id = ?", tag.ID).Delete(&models.NoteTag{}).Error; err != nil {
			return err
		}
		return txn.Delete(&tag).Error
	})
	if err != nil {
		l.Error("tag delete failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "tag deleted",
	})
}
