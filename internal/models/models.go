package models

import "encoding/json"

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string `gorm:"not null"                 json:"name"`
	Email        string `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
}

// Note holds one journal entry per user per calendar date (YYYY-MM-DD).
// Exercises are stored serialized, see EncodeExercises.
type Note struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"                         json:"id"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_notes_user_date"         json:"-"`
	Date      string `gorm:"size:10;not null;uniqueIndex:idx_notes_user_date" json:"date"`
	Text      string `json:"note"`
	Exercises string `json:"-"`
}

type Tag struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"                json:"id"`
	UserID uint   `gorm:"not null;uniqueIndex:idx_tags_user_name" json:"-"`
	Name   string `gorm:"not null;uniqueIndex:idx_tags_user_name" json:"name"`
}

type NoteTag struct {
	NoteID uint `gorm:"primaryKey"`
	TagID  uint `gorm:"primaryKey"`
}

// Set fields are free-form text, no numeric validation.
type Set struct {
	Weight string `json:"weight"`
	Reps   string `json:"reps"`
	Rest   string `json:"rest"`
}

type Exercise struct {
	Name string `json:"name"`
	Sets []Set  `json:"sets"`
}

func EncodeExercises(exercises []Exercise) (string, error) {
	if len(exercises) == 0 {
		return "", nil
	}
	data, err := json.Marshal(exercises)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func DecodeExercises(raw string) ([]Exercise, error) {
	if raw == "" {
		return []Exercise{}, nil
	}
	var exercises []Exercise
	if err := json.Unmarshal([]byte(raw), &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}
