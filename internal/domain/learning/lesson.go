package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CanonicalLanguage is the language translations are sourced from.
const CanonicalLanguage = "en"

type Lesson struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID uuid.UUID `gorm:"type:uuid;not null;index:idx_lesson_order,priority:1" json:"module_id"`
	Order    int       `gorm:"column:order;not null;index:idx_lesson_order,priority:2" json:"order"`
	// YouTubeURL holds a resolved video link or a "search:<keyword>" sentinel.
	YouTubeURL *string `gorm:"column:youtube_url" json:"youtube_url,omitempty"`

	Contents []LessonContent `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"contents,omitempty"`
	Quiz     *Quiz           `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"quiz,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Lesson) TableName() string { return "lesson" }

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// LessonContent is one language variant of a lesson; (lesson_id, language) is unique.
type LessonContent struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LessonID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_content_lang,priority:1" json:"lesson_id"`
	Language    string    `gorm:"column:language;not null;uniqueIndex:idx_lesson_content_lang,priority:2" json:"language"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Content     string    `gorm:"column:content;type:text;not null" json:"content"`
	CodeExample string    `gorm:"column:code_example;type:text" json:"code_example,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (LessonContent) TableName() string { return "lesson_content" }

func (c *LessonContent) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
