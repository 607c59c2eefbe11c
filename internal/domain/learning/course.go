package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CourseStatusGenerating = "GENERATING"
	CourseStatusPublished  = "PUBLISHED"
	CourseStatusFailed     = "FAILED"
)

const (
	DifficultyBeginner     = "BEGINNER"
	DifficultyIntermediate = "INTERMEDIATE"
	DifficultyAdvanced     = "ADVANCED"
)

// Course is created as a GENERATING shell by the API. Only the generation
// worker moves it to PUBLISHED or FAILED, and modules exist only once it is
// PUBLISHED.
type Course struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatorID uuid.UUID `gorm:"type:uuid;not null;index" json:"creator_id"`

	Title       string `gorm:"column:title;not null" json:"title"`
	Description string `gorm:"column:description;type:text" json:"description"`
	Difficulty  string `gorm:"column:difficulty;not null" json:"difficulty"`
	Language    string `gorm:"column:language;not null" json:"language"`
	RawText     string `gorm:"column:raw_text;type:text" json:"-"`

	Status         string `gorm:"column:status;not null;index" json:"status"`
	ProfileVersion int    `gorm:"column:profile_version;not null;default:0" json:"profile_version"`
	ReservedTokens int    `gorm:"column:reserved_tokens;not null;default:0" json:"reserved_tokens"`
	ActualTokens   int    `gorm:"column:actual_tokens;not null;default:0" json:"actual_tokens"`
	FailureReason  string `gorm:"column:failure_reason;type:text" json:"failure_reason,omitempty"`

	Modules []CourseModule `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"modules,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Course) TableName() string { return "course" }

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type CourseModule struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;index:idx_course_module_order,priority:1" json:"course_id"`
	// Order is 1-based and contiguous within a course.
	Order int    `gorm:"column:order;not null;index:idx_course_module_order,priority:2" json:"order"`
	Title string `gorm:"column:title;not null" json:"title"`

	Lessons []Lesson `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"lessons,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (CourseModule) TableName() string { return "course_module" }

func (m *CourseModule) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
