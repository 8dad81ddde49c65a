package identity

import (
	"time"

	"gorm.io/gorm"

	"github.com/learnsphere/chat-service/pkg/database"
)

// StudentModel is the GORM model for the students table, owned by the
// account service and read here for display-name resolution only.
type StudentModel struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	Name      string `gorm:"type:varchar(100);not null"`
	Email     string `gorm:"type:varchar(255);uniqueIndex;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (StudentModel) TableName() string {
	return "students"
}

// TutorModel is the GORM model for the tutors table.
type TutorModel struct {
	ID        string               `gorm:"type:varchar(36);primaryKey"`
	Name      string               `gorm:"type:varchar(100);not null"`
	Email     string               `gorm:"type:varchar(255);uniqueIndex;not null"`
	Headline  string               `gorm:"type:varchar(200)"`
	Subjects  database.StringArray `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (TutorModel) TableName() string {
	return "tutors"
}
