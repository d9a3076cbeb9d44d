package models

import "time"

// Student carries the slice of the school roster this engine reads: who to
// bill and how to reach the wali. Roster administration lives elsewhere and
// never happens through this service.
type Student struct {
	ID            string     `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	Name          string     `gorm:"column:name;type:varchar(128);not null" json:"name"`
	GuardianName  string     `gorm:"column:guardian_name;type:varchar(128)" json:"guardian_name"`
	GuardianPhone string     `gorm:"column:guardian_phone;type:varchar(32)" json:"guardian_phone"`
	GuardianEmail string     `gorm:"column:guardian_email;type:varchar(128)" json:"guardian_email"`
	BirthDate     *time.Time `gorm:"column:birth_date;default:null" json:"birth_date"`
	HalaqahID     *string    `gorm:"column:halaqah_id;type:varchar(64);default:null" json:"halaqah_id"`
	Active        bool       `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Student) TableName() string {
	return "student"
}
