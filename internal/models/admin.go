package models

import (
	"time"

	"gorm.io/gorm"
)

// Admin represents a portal operator. One admin account is seeded at first run
// when the table is empty.
type Admin struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate is a GORM hook to hash the password before saving
func (a *Admin) BeforeCreate(tx *gorm.DB) error {
	hashedPassword, err := HashPassword(a.Password)
	if err != nil {
		return err
	}
	a.Password = hashedPassword
	return nil
}
