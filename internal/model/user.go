package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents one registrant of the recycling loyalty program.
type User struct {
	ID            uint      `json:"-" gorm:"primaryKey"`
	UID           string    `json:"uid" gorm:"type:char(36);uniqueIndex;not null"`
	Email         string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash  string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Name          string    `json:"name" gorm:"size:255;not null"`
	Points        int64     `json:"points" gorm:"not null;default:0"`
	EmailVerified bool      `json:"is_email_verified" gorm:"default:false"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BeforeCreate assigns the uid and normalizes the email before insert.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.Prepare()
	return nil
}

// Prepare fills the identity key and normalizes fields shared by every store.
func (u *User) Prepare() {
	if u.UID == "" {
		u.UID = uuid.NewString()
	}
	u.Email = NormalizeEmail(u.Email)
	u.Name = strings.TrimSpace(u.Name)
}

// NormalizeEmail lower-cases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
