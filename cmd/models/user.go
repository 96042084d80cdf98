package models

import (
	"time"
)

type User struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	Email                 string    `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	DisplayName           string    `gorm:"column:display_name;size:100" json:"display_name"`
	PasswordHash          string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	RefreshToken          string    `gorm:"column:refresh_token;size:255;index" json:"-"`
	RefreshTokenExpiredAt time.Time `gorm:"column:refresh_token_expired_at" json:"-"`
	ResetCode             string    `gorm:"column:reset_code;size:6" json:"-"`
	ResetExpiry           time.Time `gorm:"column:reset_expiry" json:"-"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`

	Profile *Profile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

type Gender string

const (
	GenderMale           Gender = "male"
	GenderFemale         Gender = "female"
	GenderOther          Gender = "other"
	GenderPreferNotToSay Gender = "prefer_not_to_say"
)

type Profile struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"column:user_id;not null;uniqueIndex" json:"user_id"`
	FirstName string     `gorm:"column:first_name;size:100" json:"first_name"`
	LastName  string     `gorm:"column:last_name;size:100" json:"last_name"`
	Bio       string     `gorm:"column:bio;type:text" json:"bio"`
	Location  string     `gorm:"column:location;size:255" json:"location"`
	AvatarURL string     `gorm:"column:avatar_url;size:1024" json:"avatar_url"`
	BirthDate *time.Time `gorm:"column:birth_date;type:date" json:"birth_date"`
	Gender    Gender     `gorm:"column:gender;size:20" json:"gender"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
