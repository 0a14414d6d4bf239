package models

import (
	"gorm.io/gorm"
)

// UserType distinguishes regular account holders from merchants.
// A merchant account can only receive transfers, never initiate them.
type UserType string

const (
	UserTypeCommon   UserType = "COMMON"
	UserTypeMerchant UserType = "MERCHANT"
)

type User struct {
	gorm.Model
	FirstName    string   `gorm:"not null" json:"first_name"`
	LastName     string   `gorm:"not null" json:"last_name"`
	Document     string   `gorm:"uniqueIndex;not null" json:"document"`
	Email        string   `gorm:"uniqueIndex;not null" json:"email"`
	Password     string   `gorm:"not null" json:"-"`
	UserType     UserType `gorm:"type:varchar(16);not null;default:'COMMON'" json:"user_type"`
	TokenVersion int      `gorm:"default:1" json:"-"`
}
