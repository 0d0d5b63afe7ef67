package models

import (
	"time"

	"github.com/sactech816/integration-app-sub010/database"

	"golang.org/x/crypto/bcrypt"
)

// Operator is a backoffice user allowed to manage campaigns, prizes and
// missions.
type Operator struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"unique;not null"`
	Password  string    `json:"-" gorm:"not null"` // Password won't be included in JSON responses
	Name      string    `json:"name" gorm:"not null"`
	Role      string    `json:"role" gorm:"default:admin"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Operator) TableName() string {
	return "operators"
}

// HashPassword hashes the plaintext password before saving to database
func (o *Operator) HashPassword() error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(o.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	o.Password = string(hashedPassword)
	return nil
}

// ValidatePassword checks if the provided password matches the hashed password
func (o *Operator) ValidatePassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(o.Password), []byte(password))
	return err == nil
}

// GetOperatorByUsername retrieves an active operator by username
func GetOperatorByUsername(username string) (*Operator, error) {
	var op Operator
	result := database.DB.Where("username = ? AND is_active = ?", username, true).First(&op)
	if result.Error != nil {
		return nil, result.Error
	}
	return &op, nil
}
