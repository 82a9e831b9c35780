package model

import "time"

// UserDocument is an account in the users collection. Email is stored
// lowercased and carries a unique index.
type UserDocument struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	DisplayName  string    `bson:"display_name"`
	Country      string    `bson:"country,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
}

// User is the relational form of an account, used with the postgres driver.
type User struct {
	Id           string    `gorm:"type:varchar(64);primaryKey"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex"`
	PasswordHash string    `gorm:"type:varchar(255)"`
	DisplayName  string    `gorm:"type:varchar(100)"`
	Country      string    `gorm:"type:varchar(100)"`
	CreatedAt    time.Time `gorm:"autoCreateTime:false"`
}

func (User) TableName() string {
	return "users"
}
