package entity

import "time"

type User struct {
	Id           string
	DisplayName  string
	Email        string
	Country      string
	PasswordHash string
	CreatedAt    time.Time
}
