package domain

import (
	"strings"
	"time"
)

type User struct {
	UserID        string    `json:"id" dynamodbav:"user_id"`
	FirstName     string    `json:"first_name" dynamodbav:"first_name"`
	LastName      string    `json:"last_name" dynamodbav:"last_name"`
	Email         string    `json:"email" dynamodbav:"email"`
	Username      string    `json:"username" dynamodbav:"username"`
	PasswordHash  string    `json:"-" dynamodbav:"password_hash"`
	Age           *int      `json:"age,omitempty" dynamodbav:"age"`
	ContactNumber *string   `json:"contact_number,omitempty" dynamodbav:"contact_number"`
	ProfileImage  string    `json:"profile_image" dynamodbav:"profile_image"`
	CreatedAt     time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Name is the display name shown by the client.
func (u *User) Name() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// SafeUser is the client-facing projection of a User. It never carries the password hash.
type SafeUser struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName"`
	Email         string  `json:"email"`
	Username      string  `json:"username"`
	Age           *int    `json:"age,omitempty"`
	ContactNumber *string `json:"contact_number,omitempty"`
	ProfileImage  string  `json:"profileImage"`
}

func (u *User) Safe() *SafeUser {
	if u == nil {
		return nil
	}
	return &SafeUser{
		ID:            u.UserID,
		Name:          u.Name(),
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Email:         u.Email,
		Username:      u.Username,
		Age:           u.Age,
		ContactNumber: u.ContactNumber,
		ProfileImage:  u.ProfileImage,
	}
}
