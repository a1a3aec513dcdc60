package domain

import (
	"errors"
	"time"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)

// User is an account able to own sessions.
type User struct {
	ID             string
	Email          string
	HashedPassword string
	Name           string
	CreatedAt      time.Time
}
