package users

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no user has the requested subject.
var ErrNotFound = errors.New("user not found")

// User is a caller known to the service, mapped from token claims.
type User struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Sub       string    `bson:"sub" json:"sub"`
	Email     string    `bson:"email" json:"email"`
	Name      string    `bson:"name" json:"name"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
