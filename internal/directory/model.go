package directory

import (
	"errors"
	"time"
)

// Account kinds mirrored from the external identity service.
const (
	KindUser  = "user"
	KindAdmin = "admin"
)

// ErrNotFound indicates no directory record exists for the reference.
var ErrNotFound = errors.New("user not found")

// User is a read-model of an externally managed account. This service never
// authenticates users; it only resolves ids and emails for wallet ownership.
type User struct {
	ID        string
	Email     string
	Kind      string
	CreatedAt time.Time
}
