package usecase

import (
	"time"

	"github.com/google/uuid"
)

var newUUID = func() string {
	return uuid.NewString()
}

var now = func() time.Time {
	return time.Now().UTC()
}

// after returns a timestamp strictly later than prev so that turns written in
// one request keep their insertion order.
func after(prev time.Time) time.Time {
	t := now()
	if !t.After(prev) {
		t = prev.Add(time.Microsecond)
	}
	return t
}
