package entities

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyRecord remembers the outcome of a form submission keyed by a
// client-supplied token so a repeated submission replays it.
type IdempotencyRecord struct {
	Id         uuid.UUID
	Key        string
	Request    string
	Response   string
	StatusCode int
	CreatedAt  time.Time
}

func NewIdempotencyRecord(key, request string) *IdempotencyRecord {
	return &IdempotencyRecord{
		Id:        uuid.New(),
		Key:       key,
		Request:   request,
		CreatedAt: time.Now(),
	}
}

func (r *IdempotencyRecord) SetResponse(response string, statusCode int) {
	r.Response = response
	r.StatusCode = statusCode
}
