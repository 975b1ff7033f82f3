// internal/types/ids.go
package types

import (
	"strconv"

	"github.com/google/uuid"
)

// ActorID is a stable numeric chat participant id (buyer or operator).
type ActorID int64

// ItemID is assigned by the catalog store on creation.
type ItemID int64

// LinkID is the gateway-assigned payment link identifier.
type LinkID string

type JobID string
type EventID string

func NewJobID() JobID {
	return JobID(uuid.New().String())
}

func NewEventID() EventID {
	return EventID(uuid.New().String())
}

// NewReferenceID returns a unique merchant reference for a payment link.
func NewReferenceID() string {
	return uuid.New().String()
}

func (a ActorID) String() string { return strconv.FormatInt(int64(a), 10) }
func (i ItemID) String() string  { return strconv.FormatInt(int64(i), 10) }

// ParseActorID parses a decimal actor id as carried in correlation notes.
func ParseActorID(s string) (ActorID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ActorID(n), nil
}

// ParseItemID parses a decimal item id.
func ParseItemID(s string) (ItemID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ItemID(n), nil
}
