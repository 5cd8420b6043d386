package application

import (
	"fmt"

	"github.com/example/sublease-marketplace/internal/persistence"
)

// BookingStatus is the lifecycle state of a booking request.
type BookingStatus string

const (
	BookingPending  BookingStatus = persistence.StatusPending
	BookingApproved BookingStatus = persistence.StatusApproved
	BookingRejected BookingStatus = persistence.StatusRejected
)

// bookingTransitions lists the states reachable from each state. Approved and rejected are terminal.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending: {BookingApproved, BookingRejected},
}

// ParseBookingStatus validates a stored or caller supplied status.
func ParseBookingStatus(value string) (BookingStatus, error) {
	switch status := BookingStatus(value); status {
	case BookingPending, BookingApproved, BookingRejected:
		return status, nil
	}
	return "", fmt.Errorf("unknown booking status %q", value)
}

// CanTransition reports whether a request may move from s to next.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s BookingStatus) Terminal() bool {
	return len(bookingTransitions[s]) == 0
}

func (s BookingStatus) String() string {
	return string(s)
}
