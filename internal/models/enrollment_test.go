package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnrollmentRequestStatusTransitions(t *testing.T) {
	all := []EnrollmentRequestStatus{RequestStatusPending, RequestStatusApproved, RequestStatusRejected, RequestStatusEnrolled}

	for _, next := range all {
		assert.Equal(t, next != RequestStatusPending, RequestStatusPending.CanTransitionTo(next), "pending -> %s", next)
	}
	for _, from := range all[1:] {
		for _, next := range all {
			assert.False(t, from.CanTransitionTo(next), "%s -> %s", from, next)
		}
	}
}

func TestEnrollmentStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to EnrollmentStatus
		ok       bool
	}{
		{EnrollmentStatusNone, EnrollmentStatusEnrolled, true},
		{EnrollmentStatusNone, EnrollmentStatusDropped, false},
		{EnrollmentStatusEnrolled, EnrollmentStatusDropped, true},
		{EnrollmentStatusEnrolled, EnrollmentStatusCompleted, true},
		{EnrollmentStatusEnrolled, EnrollmentStatusEnrolled, false},
		{EnrollmentStatusDropped, EnrollmentStatusEnrolled, true},
		{EnrollmentStatusDropped, EnrollmentStatusCompleted, false},
		{EnrollmentStatusCompleted, EnrollmentStatusEnrolled, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%q -> %q", tc.from, tc.to)
	}
}
