package service

import "errors"

var (
	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrMissingFields is returned when a form submission lacks type, email or name
	ErrMissingFields = errors.New("missing required fields")

	// ErrDuplicateSubmission is returned when an email already submitted a once-per-email form
	ErrDuplicateSubmission = errors.New("submission already exists for email")

	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrTemplateNotFound is returned when a reward template cannot be found or is not claimable
	ErrTemplateNotFound = errors.New("reward template not found")

	// ErrClaimNotFound is returned when a reward claim cannot be found
	ErrClaimNotFound = errors.New("reward claim not found")

	// ErrSubmissionNotFound is returned when a submission cannot be found
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrNoRewardsAvailable is returned when a user has no pending rewards to claim
	ErrNoRewardsAvailable = errors.New("no rewards available to claim")

	// ErrInvalidStatusTransition is returned when a claim is not in a state that allows the change
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrUnauthorized is returned when a request carries no valid session or token
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller lacks the admin role
	ErrForbidden = errors.New("forbidden")
)
