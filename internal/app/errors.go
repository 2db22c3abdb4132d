package service

import "errors"

var (
	// ErrNoFetcher is returned when the service was built without an activity fetcher.
	ErrNoFetcher = errors.New("activity fetcher not configured")
	// ErrNoNotifier is returned when the service was built without a contact notifier.
	ErrNoNotifier = errors.New("contact notifier not configured")
	// ErrInvalidSubmission marks a contact submission that failed validation.
	ErrInvalidSubmission = errors.New("invalid contact submission")
	// ErrDeliveryFailed marks a valid contact submission the notifier could not deliver.
	ErrDeliveryFailed = errors.New("contact delivery failed")
)
