package appErrors

import "fmt"

// ErrInvalidConfiguration rejects bad pacing/sequence bounds before any
// external call is made.
type ErrInvalidConfiguration struct {
	Field  string
	Reason string
}

func (e *ErrInvalidConfiguration) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func NewInvalidConfiguration(field, reason string) error {
	return &ErrInvalidConfiguration{Field: field, Reason: reason}
}

// ErrResolutionFailed means the roster could not be computed; the campaign
// never starts and no partial roster is returned.
type ErrResolutionFailed struct {
	Cause error
}

func (e *ErrResolutionFailed) Error() string {
	return fmt.Sprintf("recipient resolution failed: %v", e.Cause)
}

func (e *ErrResolutionFailed) Unwrap() error { return e.Cause }

func NewResolutionFailed(cause error) error {
	return &ErrResolutionFailed{Cause: cause}
}

// ErrCommandRejected means the dispatcher (or the local state machine)
// refused a start/pause/resume command. State stays as it was.
type ErrCommandRejected struct {
	Command string
	Reason  string
}

func (e *ErrCommandRejected) Error() string {
	return fmt.Sprintf("command %s rejected: %s", e.Command, e.Reason)
}

func NewCommandRejected(command, reason string) error {
	return &ErrCommandRejected{Command: command, Reason: reason}
}

// ErrChannelUnavailable means a push subscription could not be established.
// The monitor degrades to poll-only operation; not fatal.
type ErrChannelUnavailable struct {
	Channel string
	Cause   error
}

func (e *ErrChannelUnavailable) Error() string {
	return fmt.Sprintf("change channel %s unavailable: %v", e.Channel, e.Cause)
}

func (e *ErrChannelUnavailable) Unwrap() error { return e.Cause }

func NewChannelUnavailable(channel string, cause error) error {
	return &ErrChannelUnavailable{Channel: channel, Cause: cause}
}

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign %s not found", e.CampaignID)
}

func NewCampaignNotFound(id string) error {
	return &ErrCampaignNotFound{CampaignID: id}
}
