// Package provider defines the contract SMS verification providers implement.
// Adapters translate vendor failures into *Error so the workflow never sees
// vendor types.
package provider

//go:generate mockgen -source=provider.go -destination=mocks/mocks.go -package=mocks Provider

import (
	"context"
)

// ChannelSMS is the only delivery channel the workflow uses.
const ChannelSMS = "sms"

// SendResult describes an accepted verification request.
type SendResult struct {
	SID     string
	Channel string
	Status  string
}

// CheckResult is the provider's verdict on a code. Approved is false for a
// wrong, expired or unknown code; those are outcomes, not errors.
type CheckResult struct {
	Approved bool
	SID      string
	Status   string
}

// Provider sends and checks one-time codes for a phone number.
type Provider interface {
	// Name identifies the provider in evidence and logs.
	Name() string

	// SendCode asks the provider to deliver a code to phone.
	SendCode(ctx context.Context, phone string) (*SendResult, error)

	// CheckCode asks the provider whether code is valid for phone.
	CheckCode(ctx context.Context, phone, code string) (*CheckResult, error)
}
