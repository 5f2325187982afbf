// Package console is a development provider that logs instead of sending SMS.
// Every send "delivers" the same configured code.
package console

import (
	"context"
	"crypto/subtle"
	"log/slog"

	"github.com/google/uuid"

	"phasegate/internal/otp/provider"
)

const providerName = "console"

type Provider struct {
	code   string
	logger *slog.Logger
}

func New(code string, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{code: code, logger: logger}
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) SendCode(ctx context.Context, phone string) (*provider.SendResult, error) {
	sid := "CO" + uuid.NewString()
	last4 := phone
	if len(phone) > 4 {
		last4 = phone[len(phone)-4:]
	}
	p.logger.InfoContext(ctx, "console otp sent",
		"sid", sid,
		"phone_last4", last4,
		"code", p.code,
	)
	return &provider.SendResult{SID: sid, Channel: provider.ChannelSMS, Status: "pending"}, nil
}

func (p *Provider) CheckCode(_ context.Context, _ string, code string) (*provider.CheckResult, error) {
	if subtle.ConstantTimeCompare([]byte(code), []byte(p.code)) != 1 {
		return &provider.CheckResult{Approved: false, Status: "pending"}, nil
	}
	return &provider.CheckResult{Approved: true, SID: "CO" + uuid.NewString(), Status: "approved"}, nil
}
