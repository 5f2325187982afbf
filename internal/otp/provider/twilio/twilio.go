// Package twilio adapts the Twilio Verify v2 API to the provider contract.
package twilio

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	twilio "github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	verify "github.com/twilio/twilio-go/rest/verify/v2"

	"phasegate/internal/otp/provider"
)

const (
	providerName   = "twilio"
	statusApproved = "approved"
)

// verifyAPI is the slice of the Verify v2 service the adapter calls.
type verifyAPI interface {
	CreateVerification(serviceSid string, params *verify.CreateVerificationParams) (*verify.VerifyV2Verification, error)
	CreateVerificationCheck(serviceSid string, params *verify.CreateVerificationCheckParams) (*verify.VerifyV2VerificationCheck, error)
}

// Provider sends and checks codes through a Verify service.
type Provider struct {
	api        verifyAPI
	serviceSID string
	timeout    time.Duration
}

type Option func(*Provider)

// WithTimeout bounds each Verify call. Zero leaves only the caller's deadline.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.timeout = d
	}
}

// New builds a provider authenticated with the account credentials.
func New(accountSID, authToken, serviceSID string, opts ...Option) *Provider {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newWithAPI(client.VerifyV2, serviceSID, opts...)
}

func newWithAPI(api verifyAPI, serviceSID string, opts ...Option) *Provider {
	p := &Provider{api: api, serviceSID: serviceSID}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) SendCode(ctx context.Context, phone string) (*provider.SendResult, error) {
	params := &verify.CreateVerificationParams{}
	params.SetTo(phone)
	params.SetChannel(provider.ChannelSMS)

	resp, err := call(ctx, p.timeout, func() (*verify.VerifyV2Verification, error) {
		return p.api.CreateVerification(p.serviceSID, params)
	})
	if err != nil {
		return nil, classify(ctx, err, "create verification")
	}
	return &provider.SendResult{
		SID:     deref(resp.Sid),
		Channel: valueOr(deref(resp.Channel), provider.ChannelSMS),
		Status:  deref(resp.Status),
	}, nil
}

// CheckCode reports Approved only for an "approved" verdict. Verify answers
// 404 once a verification is used up or expired; that is a failed check.
func (p *Provider) CheckCode(ctx context.Context, phone, code string) (*provider.CheckResult, error) {
	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(phone)
	params.SetCode(code)

	resp, err := call(ctx, p.timeout, func() (*verify.VerifyV2VerificationCheck, error) {
		return p.api.CreateVerificationCheck(p.serviceSID, params)
	})
	if err != nil {
		var restErr *twclient.TwilioRestError
		if errors.As(err, &restErr) && restErr.Status == http.StatusNotFound {
			return &provider.CheckResult{Approved: false, Status: "not_found"}, nil
		}
		return nil, classify(ctx, err, "check verification")
	}
	status := deref(resp.Status)
	return &provider.CheckResult{
		Approved: strings.EqualFold(status, statusApproved),
		SID:      deref(resp.Sid),
		Status:   status,
	}, nil
}

// call runs a blocking SDK request and returns early when ctx ends. The SDK
// takes no context, so an abandoned request finishes in the background.
func call[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func classify(ctx context.Context, err error, op string) *provider.Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return provider.NewError(provider.ErrorTimeout, providerName, op+" timed out", err)
	}
	var restErr *twclient.TwilioRestError
	if !errors.As(err, &restErr) {
		return provider.NewError(provider.ErrorProviderOutage, providerName, op+" failed", err)
	}
	switch {
	case restErr.Status == http.StatusTooManyRequests:
		return provider.NewError(provider.ErrorRateLimited, providerName, op+" throttled", err)
	case restErr.Status == http.StatusUnauthorized || restErr.Status == http.StatusForbidden:
		return provider.NewError(provider.ErrorAuthentication, providerName, op+" rejected credentials", err)
	case restErr.Status >= http.StatusInternalServerError:
		return provider.NewError(provider.ErrorProviderOutage, providerName, op+" unavailable", err)
	case restErr.Status >= http.StatusBadRequest:
		return provider.NewError(provider.ErrorInvalidRequest, providerName, op+" rejected request", err)
	default:
		return provider.NewError(provider.ErrorInternal, providerName, op+" failed", err)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
