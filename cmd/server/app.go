package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	adminhandler "phasegate/internal/admin/handler"
	adminservice "phasegate/internal/admin/service"
	jwttoken "phasegate/internal/jwt_token"
	onboardinghandler "phasegate/internal/onboarding/handler"
	onboardingservice "phasegate/internal/onboarding/service"
	"phasegate/internal/otp/cooldown"
	otphandler "phasegate/internal/otp/handler"
	otpmetrics "phasegate/internal/otp/metrics"
	"phasegate/internal/otp/phoneseal"
	"phasegate/internal/otp/provider"
	"phasegate/internal/otp/provider/console"
	"phasegate/internal/otp/provider/twilio"
	otpservice "phasegate/internal/otp/service"
	outreachhandler "phasegate/internal/outreach/handler"
	outreachmetrics "phasegate/internal/outreach/metrics"
	outreachservice "phasegate/internal/outreach/service"
	outreachstore "phasegate/internal/outreach/store"
	"phasegate/internal/platform/config"
	"phasegate/internal/platform/metrics"
	"phasegate/internal/platform/postgres"
	platformredis "phasegate/internal/platform/redis"
	profileservice "phasegate/internal/profile/service"
	profilestore "phasegate/internal/profile/store"
	verificationhandler "phasegate/internal/verification/handler"
	verificationmetrics "phasegate/internal/verification/metrics"
	verificationservice "phasegate/internal/verification/service"
	verificationstore "phasegate/internal/verification/store"
	"phasegate/pkg/platform/audit"
	auditkafka "phasegate/pkg/platform/audit/kafka"
)

// app holds the wired services, handlers and the resources that must be
// closed on shutdown.
type app struct {
	cfg      config.Server
	logger   *slog.Logger
	registry *prometheus.Registry

	db    *sql.DB
	redis *platformredis.Client
	kafka *auditkafka.Publisher

	jwt      *jwttoken.JWTService
	profiles *profileservice.Service

	onboarding   *onboardinghandler.Handler
	verification *verificationhandler.Handler
	otp          *otphandler.Handler
	outreach     *outreachhandler.Handler
	admin        *adminhandler.Handler
}

type stores struct {
	profiles      profileservice.Store
	verifications verificationservice.Store
	outreach      outreachservice.Store
}

func buildApp(ctx context.Context, cfg config.Server, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: metrics.NewRegistry(),
		jwt:      jwttoken.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer),
	}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	st, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}

	auditor, err := a.auditEmitter(ctx)
	if err != nil {
		return nil, err
	}

	gate, err := a.sendGate(ctx)
	if err != nil {
		return nil, err
	}

	sealer, err := phoneseal.New(cfg.OTP.PhoneSealKey)
	if err != nil {
		return nil, fmt.Errorf("phone sealer: %w", err)
	}

	a.profiles = profileservice.New(st.profiles, profileservice.WithLogger(logger))
	verifications := verificationservice.New(st.verifications,
		verificationservice.WithLogger(logger),
		verificationservice.WithAuditPublisher(auditor),
		verificationservice.WithMetrics(verificationmetrics.New(a.registry)),
	)
	onboarding := onboardingservice.New(a.profiles, verifications,
		onboardingservice.WithLogger(logger),
		onboardingservice.WithAuditPublisher(auditor),
	)
	otp := otpservice.New(verifications, a.profiles, a.otpProvider(), sealer,
		otpservice.WithLogger(logger),
		otpservice.WithAuditPublisher(auditor),
		otpservice.WithMetrics(otpmetrics.New(a.registry)),
		otpservice.WithGate(gate),
		otpservice.WithCooldown(cfg.OTP.Cooldown),
	)
	outreach := outreachservice.New(st.outreach, a.profiles, verifications,
		outreachservice.WithLogger(logger),
		outreachservice.WithAuditPublisher(auditor),
		outreachservice.WithMetrics(outreachmetrics.New(a.registry)),
	)
	admin, err := adminservice.New(a.profiles, verifications, adminservice.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	a.onboarding = onboardinghandler.New(onboarding, logger)
	a.verification = verificationhandler.New(verifications, a.profiles, logger)
	a.otp = otphandler.New(otp, a.profiles, logger)
	a.outreach = outreachhandler.New(outreach, a.profiles, logger)
	a.admin = adminhandler.New(admin, a.profiles, logger)

	ok = true
	return a, nil
}

func (a *app) openStores(ctx context.Context) (*stores, error) {
	if a.cfg.Database.URL == "" {
		a.logger.WarnContext(ctx, "DATABASE_URL not set, using in-memory stores")
		return &stores{
			profiles:      profilestore.NewInMemory(),
			verifications: verificationstore.NewInMemory(),
			outreach:      outreachstore.NewInMemory(),
		}, nil
	}
	db, err := postgres.Open(ctx, a.cfg.Database)
	if err != nil {
		return nil, err
	}
	a.db = db
	return &stores{
		profiles:      profilestore.NewPostgres(db),
		verifications: verificationstore.NewPostgres(db),
		outreach:      outreachstore.NewPostgres(db),
	}, nil
}

// auditEmitter publishes to Kafka when brokers are configured and to the
// structured log otherwise.
func (a *app) auditEmitter(ctx context.Context) (*audit.Emitter, error) {
	if len(a.cfg.Kafka.Brokers) == 0 {
		return audit.NewEmitter(audit.NewLogPublisher(a.logger), a.logger), nil
	}
	publisher, err := auditkafka.New(a.cfg.Kafka.Brokers, a.cfg.Kafka.AuditTopic,
		auditkafka.WithLogger(a.logger),
		auditkafka.WithDeliveryTimeout(a.cfg.Kafka.DeliveryTimeout),
	)
	if err != nil {
		return nil, err
	}
	a.kafka = publisher
	topicCtx, cancel := context.WithTimeout(ctx, a.cfg.Kafka.DeliveryTimeout)
	defer cancel()
	if err := publisher.EnsureTopic(topicCtx, 1, 1); err != nil {
		return nil, err
	}
	return audit.NewEmitter(publisher, a.logger), nil
}

func (a *app) sendGate(ctx context.Context) (cooldown.Gate, error) {
	client, err := platformredis.New(ctx, a.cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return cooldown.NewMemory(), nil
	}
	a.redis = client
	return cooldown.NewRedis(client.Client), nil
}

func (a *app) otpProvider() provider.Provider {
	switch a.cfg.OTP.Provider {
	case config.OTPProviderTwilio:
		return twilio.New(a.cfg.OTP.TwilioAccountSID, a.cfg.OTP.TwilioAuthToken, a.cfg.OTP.TwilioServiceSID,
			twilio.WithTimeout(a.cfg.OTP.ProviderTimeout))
	default:
		a.logger.Warn("using console OTP provider, codes are not delivered", "code", a.cfg.OTP.ConsoleCode)
		return console.New(a.cfg.OTP.ConsoleCode, a.logger)
	}
}

// health reports the first failing dependency.
func (a *app) health(ctx context.Context) error {
	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (a *app) Close() error {
	var errs []error
	if a.kafka != nil {
		a.kafka.Close()
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
