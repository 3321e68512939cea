package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AuthMetrics is the instrument set handed to the authentication
// orchestrator. Components receive it through their constructor rather
// than reaching for a process-wide meter.
type AuthMetrics struct {
	logins        metric.Int64Counter
	registrations metric.Int64Counter
	tokensIssued  metric.Int64Counter
	resetRequests metric.Int64Counter
}

// NewAuthMetrics creates the authentication instrument set on the given meter
func NewAuthMetrics(meter metric.Meter) (*AuthMetrics, error) {
	logins, err := meter.Int64Counter("auth_login_attempts_total",
		metric.WithDescription("Login attempts by result"))
	if err != nil {
		return nil, fmt.Errorf("failed to create login counter: %w", err)
	}

	registrations, err := meter.Int64Counter("auth_registrations_total",
		metric.WithDescription("User registrations by result"))
	if err != nil {
		return nil, fmt.Errorf("failed to create registration counter: %w", err)
	}

	tokensIssued, err := meter.Int64Counter("auth_tokens_issued_total",
		metric.WithDescription("Issued tokens by kind"))
	if err != nil {
		return nil, fmt.Errorf("failed to create token counter: %w", err)
	}

	resetRequests, err := meter.Int64Counter("auth_password_reset_requests_total",
		metric.WithDescription("Password reset requests"))
	if err != nil {
		return nil, fmt.Errorf("failed to create reset counter: %w", err)
	}

	return &AuthMetrics{
		logins:        logins,
		registrations: registrations,
		tokensIssued:  tokensIssued,
		resetRequests: resetRequests,
	}, nil
}

// RecordLogin records a login attempt outcome
func (m *AuthMetrics) RecordLogin(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordRegistration records a registration outcome
func (m *AuthMetrics) RecordRegistration(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.registrations.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordTokenIssued records an issued token by kind (access, refresh, reset)
func (m *AuthMetrics) RecordTokenIssued(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.tokensIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordResetRequest records a password reset request
func (m *AuthMetrics) RecordResetRequest(ctx context.Context) {
	if m == nil {
		return
	}
	m.resetRequests.Add(ctx, 1)
}

// PrometheusHandler returns a Gin handler for Prometheus metrics
func PrometheusHandler(handler http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if handler != nil {
			handler.ServeHTTP(c.Writer, c.Request)
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "metrics handler not initialized",
			})
		}
	}
}
