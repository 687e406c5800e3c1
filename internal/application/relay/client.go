package relay

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"joinnow/internal/common/errors"
	commonhttp "joinnow/internal/common/http"
	"joinnow/internal/common/logger"
	"joinnow/internal/common/metrics"
	"joinnow/internal/models"
)

const maxResponseBody = 4 << 10

// Client delivers finished applications to the form relay. Each Submit makes
// exactly one POST; retrying is left to the applicant.
type Client struct {
	config     *Config
	logger     logger.Logger
	httpClient *commonhttp.Client
}

type ClientOptions struct {
	Config     *Config
	HTTPClient *commonhttp.Client
	Logger     logger.Logger
}

func NewClient(opts ClientOptions) (*Client, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid relay configuration: %w", err)
	}

	var loggerInstance logger.Logger
	if opts.Logger != nil {
		loggerInstance = opts.Logger
	} else {
		loggerInstance = logger.NewStructured("info", "json")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = commonhttp.NewClient(cfg.Timeout)
	}

	return &Client{
		config:     cfg,
		logger:     loggerInstance,
		httpClient: httpClient,
	}, nil
}

// Submit builds the payload for form and posts it to the relay.
func (c *Client) Submit(ctx context.Context, form models.ApplicationForm) error {
	payload, err := BuildPayload(form, c.config.Metadata())
	if err != nil {
		metrics.RelaySubmissions.WithLabelValues(string(form.Role), metrics.OutcomeFailed).Inc()
		return err
	}

	if result := ValidatePayload(form.Role, payload); !result.Valid {
		metrics.RelaySubmissions.WithLabelValues(string(form.Role), metrics.OutcomeFailed).Inc()
		c.logger.Error("Relay payload failed validation", map[string]interface{}{
			"role":   form.Role,
			"errors": result.GetErrorMessages(),
		})
		return errors.NewPayloadInvalidError(strings.Join(result.GetErrorMessages(), "; "))
	}

	return c.Send(ctx, string(form.Role), payload)
}

// Send posts an already built payload. role only labels metrics and logs.
func (c *Client) Send(ctx context.Context, role string, payload *Payload) error {
	body, contentType, err := payload.Encode()
	if err != nil {
		metrics.RelaySubmissions.WithLabelValues(role, metrics.OutcomeFailed).Inc()
		return errors.NewPayloadInvalidError(err.Error())
	}

	metrics.RelaySubmissionsInFlight.Inc()
	defer metrics.RelaySubmissionsInFlight.Dec()

	start := time.Now()
	c.logger.Debug("Posting application to relay", map[string]interface{}{
		"role":   role,
		"fields": len(payload.Keys()),
	})

	resp, err := c.httpClient.Post(ctx, c.config.URL, contentType, body)
	if err != nil {
		c.observe(role, metrics.OutcomeFailed, start)
		c.logger.Error("Relay request failed", map[string]interface{}{
			"role":  role,
			"error": err,
		})
		return errors.NewRelayRequestFailedError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		c.observe(role, metrics.OutcomeRejected, start)
		c.logger.Error("Relay rejected application", map[string]interface{}{
			"role":       role,
			"statusCode": resp.StatusCode,
		})
		return errors.NewRelayRejectedError(resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))

	c.observe(role, metrics.OutcomeSuccess, start)
	c.logger.Info("Application delivered to relay", map[string]interface{}{
		"role":       role,
		"statusCode": resp.StatusCode,
		"duration":   time.Since(start).String(),
	})
	return nil
}

func (c *Client) observe(role, outcome string, start time.Time) {
	metrics.RelaySubmissions.WithLabelValues(role, outcome).Inc()
	metrics.RelaySubmissionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
