package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/joaquindlz/wp-bot/internal/constants"
	apperrors "github.com/joaquindlz/wp-bot/internal/errors"
	"github.com/joaquindlz/wp-bot/internal/metrics"
	"github.com/joaquindlz/wp-bot/internal/models"
	"github.com/joaquindlz/wp-bot/internal/tracing"
)

// Outcome classifies the result of one forward attempt
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeAuthRejected Outcome = "auth_rejected"
	OutcomeHTTPError    Outcome = "http_error"
	OutcomeNoResponse   Outcome = "no_response"
	OutcomeRequestError Outcome = "request_error"
)

// ErrRequestBuild marks failures that happened before anything was sent
var ErrRequestBuild = errors.New("failed to build forward request")

// maxDrainBytes bounds how much of a response body is read before closing
const maxDrainBytes = 64 << 10

// ForwardResult is the completion of one forward attempt
type ForwardResult struct {
	ForwardID  string
	MessageID  string
	Outcome    Outcome
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Dispatcher hands payloads to the forwarder without waiting for the result
type Dispatcher interface {
	Dispatch(ctx context.Context, payload *models.ForwardPayload) <-chan ForwardResult
}

// ClassifyOutcome maps a response status or transport error to an outcome.
// A non-nil err takes precedence over the status code.
func ClassifyOutcome(statusCode int, err error) Outcome {
	if err != nil {
		if errors.Is(err, ErrRequestBuild) {
			return OutcomeRequestError
		}
		return OutcomeNoResponse
	}
	switch {
	case statusCode >= 200 && statusCode < 300:
		return OutcomeSuccess
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return OutcomeAuthRejected
	default:
		return OutcomeHTTPError
	}
}

// Forwarder posts Forward Payloads to the configured endpoint. Each payload
// gets exactly one attempt; failures are logged and never retried.
type Forwarder struct {
	endpoint   string
	authToken  string
	httpClient *http.Client
	logger     *apperrors.Logger
}

// NewForwarder creates a forwarder for the configured endpoint and token
func NewForwarder(config *models.Config, logger *logrus.Logger) *Forwarder {
	return &Forwarder{
		endpoint:   config.APIEndpoint,
		authToken:  config.AuthToken,
		httpClient: &http.Client{Timeout: models.ForwardTimeout},
		logger:     apperrors.WrapLogger(logger),
	}
}

// WithHTTPClient replaces the HTTP client, keeping the forward timeout
func (f *Forwarder) WithHTTPClient(client *http.Client) *Forwarder {
	if client.Timeout == 0 {
		client.Timeout = models.ForwardTimeout
	}
	f.httpClient = client
	return f
}

// Dispatch runs Forward on its own goroutine. The returned channel receives
// exactly one result and is buffered, so nobody has to read it.
func (f *Forwarder) Dispatch(ctx context.Context, payload *models.ForwardPayload) <-chan ForwardResult {
	results := make(chan ForwardResult, constants.ForwardResultChanSize)
	go func() {
		defer close(results)
		results <- f.Forward(ctx, payload)
	}()
	return results
}

// Forward performs a single POST and logs its outcome
func (f *Forwarder) Forward(ctx context.Context, payload *models.ForwardPayload) ForwardResult {
	forwardID := tracing.NewForwardID()
	ctx = tracing.WithForwardID(ctx, forwardID)
	ctx, span := tracing.StartSpan(ctx, "forward",
		attribute.String("forward.id", forwardID),
		attribute.String("message.type", payload.Message.Type),
	)
	defer span.End()

	start := time.Now()
	statusCode, err := f.post(ctx, payload)
	result := ForwardResult{
		ForwardID:  forwardID,
		MessageID:  payload.MessageID,
		Outcome:    ClassifyOutcome(statusCode, err),
		StatusCode: statusCode,
		Duration:   time.Since(start),
		Err:        err,
	}

	span.SetAttributes(
		attribute.String("forward.outcome", string(result.Outcome)),
		attribute.Int("http.status_code", statusCode),
	)
	if result.Outcome == OutcomeSuccess {
		tracing.SetSpanStatus(ctx, codes.Ok, "")
	} else if err != nil {
		tracing.RecordError(ctx, err)
	} else {
		tracing.SetSpanStatus(ctx, codes.Error, http.StatusText(statusCode))
	}

	labels := map[string]string{LogFieldOutcome: string(result.Outcome)}
	metrics.IncrementCounter(metrics.ForwardsTotal, labels, "Forward attempts by outcome")
	metrics.RecordTimer(metrics.ForwardDuration, result.Duration, labels, "Forward request duration")

	f.logResult(ctx, result)
	return result
}

func (f *Forwarder) post(ctx context.Context, payload *models.ForwardPayload) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRequestBuild, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRequestBuild, err)
	}
	req.Header.Set("Content-Type", constants.ContentTypeJSON)
	if f.authToken != "" {
		req.Header.Set("Authorization", constants.AuthorizationScheme+" "+f.authToken)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	return resp.StatusCode, nil
}

func (f *Forwarder) logResult(ctx context.Context, result ForwardResult) {
	fields := logrus.Fields{
		LogFieldForwardID: result.ForwardID,
		LogFieldMessageID: result.MessageID,
		LogFieldEndpoint:  f.endpoint,
		LogFieldOutcome:   string(result.Outcome),
		LogFieldDuration:  result.Duration.Milliseconds(),
	}
	if traceID := tracing.TraceID(ctx); traceID != "" {
		fields[LogFieldTraceID] = traceID
	}
	if result.StatusCode > 0 {
		fields[LogFieldStatusCode] = result.StatusCode
	}

	switch result.Outcome {
	case OutcomeSuccess:
		f.logger.WithFields(fields).Info("Forwarded message to API")
	case OutcomeAuthRejected:
		f.logger.LogError(apperrors.NewForwardError(result.StatusCode, errors.New(http.StatusText(result.StatusCode))),
			"API rejected the credentials, check API_AUTH_TOKEN", fields)
	case OutcomeHTTPError:
		f.logger.LogError(apperrors.NewForwardError(result.StatusCode, errors.New(http.StatusText(result.StatusCode))),
			"API returned an error status", fields)
	case OutcomeNoResponse:
		f.logger.LogError(apperrors.NewForwardError(0, result.Err),
			"No response from API (timeout or network problem)", fields)
	case OutcomeRequestError:
		f.logger.LogError(apperrors.NewForwardError(0, result.Err),
			"Failed to build forward request", fields)
	}
}
