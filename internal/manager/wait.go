package manager

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/ontology-registry/internal/otel"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	maxPollInterval     = 2 * time.Second
)

// WaitForService polls the health endpoint until it answers 200 OK.
// A negative timeout blocks until ctx is done. When a finite timeout elapses
// the returned error matches ErrServiceTimeout.
func (c *Client) WaitForService(ctx context.Context, timeout time.Duration) error {
	ctx, span := otel.StartSpan(ctx, c.tracer, "manager.WaitForService",
		trace.WithAttributes(otel.AttrWaitTimeout.String(timeout.String())),
	)
	defer span.End()

	waitCtx := ctx
	if timeout >= 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.pollInterval
	b.MaxInterval = maxPollInterval

	attempts := 0
	_, err := backoff.Retry(waitCtx, func() (struct{}, error) {
		attempts++
		return struct{}{}, c.ping(waitCtx)
	},
		backoff.WithBackOff(b),
		// the deadline is carried by waitCtx
		backoff.WithMaxElapsedTime(0),
	)
	if err == nil {
		c.logger.InfoContext(ctx, "Management service is ready", "endpoint", c.endpoint, "attempts", attempts)
		return nil
	}

	if timeout >= 0 && ctx.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %s not reachable within %s after %d attempts", ErrServiceTimeout, c.endpoint, timeout, attempts)
	} else {
		err = fmt.Errorf("waiting for management service %s: %w", c.endpoint, err)
	}
	otel.RecordError(span, err)
	c.logger.ErrorContext(ctx, "Management service not ready", "endpoint", c.endpoint, "error", err)
	return err
}

func (c *Client) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.endpoint + HealthPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "Management service not reachable yet", "error", err)
		return err
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.DebugContext(ctx, "Management service not ready yet", "status", resp.StatusCode)
		return NewHTTPError(resp.StatusCode, target, resp.Status)
	}
	return nil
}
