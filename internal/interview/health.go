package interview

import (
	"context"
	"fmt"

	"github.com/hireloop/interview-cli/internal/transport"
)

const healthPath = "/health-check"

// HealthCheck probes the remote AI system. A non-2xx answer or transport
// failure means the system cannot take answers right now.
func (c *Client) HealthCheck() error {
	if err := c.getJSON(healthPath, nil); err != nil {
		return fmt.Errorf("interview system health check: %w", err)
	}

	return nil
}

// WaitReady blocks until the remote AI system reports healthy, probing with
// the shared retry policy. It returns the last probe error when the policy is
// exhausted.
func (c *Client) WaitReady(ctx context.Context, policy transport.Policy) error {
	return transport.Retry(ctx, c.logger, policy, "health-check", func(context.Context) error {
		return c.HealthCheck()
	})
}
