package llm

import (
	"context"

	"github.com/wolfman30/leadflow/pkg/logging"
)

// FailoverClient wraps a primary provider with a secondary one.
// If the primary fails the request is sent once to the secondary.
type FailoverClient struct {
	primary   Client
	secondary Client
	logger    *logging.Logger
}

// NewFailoverClient creates a failover-enabled client.
// With a nil secondary it behaves like the primary alone.
func NewFailoverClient(primary, secondary Client, logger *logging.Logger) *FailoverClient {
	if primary == nil {
		panic("llm: primary client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FailoverClient{primary: primary, secondary: secondary, logger: logger}
}

func (c *FailoverClient) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}

	c.logger.Warn("primary LLM failed, attempting secondary",
		"error", err.Error(),
		"secondary_available", c.secondary != nil,
	)
	if c.secondary == nil || ctx.Err() != nil {
		return Response{}, err
	}

	// the model id names a primary-provider model
	req.Model = ""
	resp, secondaryErr := c.secondary.Complete(ctx, req)
	if secondaryErr != nil {
		c.logger.Error("secondary LLM also failed",
			"primary_error", err.Error(),
			"secondary_error", secondaryErr.Error(),
		)
		return Response{}, secondaryErr
	}
	c.logger.Info("secondary LLM succeeded after primary failure")
	return resp, nil
}
