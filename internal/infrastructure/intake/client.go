// Package intake holds the client for the intake API, the upstream
// service that owns orders and submission records. The portal only
// forwards status changes; it never mutates intake data locally.
package intake

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"portal-server/services/portal-api/internal/utils/platformerrors"
)

// StatusUpdater forwards record status changes to the intake service.
type StatusUpdater interface {
	UpdateOrderStatus(ctx context.Context, id, status string) error
	UpdateSubmissionStatus(ctx context.Context, id, status string) error
}

// Client implements StatusUpdater over the intake HTTP API.
type Client struct {
	httpClient *resty.Client
}

// NewClient creates a Resty-backed intake client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json").
			SetTimeout(timeout),
	}
}

var _ StatusUpdater = (*Client)(nil)

type statusUpdateRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus calls intake PATCH /v1/orders/{id}.
func (c *Client) UpdateOrderStatus(ctx context.Context, id, status string) error {
	return c.patch(ctx, "/v1/orders/{id}", id, status, "failed to update order status")
}

// UpdateSubmissionStatus calls intake PATCH /v1/submissions/{id}.
func (c *Client) UpdateSubmissionStatus(ctx context.Context, id, status string) error {
	return c.patch(ctx, "/v1/submissions/{id}", id, status, "failed to update submission status")
}

func (c *Client) patch(ctx context.Context, path, id, status, failMsg string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetBody(statusUpdateRequest{Status: status}).
		Patch(path)
	if err != nil {
		return platformerrors.NewError(ctx,
			platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			failMsg, err)
	}
	if resp.StatusCode() == 404 {
		return platformerrors.NewError(ctx,
			platformerrors.LayerInfrastructure, platformerrors.ErrorTypeNotFound,
			"intake record not found", nil)
	}
	if resp.IsError() {
		return platformerrors.NewErrorWithContext(ctx,
			platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			failMsg, nil,
			map[string]any{"status_code": resp.StatusCode(), "body": resp.String()})
	}
	return nil
}
