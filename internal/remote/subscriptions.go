package remote

import (
	"context"
	"net/http"
	"net/url"
)

// PushSubscription is one registered delivery endpoint for a user.
type PushSubscription struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Endpoint string `json:"endpoint"`
}

// ListPushSubscriptions returns the delivery endpoints registered for a
// user.
func (c *Client) ListPushSubscriptions(ctx context.Context, userID string) ([]PushSubscription, error) {
	query := url.Values{}
	query.Set("user_id", userID)

	var out struct {
		Data []PushSubscription `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/push_subscriptions", query, "", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// DeletePushSubscription deregisters an endpoint. Callers must invoke this
// for endpoints that report themselves gone. A 404 counts as success.
func (c *Client) DeletePushSubscription(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, "/push_subscriptions/"+id, nil, "", nil, nil)
	if IsNotFound(err) {
		return nil
	}
	return err
}
