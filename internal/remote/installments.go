package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/navid4x/ghesta/internal/models"
)

// ListOptions filters ListInstallments. Results are always ordered by next
// due date ascending; that ordering is part of the remote contract.
type ListOptions struct {
	DueFrom        string // Gregorian YYYY-MM-DD, inclusive
	DueTo          string // Gregorian YYYY-MM-DD, inclusive
	IncludeDeleted bool
}

// ListInstallments returns the remote installments owned by userID.
func (c *Client) ListInstallments(ctx context.Context, userID string, opts ListOptions) ([]models.Installment, error) {
	query := url.Values{}
	query.Set("user_id", userID)
	if opts.DueFrom != "" {
		query.Set("due_from", opts.DueFrom)
	}
	if opts.DueTo != "" {
		query.Set("due_to", opts.DueTo)
	}
	if opts.IncludeDeleted {
		query.Set("include_deleted", "true")
	}

	var out struct {
		Data []models.Installment `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/installments", query, "", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ListUserIDs returns every user id owning at least one installment. The
// daily reminder scan iterates this set.
func (c *Client) ListUserIDs(ctx context.Context) ([]string, error) {
	var out struct {
		Data []string `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/installments/users", nil, "", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CreateInstallment creates inst remotely. The server treats a repeated
// idempotency key as already applied.
func (c *Client) CreateInstallment(ctx context.Context, opID string, inst models.Installment) error {
	return c.do(ctx, http.MethodPost, "/installments", nil, opID, inst, nil)
}

// UpdateInstallment replaces the remote record, payments included.
func (c *Client) UpdateInstallment(ctx context.Context, opID string, inst models.Installment) error {
	return c.do(ctx, http.MethodPut, "/installments/"+inst.ID, nil, opID, inst, nil)
}

// SetPaymentState applies the absolute paid state of one payment. Repeating
// the call with the same target state is a no-op, not an error.
func (c *Client) SetPaymentState(ctx context.Context, opID string, p models.TogglePayload) error {
	path := fmt.Sprintf("/installments/%s/payments/%s/state", p.InstallmentID, p.PaymentID)
	return c.do(ctx, http.MethodPut, path, nil, opID, p, nil)
}

// SoftDeleteInstallment stamps deleted_at remotely.
func (c *Client) SoftDeleteInstallment(ctx context.Context, opID, installmentID string, deletedAt time.Time) error {
	body := map[string]any{"deleted_at": deletedAt.UTC().Format(time.RFC3339Nano)}
	return c.do(ctx, http.MethodPost, "/installments/"+installmentID+"/soft_delete", nil, opID, body, nil)
}

// RestoreInstallment clears deleted_at remotely.
func (c *Client) RestoreInstallment(ctx context.Context, opID, installmentID string) error {
	return c.do(ctx, http.MethodPost, "/installments/"+installmentID+"/restore", nil, opID, nil, nil)
}

// HardDeleteInstallment purges the record. A 404 means it is already gone
// and counts as success.
func (c *Client) HardDeleteInstallment(ctx context.Context, opID, installmentID string) error {
	err := c.do(ctx, http.MethodDelete, "/installments/"+installmentID, nil, opID, nil, nil)
	if IsNotFound(err) {
		return nil
	}
	return err
}
