package api

import (
	"context"

	"github.com/spinlabs/wheel-client/internal/ledger"
	"github.com/spinlabs/wheel-client/internal/model"
)

// Spin consumes one free or extra spin. The reply carries the outcome and
// the authoritative post-spin counters.
func (c *Client) Spin(ctx context.Context, source model.SpinSource) (*SpinData, error) {
	var data SpinData
	if err := c.post(ctx, "/wheel/spin", spinRequest{Source: source}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// SpinWithTicket consumes one purchased spin ticket.
func (c *Client) SpinWithTicket(ctx context.Context) (*SpinData, error) {
	var data SpinData
	if err := c.post(ctx, "/wheel/spin-ticket", nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// PurchaseTickets buys spin tickets. The reply carries server-absolute
// ticket and balance values, never locally computed deltas.
func (c *Client) PurchaseTickets(ctx context.Context, quantity int) (*PurchaseData, error) {
	var data PurchaseData
	if err := c.post(ctx, "/wheel/tickets", purchaseRequest{Quantity: quantity}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// SubmitWithdrawal submits a withdrawal request.
func (c *Client) SubmitWithdrawal(ctx context.Context, req WithdrawalRequest) (*WithdrawalData, error) {
	var data WithdrawalData
	if err := c.post(ctx, "/withdrawals", req, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetWheelConfig fetches the once-per-session configuration snapshot:
// ordered prize list, credit maxima and ticket price.
func (c *Client) GetWheelConfig(ctx context.Context) (*model.WheelConfig, error) {
	var data configData
	if err := c.get(ctx, "/wheel/config", &data); err != nil {
		return nil, err
	}
	return &data.Config, nil
}

// GetState fetches the full credit state for the initial ledger fill.
func (c *Client) GetState(ctx context.Context) (*ledger.Snapshot, error) {
	var data stateData
	if err := c.get(ctx, "/wheel/state", &data); err != nil {
		return nil, err
	}
	return &data.State, nil
}
