package payments

import (
	"context"

	"tourmart/utils"
)

// ChargeRequest describes one payment attempt against an order.
type ChargeRequest struct {
	OrderID   string
	OrderCode string
	BuyerID   string
	Method    string
	Amount    int64
}

// ChargeResult is the provider's verdict. A decline is a normal negative
// outcome, not an error; errors are reserved for transport faults.
type ChargeResult struct {
	Approved      bool
	Reference     string
	DeclineReason string
}

// Gateway abstracts the external payment provider.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

var supportedMethods = map[string]bool{
	"card":   true,
	"wallet": true,
	"bank":   true,
}

// SessionGateway is the stand-in provider used outside production. It
// approves any charge made with a known method and fabricates a reference.
type SessionGateway struct{}

func (SessionGateway) Charge(_ context.Context, req ChargeRequest) (*ChargeResult, error) {
	if !supportedMethods[req.Method] {
		return &ChargeResult{Approved: false, DeclineReason: "unsupported payment method"}, nil
	}
	if req.Amount <= 0 {
		return &ChargeResult{Approved: false, DeclineReason: "non-positive amount"}, nil
	}
	return &ChargeResult{
		Approved:  true,
		Reference: "PAY" + utils.GenerateRandomDigitString(12),
	}, nil
}
