package mocked

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/dancycodes/chopwallet/internal/core/ports"
)

// SettingsStub serves fixed commission rates and hold hours.
type SettingsStub struct {
	Rates map[int64]decimal.Decimal
	Hours int
}

func (s *SettingsStub) CommissionRate(_ context.Context, tenantID int64) (decimal.Decimal, error) {
	if rate, ok := s.Rates[tenantID]; ok {
		return rate, nil
	}
	return decimal.NewFromInt(ports.DefaultCommissionRate), nil
}

func (s *SettingsStub) HoldHours(_ context.Context) (int, error) {
	if s.Hours > 0 {
		return s.Hours, nil
	}
	return ports.DefaultHoldHours, nil
}

// Notification is a single captured Notify call.
type Notification struct {
	TenantID int64
	CookID   int64
	Kind     string
	Payload  map[string]any
}

// NotifierSpy records every dispatched notification.
type NotifierSpy struct {
	mu   sync.Mutex
	Sent []Notification
	Err  error
}

func (n *NotifierSpy) Notify(_ context.Context, tenantID, cookID int64, kind string, payload map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.Sent = append(n.Sent, Notification{TenantID: tenantID, CookID: cookID, Kind: kind, Payload: payload})
	return n.Err
}

// AuditEvent is a single captured audit entry.
type AuditEvent struct {
	Actor      string
	Action     string
	Properties map[string]any
}

// AuditSpy records every audit event.
type AuditSpy struct {
	mu     sync.Mutex
	Events []AuditEvent
}

func (a *AuditSpy) Log(_ context.Context, actor, action string, properties map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.Events = append(a.Events, AuditEvent{Actor: actor, Action: action, Properties: properties})
}

// GatewayCall captures one InitiateTransfer invocation.
type GatewayCall struct {
	Amount      int64
	Destination string
}

// GatewayStub accepts or rejects payouts with a canned reference or error.
type GatewayStub struct {
	mu    sync.Mutex
	Ref   string
	Err   error
	Calls []GatewayCall
}

func (g *GatewayStub) InitiateTransfer(_ context.Context, amount int64, destination string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Calls = append(g.Calls, GatewayCall{Amount: amount, Destination: destination})
	if g.Err != nil {
		return "", g.Err
	}
	return g.Ref, nil
}
