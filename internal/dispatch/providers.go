package dispatch

import (
	"context"
	"log/slog"
)

// LogProviders implements every capability port by logging the action it
// would take. It stands in for the real mail, registrar, and custody
// integrations until those land.
type LogProviders struct {
	Logger *slog.Logger
}

func NewLogProviders(logger *slog.Logger) *LogProviders {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProviders{Logger: logger}
}

// NewLogRouter wires a Router with log-only providers on every port.
func NewLogRouter(logger *slog.Logger) *Router {
	p := NewLogProviders(logger)
	return &Router{Messages: p, Accounts: p, Assets: p, Donations: p, Notices: p}
}

func (p *LogProviders) SendMessage(ctx context.Context, recipient, subject, body string) error {
	p.Logger.InfoContext(ctx, "posthumous message sent",
		"recipient", recipient, "subject", subject, "body_bytes", len(body))
	return nil
}

func (p *LogProviders) CloseAccount(ctx context.Context, accountRef string) error {
	p.Logger.InfoContext(ctx, "account closure requested", "account_ref", accountRef)
	return nil
}

func (p *LogProviders) TransferAsset(ctx context.Context, assetRef, recipient string) error {
	p.Logger.InfoContext(ctx, "asset transfer initiated",
		"asset_ref", assetRef, "recipient", recipient)
	return nil
}

func (p *LogProviders) Donate(ctx context.Context, charity, assetRef string) error {
	p.Logger.InfoContext(ctx, "donation initiated", "charity", charity, "asset_ref", assetRef)
	return nil
}

func (p *LogProviders) Notify(ctx context.Context, recipient, message string) error {
	p.Logger.InfoContext(ctx, "notification sent",
		"recipient", recipient, "message_bytes", len(message))
	return nil
}
