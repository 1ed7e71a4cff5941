package testutil

import (
	"context"
	"time"

	"vaultkeeper/pkg/requestcontext"
)

// FixedTimeContext returns a context whose request-scoped clock is pinned to
// the given instant, so time-dependent services behave deterministically.
func FixedTimeContext(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

// AuthenticatedContext returns a context carrying an authenticated account id,
// bypassing the HTTP auth middleware for service-level tests.
func AuthenticatedContext(accountID string) context.Context {
	return requestcontext.WithAccountID(context.Background(), accountID)
}
