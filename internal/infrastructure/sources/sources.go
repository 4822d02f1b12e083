// Package sources contains the event source adapters behind the
// notification aggregator. Each adapter owns its viewer scoping: admins
// get the broad recent view, clients only see records tied to their own
// identity.
package sources

import (
	"context"
	"errors"
	"time"

	"portal-server/services/portal-api/internal/infrastructure/docstore"
	"portal-server/services/portal-api/internal/utils/platformerrors"
)

// adminFetchLimit caps the broad admin view per source. Clients are
// scoped tightly enough that no cap is needed.
const adminFetchLimit = 50

func wrapStoreError(ctx context.Context, err error, message string) error {
	errType := platformerrors.ErrorTypeDatabaseError
	if errors.Is(err, docstore.ErrPreconditionFailed) {
		errType = platformerrors.ErrorTypePreconditionFailed
	}
	return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, errType, message, err)
}

func fieldString(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func fieldTime(fields map[string]any, key string, fallback time.Time) time.Time {
	switch v := fields[key].(type) {
	case time.Time:
		return v
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return parsed
		}
	}
	return fallback
}
