package testutil

import (
	"context"

	"github.com/condohub/billing/internal/types"
)

// TestOperatorID is the actor recorded on rows written by service tests
const TestOperatorID = "operator_test"

func SetupContext() context.Context {
	ctx := types.SetUserID(context.Background(), TestOperatorID)
	return types.SetRequestID(ctx, types.GenerateRequestID())
}
