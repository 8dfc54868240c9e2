package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/Additional-Code/salesboard/internal/dataset"
	"github.com/Additional-Code/salesboard/internal/entity"
	"github.com/Additional-Code/salesboard/pkg/errorbank"
)

type staticSource struct{}

func (staticSource) Name() string { return "static" }

func (staticSource) Fingerprint(context.Context) (string, error) { return "v1", nil }

func (staticSource) Fetch(context.Context) ([]entity.Order, error) {
	return []entity.Order{{OrderID: "1"}}, nil
}

func TestDatasetHealthFollowsLoader(t *testing.T) {
	ctx := context.Background()
	loader := dataset.NewLoader(staticSource{}, 0, zap.NewNop())
	hs := NewHealth(NewServer(zap.NewNop()), loader)

	resp, err := hs.Check(ctx, &healthpb.HealthCheckRequest{Service: DatasetService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	_, err = loader.Load(ctx)
	require.NoError(t, err)

	resp, err = hs.Check(ctx, &healthpb.HealthCheckRequest{Service: DatasetService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestToStatus(t *testing.T) {
	st, _ := status.FromError(toStatus(errorbank.BadRequest("bad level")))
	assert.Equal(t, codes.InvalidArgument, st.Code())
	assert.Equal(t, "bad level", st.Message())

	st, _ = status.FromError(toStatus(errors.New("boom")))
	assert.Equal(t, codes.Internal, st.Code())

	original := status.Error(codes.NotFound, "gone")
	assert.Equal(t, original, toStatus(original))
}
