package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/adaptive-timing/internal/clock"
	"github.com/danielpatrickdp/adaptive-timing/internal/offsets"
	"github.com/danielpatrickdp/adaptive-timing/internal/orchestrator"
	"github.com/danielpatrickdp/adaptive-timing/internal/state"
)

func startServer(t *testing.T, now time.Time) (*Client, *clock.Manual) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	clk := clock.NewManual(now)
	store := state.NewStore(state.NewMemoryRepository(), offsets.Default(), nil)
	engine := orchestrator.NewEngine(store, orchestrator.DefaultEngineConfig(), orchestrator.Deps{Clock: clk})

	srv := grpc.NewServer()
	Register(srv, NewServer(engine))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	client, err := NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, clk
}

func TestDecideTodayOverGRPC(t *testing.T) {
	client, _ := startServer(t, time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC))

	d, err := client.DecideToday(context.Background(), "vit-d", "08:00 AM")
	require.NoError(t, err)

	assert.Equal(t, "2026-10-19", d.DecisionDate)
	assert.Equal(t, 0, d.Offset)
	assert.Equal(t, "08:00 AM", d.SuggestedTime)
	assert.Equal(t, offsets.Default().BaselineIndex(), d.ChosenIndex)
}

func TestEvaluateAndLearnOverGRPC(t *testing.T) {
	client, clk := startServer(t, time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := client.DecideToday(ctx, "vit-d", "08:00 AM")
	require.NoError(t, err)

	at := time.Date(2026, 10, 19, 8, 10, 0, 0, time.UTC)
	clk.Set(at)
	out, err := client.EvaluateAndLearn(ctx, "vit-d", "08:00 AM", at)
	require.NoError(t, err)
	assert.Equal(t, orchestrator.Outcome{Reward: 1, SuggestedTime: "08:00 AM", Offset: 0}, out)

	p, err := client.GetPolicy(ctx, "vit-d")
	require.NoError(t, err)
	space := offsets.Default()
	assert.Equal(t, 2, p.N[space.IndexOf(10)])
	assert.InDelta(t, 0.5+0.2*(1-0.5), p.Q[space.IndexOf(10)], 1e-9)
	require.NotNil(t, p.Last)
	assert.Equal(t, "2026-10-19", p.Last.DecisionDate)
}

func TestResetOverGRPC(t *testing.T) {
	client, _ := startServer(t, time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := client.DecideToday(ctx, "vit-d", "08:00 AM")
	require.NoError(t, err)
	require.NoError(t, client.Reset(ctx, "vit-d"))

	p, err := client.GetPolicy(ctx, "vit-d")
	require.NoError(t, err)
	assert.Nil(t, p.Last)
}

func TestMissingItemIsInvalidArgument(t *testing.T) {
	client, _ := startServer(t, time.Now())

	_, err := client.DecideToday(context.Background(), "", "08:00 AM")
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestBadConfirmedAtIsInvalidArgument(t *testing.T) {
	client, _ := startServer(t, time.Now())
	in, err := structpb.NewStruct(map[string]any{"item_id": "x", "confirmed_at": "yesterday"})
	require.NoError(t, err)

	err = client.conn.Invoke(context.Background(), fullMethod(methodEvaluateAndLearn), in, &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestStructRoundTrip(t *testing.T) {
	s, err := toStruct(ItemRequest{ItemID: "a", Nominal: "08:00 AM"})
	require.NoError(t, err)
	assert.Equal(t, "a", s.Fields["item_id"].GetStringValue())
	_, hasConfirmed := s.Fields["confirmed_at"]
	assert.False(t, hasConfirmed)

	var back ItemRequest
	require.NoError(t, fromStruct(s, &back))
	assert.Equal(t, "08:00 AM", back.Nominal)
}
