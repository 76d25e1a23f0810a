package rpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/adaptive-timing/internal/offsets"
	"github.com/danielpatrickdp/adaptive-timing/internal/orchestrator"
	"github.com/danielpatrickdp/adaptive-timing/internal/state"
)

// #region client-struct
// Client calls a remote TimingService.
type Client struct {
	conn  *grpc.ClientConn
	space offsets.Space
}

// #endregion client-struct

// #region constructor
// NewClient connects to a timingd server.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, space: offsets.Default()}, nil
}

// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// #endregion constructor

// #region calls
// GetPolicy fetches the item's policy.
func (c *Client) GetPolicy(ctx context.Context, itemID string) (state.Policy, error) {
	out, err := c.call(ctx, methodGetPolicy, ItemRequest{ItemID: itemID})
	if err != nil {
		return state.Policy{}, err
	}
	data, err := out.MarshalJSON()
	if err != nil {
		return state.Policy{}, fmt.Errorf("decode policy: %w", err)
	}
	return state.Decode(data, c.space)
}

// DecideToday asks for today's suggestion.
func (c *Client) DecideToday(ctx context.Context, itemID, nominal string) (state.Decision, error) {
	out, err := c.call(ctx, methodDecideToday, ItemRequest{ItemID: itemID, Nominal: nominal})
	if err != nil {
		return state.Decision{}, err
	}
	var resp DecisionResponse
	if err := fromStruct(out, &resp); err != nil {
		return state.Decision{}, err
	}
	return state.Decision(resp), nil
}

// EvaluateAndLearn reports a confirmation taken at.
func (c *Client) EvaluateAndLearn(ctx context.Context, itemID, nominal string, at time.Time) (orchestrator.Outcome, error) {
	req := ItemRequest{ItemID: itemID, Nominal: nominal}
	if !at.IsZero() {
		req.ConfirmedAt = at.Format(time.RFC3339)
	}
	out, err := c.call(ctx, methodEvaluateAndLearn, req)
	if err != nil {
		return orchestrator.Outcome{}, err
	}
	var resp OutcomeResponse
	if err := fromStruct(out, &resp); err != nil {
		return orchestrator.Outcome{}, err
	}
	return orchestrator.Outcome(resp), nil
}

// Reset clears the item's learned state.
func (c *Client) Reset(ctx context.Context, itemID string) error {
	_, err := c.call(ctx, methodReset, ItemRequest{ItemID: itemID})
	return err
}

func (c *Client) call(ctx context.Context, method string, req ItemRequest) (*structpb.Struct, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}

// #endregion calls
