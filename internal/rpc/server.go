package rpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/adaptive-timing/internal/orchestrator"
	"github.com/danielpatrickdp/adaptive-timing/internal/reminder"
	"github.com/danielpatrickdp/adaptive-timing/internal/state"
)

// #region server

// Server adapts an Engine to TimingServer.
type Server struct {
	engine *orchestrator.Engine
}

// NewServer wraps engine.
func NewServer(engine *orchestrator.Engine) *Server {
	return &Server{engine: engine}
}

func (s *Server) GetPolicy(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeItem(in)
	if err != nil {
		return nil, err
	}
	p, err := s.engine.GetPolicy(ctx, req.ItemID)
	if err != nil {
		return nil, toStatus(err)
	}
	data, err := state.Encode(p)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *Server) DecideToday(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeItem(in)
	if err != nil {
		return nil, err
	}
	d, err := s.engine.DecideToday(ctx, req.item(), req.Nominal)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(DecisionResponse{
		DecisionDate:  d.DecisionDate,
		ChosenIndex:   d.ChosenIndex,
		Offset:        d.Offset,
		SuggestedTime: d.SuggestedTime,
	})
}

func (s *Server) EvaluateAndLearn(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeItem(in)
	if err != nil {
		return nil, err
	}
	at := time.Now()
	if req.ConfirmedAt != "" {
		at, err = time.Parse(time.RFC3339, req.ConfirmedAt)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "confirmed_at: %v", err)
		}
	}
	out, err := s.engine.EvaluateAndLearn(ctx, req.item(), at)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(OutcomeResponse(out))
}

func (s *Server) Reset(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeItem(in)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Reset(ctx, req.ItemID); err != nil {
		return nil, toStatus(err)
	}
	return &structpb.Struct{}, nil
}

// #endregion server

// #region helpers

func (r ItemRequest) item() reminder.Item {
	return reminder.Item{ID: r.ItemID, Name: r.Name, Time: r.Nominal}
}

func decodeItem(in *structpb.Struct) (ItemRequest, error) {
	var req ItemRequest
	if err := fromStruct(in, &req); err != nil {
		return req, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.ItemID == "" {
		req.ItemID = req.Name
	}
	if req.ItemID == "" {
		return req, status.Error(codes.InvalidArgument, orchestrator.ErrNoItemKey.Error())
	}
	return req, nil
}

func encode(v any) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrNoItemKey):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}

// #endregion helpers
