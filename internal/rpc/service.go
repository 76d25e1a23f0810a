// Package rpc exposes the engine over gRPC as timing.v1.TimingService.
// Requests and responses travel as google.protobuf.Struct so the service
// needs no generated code; the JSON shapes are the types in this package.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region service-desc

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "timing.v1.TimingService"

const (
	methodGetPolicy        = "GetPolicy"
	methodDecideToday      = "DecideToday"
	methodEvaluateAndLearn = "EvaluateAndLearn"
	methodReset            = "Reset"
)

// TimingServer is the server side of TimingService.
type TimingServer interface {
	GetPolicy(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DecideToday(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EvaluateAndLearn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Reset(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes TimingService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TimingServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(methodGetPolicy, TimingServer.GetPolicy),
		unary(methodDecideToday, TimingServer.DecideToday),
		unary(methodEvaluateAndLearn, TimingServer.EvaluateAndLearn),
		unary(methodReset, TimingServer.Reset),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "timing/v1/timing.proto",
}

// Register attaches srv to s.
func Register(s grpc.ServiceRegistrar, srv TimingServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unary(method string, call func(TimingServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TimingServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(TimingServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// #endregion service-desc

// #region messages

// ItemRequest identifies an item and, for confirmations, when it was taken.
type ItemRequest struct {
	ItemID      string `json:"item_id"`
	Name        string `json:"name,omitempty"`
	Nominal     string `json:"nominal,omitempty"`
	ConfirmedAt string `json:"confirmed_at,omitempty"` // RFC3339; empty means now
}

// DecisionResponse is today's decision.
type DecisionResponse struct {
	DecisionDate  string `json:"decision_date"`
	ChosenIndex   int    `json:"chosen_index"`
	Offset        int    `json:"offset"`
	SuggestedTime string `json:"suggested_time"`
}

// OutcomeResponse is the result of a confirmation.
type OutcomeResponse struct {
	Reward        int    `json:"reward"`
	SuggestedTime string `json:"suggested_time"`
	Offset        int    `json:"offset"`
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("encode struct: %w", err)
	}
	return out, nil
}

func fromStruct(s *structpb.Struct, v any) error {
	data, err := s.MarshalJSON()
	if err != nil {
		return fmt.Errorf("decode struct: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}
	return nil
}

// #endregion messages

// #region interceptor

// LoggingInterceptor logs every unary call with its duration and status code.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("code", status.Code(err).String()),
		}
		if err != nil {
			logger.Warn("rpc failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("rpc", fields...)
		}
		return resp, err
	}
}

// #endregion interceptor
