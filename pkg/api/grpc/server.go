// Package grpcapi implements the eggexpr.v1.Expressions gRPC service. Request
// and response messages are google.protobuf.Struct values with the same
// fields as the REST API.
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/eggexpr/pkg/engine"
	"github.com/lemonberrylabs/eggexpr/pkg/expr"
	"github.com/lemonberrylabs/eggexpr/pkg/store"
	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "eggexpr.v1.Expressions"

// ExpressionsServer is the server API for the Expressions service.
type ExpressionsServer interface {
	Parse(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Expand(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Server implements ExpressionsServer on top of an engine and a scope store.
type Server struct {
	engine *engine.Engine
	store  store.Store
	logger *slog.Logger
	grpc   *grpc.Server
}

// New creates a new gRPC server. A nil logger uses slog.Default().
func New(eng *engine.Engine, st store.Store, logger *slog.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		engine: eng,
		store:  st,
		logger: logger,
	}

	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(srv.recoverUnary)}, opts...)
	gs := grpc.NewServer(opts...)
	RegisterExpressionsServer(gs, srv)
	srv.grpc = gs

	return srv
}

// recoverUnary turns a handler panic into an Internal status.
func (s *Server) recoverUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in gRPC handler", "method", info.FullMethod, "panic", r)
			resp, err = nil, status.Errorf(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.ServeListener(lis)
}

// ServeListener serves gRPC requests on lis.
func (s *Server) ServeListener(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

// Parse handles {expression, fold?} and returns {tree, folded, marker?}.
func (s *Server) Parse(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	source := req.GetFields()["expression"].GetStringValue()
	fold := true
	if v, ok := req.GetFields()["fold"]; ok {
		fold = v.GetBoolValue()
	}

	var (
		tree *expr.Tree
		err  error
	)
	if fold {
		tree, err = s.engine.Parse(ctx, source)
		if err == nil {
			tree = s.engine.Fold(tree)
		}
	} else {
		tree, err = expr.Parse(source)
	}
	if err != nil {
		return nil, exprStatus(err)
	}

	resp := map[string]any{
		"tree":   expr.DescribeTree(tree).ToGo(),
		"folded": fold,
	}
	if m := tree.Marker(); m != nil {
		resp["marker"] = m.Delimiter
	}
	return newStruct(resp)
}

// Evaluate handles {expression, variables?, scope?} and returns
// {value, type, written?}.
func (s *Server) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	sess, err := s.openSession(ctx, fields)
	if err != nil {
		return nil, err
	}

	v, err := s.engine.Eval(ctx, fields["expression"].GetStringValue(), sess.Scope)
	if err != nil {
		return nil, exprStatus(err)
	}

	resp := map[string]any{
		"value": v.ToGo(),
		"type":  v.Type().String(),
	}
	if sess.Named() {
		written, err := sess.Commit(ctx)
		if err != nil {
			return nil, status.Error(codes.Internal, err.Error())
		}
		if written {
			s.logger.Debug("scope updated", "scope", fields["scope"].GetStringValue())
		}
		resp["written"] = written
	}
	return newStruct(resp)
}

// Expand handles {template, variables?, scope?} and returns {text, warnings}.
func (s *Server) Expand(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	sess, err := s.openSession(ctx, fields)
	if err != nil {
		return nil, err
	}

	text, warnings, err := s.engine.Expand(ctx, fields["template"].GetStringValue(), sess.Scope)
	if err != nil {
		return nil, exprStatus(err)
	}

	msgs := make([]any, len(warnings))
	for i, w := range warnings {
		msgs[i] = w.Error()
	}
	return newStruct(map[string]any{
		"text":     text,
		"warnings": msgs,
	})
}

func (s *Server) openSession(ctx context.Context, fields map[string]*structpb.Value) (*store.Session, error) {
	vars := types.Null
	if v, ok := fields["variables"]; ok {
		vars = types.FromGo(v.AsInterface())
	}
	sess, err := store.OpenSession(ctx, s.store, fields["scope"].GetStringValue(), vars)
	if err != nil {
		if errors.Is(err, store.ErrInvalidScope) {
			return nil, status.Error(codes.InvalidArgument, "variables must be an object")
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return sess, nil
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

// exprStatus maps an expression error onto a gRPC status by its tags.
func exprStatus(err error) error {
	var exprErr *types.ExprError
	if !errors.As(err, &exprErr) {
		return status.Error(codes.Internal, err.Error())
	}
	switch {
	case exprErr.HasTag(types.TagSyntaxError):
		return status.Error(codes.InvalidArgument, exprErr.Error())
	case exprErr.HasTag(types.TagUnknownFunction):
		return status.Error(codes.NotFound, exprErr.Error())
	}
	return status.Error(codes.FailedPrecondition, exprErr.Error())
}
