// Package grpcapi implements the unitcalc.v1.Units gRPC service. Requests and
// responses are google.protobuf.Struct messages, so any gRPC client can call
// the service without generated stubs.
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/unitcalc/pkg/store"
	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "unitcalc.v1.Units"

// UnitsServer is the server API for the unitcalc.v1.Units service.
type UnitsServer interface {
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Convert(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListUnits(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetUnit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddUnit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteUnit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPrefixes(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPrefix(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddPrefix(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeletePrefix(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(UnitsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler adapts a UnitsServer method to a grpc.MethodHandler.
func unaryHandler(name string, call unaryMethod) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(UnitsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(UnitsServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var methods = map[string]unaryMethod{
	"Evaluate":     UnitsServer.Evaluate,
	"Convert":      UnitsServer.Convert,
	"ListUnits":    UnitsServer.ListUnits,
	"GetUnit":      UnitsServer.GetUnit,
	"AddUnit":      UnitsServer.AddUnit,
	"DeleteUnit":   UnitsServer.DeleteUnit,
	"ListPrefixes": UnitsServer.ListPrefixes,
	"GetPrefix":    UnitsServer.GetPrefix,
	"AddPrefix":    UnitsServer.AddPrefix,
	"DeletePrefix": UnitsServer.DeletePrefix,
}

// ServiceDesc describes the unitcalc.v1.Units service.
var ServiceDesc = func() grpc.ServiceDesc {
	desc := grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*UnitsServer)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    "unitcalc/v1/units.proto",
	}
	for _, name := range slices.Sorted(maps.Keys(methods)) {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{MethodName: name, Handler: unaryHandler(name, methods[name])})
	}
	return desc
}()

// Server implements UnitsServer over a calculator session.
type Server struct {
	session *store.Session
	logger  *log.Logger
	grpc    *grpc.Server
}

// New creates a new gRPC server wrapping the given session.
func New(s *store.Session, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	srv := &Server{session: s, logger: logger}

	gs := grpc.NewServer(grpc.UnaryInterceptor(srv.logCalls))
	gs.RegisterService(&ServiceDesc, srv)
	srv.grpc = gs

	return srv
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

// Stop stops the gRPC server immediately.
func (s *Server) Stop() {
	s.grpc.Stop()
}

func (s *Server) logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Warn("rpc failed", "method", info.FullMethod, "code", status.Code(err), "err", err)
	} else {
		s.logger.Debug("rpc", "method", info.FullMethod, "elapsed", time.Since(start))
	}
	return resp, err
}

// --- Calculator ---

func (s *Server) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input, err := requireString(req, "expression")
	if err != nil {
		return nil, err
	}
	res, err := s.session.Evaluate(input)
	if err != nil {
		return nil, toStatus(err)
	}
	out := quantityFields(res.Quantity)
	out["input"] = input
	out["canonical"] = res.Canonical
	return newStruct(out)
}

func (s *Server) Convert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	value := 1.0
	if v, ok := req.GetFields()["value"]; ok {
		value = v.GetNumberValue()
	}
	q, err := s.session.Convert(value, stringField(req, "from"), stringField(req, "to"))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(quantityFields(q))
}

// --- Units ---

func (s *Server) ListUnits(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return newStruct(map[string]any{"units": stringList(s.session.Units())})
}

func (s *Server) GetUnit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sym, err := requireString(req, "symbol")
	if err != nil {
		return nil, err
	}
	def, err := s.session.UnitDefinition(sym)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{
		"symbol":     sym,
		"definition": def,
		"dependents": stringList(s.session.Dependents(sym)),
	})
}

func (s *Server) AddUnit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sym, err := requireString(req, "symbol")
	if err != nil {
		return nil, err
	}
	scale := 1.0
	if v, ok := req.GetFields()["scale"]; ok {
		scale = v.GetNumberValue()
	}
	if err := s.session.AddUnit(sym, scale, stringField(req, "definition")); err != nil {
		return nil, toStatus(err)
	}
	def, err := s.session.UnitDefinition(sym)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"symbol": sym, "definition": def})
}

func (s *Server) DeleteUnit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sym, err := requireString(req, "symbol")
	if err != nil {
		return nil, err
	}
	removed, err := s.session.DelUnit(sym)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"removed": stringList(removed)})
}

// --- Prefixes ---

func (s *Server) ListPrefixes(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return newStruct(map[string]any{"prefixes": stringList(s.session.Prefixes())})
}

func (s *Server) GetPrefix(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sym, err := requireString(req, "symbol")
	if err != nil {
		return nil, err
	}
	def, err := s.session.PrefixDefinition(sym)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"symbol": sym, "definition": def})
}

func (s *Server) AddPrefix(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sym, err := requireString(req, "symbol")
	if err != nil {
		return nil, err
	}
	fields := req.GetFields()
	if err := s.session.AddPrefix(sym, fields["base"].GetNumberValue(), fields["exponent"].GetNumberValue()); err != nil {
		return nil, toStatus(err)
	}
	def, err := s.session.PrefixDefinition(sym)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"symbol": sym, "definition": def})
}

func (s *Server) DeletePrefix(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sym, err := requireString(req, "symbol")
	if err != nil {
		return nil, err
	}
	removed, err := s.session.DelPrefix(sym)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"removed": stringList(removed)})
}

// --- Helpers ---

// toStatus maps a session error to a gRPC status error.
func toStatus(err error) error {
	code := codes.Internal
	switch {
	case store.IsNotFound(err):
		code = codes.NotFound
	case store.IsConflict(err):
		code = codes.AlreadyExists
	case errors.Is(err, types.ErrRegistry):
		code = codes.FailedPrecondition
	case types.KindOf(err) != "":
		code = codes.InvalidArgument
	}
	return status.Error(code, err.Error())
}

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func requireString(req *structpb.Struct, key string) (string, error) {
	v := stringField(req, key)
	if v == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	return v, nil
}

func quantityFields(q types.Quantity) map[string]any {
	return map[string]any{
		"value":  q.Value,
		"unit":   q.Unit.String(),
		"result": q.String(),
	}
}

func stringList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return st, nil
}
