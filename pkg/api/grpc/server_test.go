package grpcapi

import (
	"context"
	"io"
	"net"
	"testing"

	"github.com/charmbracelet/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/lemonberrylabs/unitcalc/pkg/stdlib"
	"github.com/lemonberrylabs/unitcalc/pkg/store"
)

func startTestServer(t *testing.T) (string, func()) {
	t.Helper()
	logger := log.New(io.Discard)
	s, err := store.New(stdlib.NewRegistry(), store.Options{Logger: logger})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	srv := New(s, logger)

	lis, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go srv.ServeListener(lis)

	return lis.Addr().String(), func() {
		srv.Stop()
	}
}

func dial(t *testing.T, addr string) *Client {
	t.Helper()
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewClient(conn)
}

func TestEvaluate(t *testing.T) {
	addr, cleanup := startTestServer(t)
	defer cleanup()
	client := dial(t, addr)
	ctx := context.Background()

	resp, err := client.Evaluate(ctx, "1 km + 1 m")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	fields := resp.GetFields()
	if fields["result"].GetStringValue() != "1001 m" {
		t.Errorf("result = %v", fields["result"])
	}
	if fields["canonical"].GetStringValue() != "(1 km + 1 m)" {
		t.Errorf("canonical = %v", fields["canonical"])
	}
	if fields["value"].GetNumberValue() != 1001 {
		t.Errorf("value = %v", fields["value"])
	}
}

func TestConvert(t *testing.T) {
	addr, cleanup := startTestServer(t)
	defer cleanup()
	client := dial(t, addr)

	resp, err := client.Convert(context.Background(), 3, "ft", "in")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if got := resp.GetFields()["value"].GetNumberValue(); got != 36 {
		t.Errorf("3 ft = %v in, want 36", got)
	}
}

func TestErrorCodes(t *testing.T) {
	addr, cleanup := startTestServer(t)
	defer cleanup()
	client := dial(t, addr)
	ctx := context.Background()

	tests := []struct {
		name   string
		method string
		req    map[string]any
		want   codes.Code
	}{
		{"missing expression", "Evaluate", map[string]any{}, codes.InvalidArgument},
		{"unit error", "Evaluate", map[string]any{"expression": "1 m + 1 s"}, codes.InvalidArgument},
		{"incompatible conversion", "Convert", map[string]any{"value": 1.0, "from": "m", "to": "s"}, codes.InvalidArgument},
		{"unknown unit", "GetUnit", map[string]any{"symbol": "nosuch"}, codes.NotFound},
		{"unknown prefix", "GetPrefix", map[string]any{"symbol": "nosuch"}, codes.NotFound},
		{"duplicate unit", "AddUnit", map[string]any{"symbol": "m"}, codes.AlreadyExists},
		{"duplicate prefix", "AddPrefix", map[string]any{"symbol": "k", "base": 10.0, "exponent": 3.0}, codes.AlreadyExists},
		{"dangling unit", "AddUnit", map[string]any{"symbol": "bad", "definition": "nosuch"}, codes.FailedPrecondition},
		{"delete missing unit", "DeleteUnit", map[string]any{"symbol": "nosuch"}, codes.NotFound},
		{"delete missing prefix", "DeletePrefix", map[string]any{"symbol": "nosuch"}, codes.NotFound},
		{"unknown method", "Explode", map[string]any{}, codes.Unimplemented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Call(ctx, tt.method, tt.req)
			if got := status.Code(err); got != tt.want {
				t.Errorf("%s: code = %s, want %s (err: %v)", tt.method, got, tt.want, err)
			}
		})
	}
}

func TestUnitAndPrefixLifecycle(t *testing.T) {
	addr, cleanup := startTestServer(t)
	defer cleanup()
	client := dial(t, addr)
	ctx := context.Background()

	resp, err := client.Call(ctx, "AddUnit", map[string]any{"symbol": "furlong", "scale": 220.0, "definition": "yd"})
	if err != nil {
		t.Fatalf("AddUnit: %v", err)
	}
	if got := resp.GetFields()["definition"].GetStringValue(); got != "1 furlong = 220 yd" {
		t.Errorf("definition = %q", got)
	}

	resp, err = client.Call(ctx, "GetUnit", map[string]any{"symbol": "yd"})
	if err != nil {
		t.Fatalf("GetUnit: %v", err)
	}
	deps := resp.GetFields()["dependents"].GetListValue().GetValues()
	if len(deps) != 1 || deps[0].GetStringValue() != "furlong" {
		t.Errorf("dependents = %v", deps)
	}

	if _, err := client.Call(ctx, "AddPrefix", map[string]any{"symbol": "R", "base": 10.0, "exponent": 5.0}); err != nil {
		t.Fatalf("AddPrefix: %v", err)
	}
	resp, err = client.Call(ctx, "GetPrefix", map[string]any{"symbol": "R"})
	if err != nil {
		t.Fatalf("GetPrefix: %v", err)
	}
	if got := resp.GetFields()["definition"].GetStringValue(); got != "R = (10)^(5) = 100000" {
		t.Errorf("prefix definition = %q", got)
	}

	resp, err = client.Call(ctx, "DeleteUnit", map[string]any{"symbol": "yd"})
	if err != nil {
		t.Fatalf("DeleteUnit: %v", err)
	}
	if removed := resp.GetFields()["removed"].GetListValue().GetValues(); len(removed) != 2 {
		t.Errorf("removed = %v", removed)
	}
	if _, err := client.Call(ctx, "DeletePrefix", map[string]any{"symbol": "R"}); err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}

	resp, err = client.Call(ctx, "ListUnits", map[string]any{})
	if err != nil {
		t.Fatalf("ListUnits: %v", err)
	}
	for _, v := range resp.GetFields()["units"].GetListValue().GetValues() {
		if v.GetStringValue() == "furlong" || v.GetStringValue() == "yd" {
			t.Errorf("%s should have been deleted", v.GetStringValue())
		}
	}

	resp, err = client.Call(ctx, "ListPrefixes", map[string]any{})
	if err != nil {
		t.Fatalf("ListPrefixes: %v", err)
	}
	if len(resp.GetFields()["prefixes"].GetListValue().GetValues()) == 0 {
		t.Error("expected standard prefixes")
	}
}
