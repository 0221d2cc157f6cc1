package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	grpcapi "github.com/lemonberrylabs/unitcalc/pkg/api/grpc"
)

// newGRPCClient connects to the gRPC endpoint, skipping when none is
// configured.
func newGRPCClient(t *testing.T) *grpcapi.Client {
	t.Helper()
	if grpcEndpoint == "" {
		t.Skip("UNITCALC_GRPC_ENDPOINT not set")
	}
	cc, err := grpc.NewClient(grpcEndpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { cc.Close() })
	return grpcapi.NewClient(cc)
}

func callContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestGRPC_Evaluate verifies evaluation over gRPC.
func TestGRPC_Evaluate(t *testing.T) {
	client := newGRPCClient(t)

	resp, err := client.Evaluate(callContext(t), "10 kg * 2 m/s^2 : N")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got := resp.GetFields()["result"].GetStringValue(); got != "20 N" {
		t.Errorf("result = %q, want 20 N", got)
	}
}

// TestGRPC_Convert verifies conversion over gRPC.
func TestGRPC_Convert(t *testing.T) {
	client := newGRPCClient(t)

	resp, err := client.Convert(callContext(t), 2, "h", "min")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if got := resp.GetFields()["value"].GetNumberValue(); got != 120 {
		t.Errorf("value = %v, want 120", got)
	}
}

// TestGRPC_ErrorCodes verifies error kinds map to gRPC status codes.
func TestGRPC_ErrorCodes(t *testing.T) {
	client := newGRPCClient(t)

	tests := []struct {
		method string
		req    map[string]any
		code   codes.Code
	}{
		{"Evaluate", map[string]any{"expression": "1 m + 1 s"}, codes.InvalidArgument},
		{"Evaluate", map[string]any{}, codes.InvalidArgument},
		{"GetUnit", map[string]any{"symbol": "nosuch"}, codes.NotFound},
		{"AddUnit", map[string]any{"symbol": "m", "scale": 1.0}, codes.AlreadyExists},
		{"AddUnit", map[string]any{"symbol": uniqueSymbol("dangling"), "scale": 1.0, "definition": "nosuch"}, codes.FailedPrecondition},
		{"DeletePrefix", map[string]any{"symbol": "Q"}, codes.NotFound},
		{"DeleteUnit", map[string]any{"symbol": "km"}, codes.FailedPrecondition},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			_, err := client.Call(callContext(t), tt.method, tt.req)
			if got := status.Code(err); got != tt.code {
				t.Errorf("%s(%v): code = %v, want %v (%v)", tt.method, tt.req, got, tt.code, err)
			}
		})
	}
}

// TestGRPC_AddViaGRPC_ReadViaREST verifies both transports share one
// registry.
func TestGRPC_AddViaGRPC_ReadViaREST(t *testing.T) {
	client := newGRPCClient(t)
	sym := uniqueSymbol("chain")

	if _, err := client.Call(callContext(t), "AddUnit", map[string]any{
		"symbol": sym, "scale": 22.0, "definition": "yd",
	}); err != nil {
		t.Fatalf("AddUnit: %v", err)
	}

	code, result := doJSON(t, http.MethodGet, "units/"+sym, nil)
	assertStatus(t, code, http.StatusOK, result)
	if want := "1 " + sym + " = 22 yd"; result["definition"] != want {
		t.Errorf("definition = %v, want %s", result["definition"], want)
	}

	code, result = evaluate(t, "1 "+sym+" : m")
	assertStatus(t, code, http.StatusOK, result)
	assertApprox(t, result["value"], 20.1168)

	code, result = doJSON(t, http.MethodDelete, "units/"+sym, nil)
	assertStatus(t, code, http.StatusOK, result)

	if _, err := client.Call(callContext(t), "GetUnit", map[string]any{"symbol": sym}); status.Code(err) != codes.NotFound {
		t.Errorf("GetUnit after REST delete: %v", err)
	}
}
