package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the unitcalc.v1.Units service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient returns a client over cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with req.
func (c *Client) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Evaluate evaluates an expression.
func (c *Client) Evaluate(ctx context.Context, expression string) (*structpb.Struct, error) {
	return c.Call(ctx, "Evaluate", map[string]any{"expression": expression})
}

// Convert converts value from one unit to another.
func (c *Client) Convert(ctx context.Context, value float64, from, to string) (*structpb.Struct, error) {
	return c.Call(ctx, "Convert", map[string]any{"value": value, "from": from, "to": to})
}
