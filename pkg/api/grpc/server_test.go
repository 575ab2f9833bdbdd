package grpcapi

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/eggexpr/pkg/engine"
	"github.com/lemonberrylabs/eggexpr/pkg/store"
)

func startTestServer(t *testing.T) (*ExpressionsClient, store.Store) {
	t.Helper()
	eng, err := engine.New(engine.Options{})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	st := store.NewMemory()
	srv := New(eng, st, nil)

	lis := bufconn.Listen(1 << 20)
	go srv.ServeListener(lis)
	t.Cleanup(srv.grpc.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return NewExpressionsClient(conn), st
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return s
}

func TestParse(t *testing.T) {
	client, _ := startTestServer(t)
	ctx := context.Background()

	resp, err := client.Parse(ctx, mustStruct(t, map[string]any{"expression": "2 * 3"}))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tree := resp.GetFields()["tree"].GetStructValue().GetFields()
	if tree["type"].GetStringValue() != "Literal" || tree["value"].GetNumberValue() != 6 {
		t.Errorf("tree = %v", tree)
	}

	resp, err = client.Parse(ctx, mustStruct(t, map[string]any{"expression": "2 * x", "fold": false}))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tree = resp.GetFields()["tree"].GetStructValue().GetFields()
	if tree["op"].GetStringValue() != "*" {
		t.Errorf("tree = %v", tree)
	}
	if resp.GetFields()["folded"].GetBoolValue() {
		t.Error("folded = true, want false")
	}
}

func TestEvaluate(t *testing.T) {
	client, _ := startTestServer(t)
	ctx := context.Background()

	resp, err := client.Evaluate(ctx, mustStruct(t, map[string]any{
		"expression": "items[1].name + '!'",
		"variables": map[string]any{
			"items": []any{
				map[string]any{"name": "a"},
				map[string]any{"name": "b"},
			},
		},
	}))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got := resp.GetFields()["value"].GetStringValue(); got != "b!" {
		t.Errorf("value = %q, want b!", got)
	}
	if got := resp.GetFields()["type"].GetStringValue(); got != "string" {
		t.Errorf("type = %q", got)
	}
}

func TestEvaluateScope(t *testing.T) {
	client, st := startTestServer(t)
	ctx := context.Background()

	for range 3 {
		_, err := client.Evaluate(ctx, mustStruct(t, map[string]any{
			"expression": "hits = default(hits, 0) + 1",
			"scope":      "stats",
		}))
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
	}

	sc, found, err := st.Get(ctx, "stats")
	if err != nil || !found {
		t.Fatalf("Get: %v %v", found, err)
	}
	if got := sc.Variables.String(); got != "{hits: 3}" {
		t.Errorf("stored = %s", got)
	}
}

func TestExpand(t *testing.T) {
	client, _ := startTestServer(t)

	resp, err := client.Expand(context.Background(), mustStruct(t, map[string]any{
		"template":  "${a} + ${b} = ${a + b}",
		"variables": map[string]any{"a": 1, "b": 2},
	}))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got := resp.GetFields()["text"].GetStringValue(); got != "1 + 2 = 3" {
		t.Errorf("text = %q", got)
	}
}

func TestErrorCodes(t *testing.T) {
	client, _ := startTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want codes.Code
	}{
		{"syntax", func() error {
			_, err := client.Parse(ctx, mustStruct(t, map[string]any{"expression": "1 + f(1) {"}))
			return err
		}, codes.InvalidArgument},
		{"unknown function", func() error {
			_, err := client.Evaluate(ctx, mustStruct(t, map[string]any{"expression": "missing()"}))
			return err
		}, codes.NotFound},
		{"operator type", func() error {
			_, err := client.Evaluate(ctx, mustStruct(t, map[string]any{"expression": "1 + 'a'"}))
			return err
		}, codes.FailedPrecondition},
		{"bad variables", func() error {
			_, err := client.Evaluate(ctx, mustStruct(t, map[string]any{"expression": "1", "variables": "x"}))
			return err
		}, codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if got := status.Code(err); got != tt.want {
				t.Errorf("code = %v, want %v (err %v)", got, tt.want, err)
			}
		})
	}
}
