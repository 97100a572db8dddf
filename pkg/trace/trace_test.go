package trace

import (
	"context"
	"testing"
)

func TestNew_Unique(t *testing.T) {
	if New() == New() {
		t.Fatal("trace ids collided")
	}
}

func TestContextRoundtrip(t *testing.T) {
	ctx := WithTraceID(context.Background(), "abc")
	id, ok := FromContext(ctx)
	if !ok || id != "abc" {
		t.Fatalf("id=%q ok=%v", id, ok)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("empty context reported a trace id")
	}
}
