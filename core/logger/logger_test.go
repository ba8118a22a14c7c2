package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseDebugSample(t *testing.T) {
	cases := map[string][2]int{
		"":      {1, 50},
		"1/10":  {1, 10},
		"0/0":   {0, 0},
		"-1/5":  {1, 50},
		"25":    {1, 25},
		"bogus": {0, 0},
	}
	for raw, want := range cases {
		num, den := parseDebugSample(raw)
		if num != want[0] || den != want[1] {
			t.Errorf("parseDebugSample(%q) = %d/%d, want %d/%d", raw, num, den, want[0], want[1])
		}
	}
}

func TestParseFormat(t *testing.T) {
	if got := parseFormat("", ""); got != formatJSON {
		t.Fatalf("default format = %q", got)
	}
	if got := parseFormat("", "Dev"); got != formatKV {
		t.Fatalf("dev profile format = %q", got)
	}
	if got := parseFormat("json", "debug"); got != formatJSON {
		t.Fatalf("explicit format must win over profile, got %q", got)
	}
}

func TestParseKeyOrder(t *testing.T) {
	got := parseKeyOrder(" ts, event ,,level")
	want := []string{"ts", "event", "level"}
	if len(got) != len(want) {
		t.Fatalf("order = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if def := parseKeyOrder("default"); len(def) != len(defaultKeyOrder) {
		t.Fatalf("default order length = %d", len(def))
	}
}

func TestContextValues(t *testing.T) {
	ctx := WithUpdateMeta(context.Background(), 7, 42, -100)
	ctx = WithExecution(ctx, "ex-1", "")
	ctx = WithHandler(ctx, "deploy.name")

	if UpdateIDFrom(ctx) != 7 || UserIDFrom(ctx) != 42 || ChatIDFrom(ctx) != -100 {
		t.Fatalf("update meta not round-tripped")
	}
	if ExecutionIDFrom(ctx) != "ex-1" || MethodIDFrom(ctx) != "" {
		t.Fatalf("execution ids = %q %q", ExecutionIDFrom(ctx), MethodIDFrom(ctx))
	}
	if HandlerFrom(ctx) != "deploy.name" {
		t.Fatalf("handler = %q", HandlerFrom(ctx))
	}
	if RIDFrom(ctx) != "" {
		t.Fatalf("unexpected rid")
	}
}

func TestFromContextFallsBackToBase(t *testing.T) {
	if FromContext(context.Background()) != L {
		t.Fatalf("expected base logger")
	}
	scoped := slog.New(slog.DiscardHandler)
	if FromContext(WithLogger(context.Background(), scoped)) != scoped {
		t.Fatalf("expected scoped logger")
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("a\x00b\u200bc\td", 10); got != "abc\td" {
		t.Fatalf("sanitize = %q", got)
	}
	if got := SanitizeLimit("héllo", 2); got != "hé" {
		t.Fatalf("limit = %q", got)
	}
	if got := CompactRID("35:36:1"); got != "z.10.1" {
		t.Fatalf("compact = %q", got)
	}
	if got := CompactRID("4f1c-uuid"); got != "4f1c-uuid" {
		t.Fatalf("compact passthrough = %q", got)
	}
}
