package cli

import (
	"context"
	"testing"

	"github.com/arqlane/suggestd/pkg/config"
	"github.com/arqlane/suggestd/pkg/engine"
	"github.com/arqlane/suggestd/pkg/logstore"
)

func newTestShell(t *testing.T) (*AdminShell, *engine.Engine) {
	t.Helper()
	eng := engine.New(config.DefaultConfig(), logstore.NewMemory(), nil)
	return NewAdminShell(eng), eng
}

func TestDispatchFilterAddRemove(t *testing.T) {
	shell, eng := newTestShell(t)
	ctx := context.Background()
	_ = eng.LogCompletion(ctx, "apple", "", "")

	shell.dispatch("filter_add apple spam")
	results, _, err := eng.Suggest(ctx, "app", "", 5, false)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected apple blocked, got %v", results)
	}

	_ = eng.Flush(ctx)
	shell.dispatch("filter_remove apple")
	results, _, err = eng.Suggest(ctx, "app", "", 5, false)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected apple restored, got %v", results)
	}
}

func TestDispatchStatusDoesNotPanicOnUnknownCommand(t *testing.T) {
	shell, _ := newTestShell(t)
	shell.dispatch("not_a_real_command")
	shell.dispatch("status")
}

func TestDispatchUpsertPhrase(t *testing.T) {
	shell, eng := newTestShell(t)
	shell.dispatch("upsert_phrase apple 42")

	results, _, err := eng.Suggest(context.Background(), "app", "", 5, false)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(results) != 1 || results[0].Phrase != "apple" {
		t.Fatalf("expected apple indexed via upsert, got %v", results)
	}
}
