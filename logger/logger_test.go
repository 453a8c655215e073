package logger

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestSuppressUntilMP(t *testing.T) {
	lv := new(slog.LevelVar)
	lv.Set(slog.LevelInfo)
	debug := false
	h := NewHandler(io.Discard, &slog.HandlerOptions{Level: lv}, &debug)

	cb := h.SuppressUntilMP(7)

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected Info disabled immediately after SuppressUntilMP installs")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("expected Error still enabled while suppressed")
	}

	cb(3) // not the target MP: stays suppressed
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected Info still disabled for a non-target MP write")
	}

	cb(7) // target MP reached: restore pre-save level
	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected Info enabled again once target MP observed")
	}
}

func TestNewHandlerReusesExistingLevelVar(t *testing.T) {
	lv := new(slog.LevelVar)
	lv.Set(slog.LevelWarn)
	debug := false
	h := NewHandler(io.Discard, &slog.HandlerOptions{Level: lv}, &debug)

	lv.Set(slog.LevelDebug)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected handler to observe changes made directly to the caller's LevelVar")
	}
}
