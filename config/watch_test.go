package config

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, validYAML)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	updates := make(chan AppConfig, 1)
	w := Watcher{Path: path, Cooldown: time.Millisecond}
	go func() {
		_ = w.Start(ctx, func(cfg AppConfig) {
			select {
			case updates <- cfg:
			default:
			}
		})
	}()

	// Give the watcher a moment to register before rewriting.
	time.Sleep(100 * time.Millisecond)
	changed := strings.Replace(validYAML, "withdrawEvery: 5", "withdrawEvery: 7", 1)
	if err := os.WriteFile(path, []byte(changed), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-updates:
		if cfg.Tick.WithdrawEvery != 7 {
			t.Fatalf("withdrawEvery = %d, want 7", cfg.Tick.WithdrawEvery)
		}
	case <-ctx.Done():
		t.Fatal("no reload before timeout")
	}
}

func TestWatcher_IgnoresInvalidConfig(t *testing.T) {
	path := writeConfig(t, validYAML)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	updates := make(chan AppConfig, 1)
	w := Watcher{Path: path, Cooldown: time.Millisecond}
	go func() {
		_ = w.Start(ctx, func(cfg AppConfig) {
			select {
			case updates <- cfg:
			default:
			}
		})
	}()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("env: ''\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-updates:
		t.Fatalf("invalid config must not reach the callback, got %+v", cfg)
	case <-ctx.Done():
		// No update, as expected.
	}
}
