package cmd

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestBuildServeConfig(t *testing.T) {
	resetCommandState(t)

	err := serveCmd.ParseFlags([]string{
		"--max-batch", "12",
		"--scan-timeout", "20s",
		"--concurrency", "3",
		"--rate", "2",
		"--auth-token", "s3cret",
		"--cors-origins", "https://a.example,https://b.example",
		"--rate-limit", "4",
		"--rate-burst", "8",
	})
	if err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	applyConfigDefaults(serveCmd)

	appCtx := &AppContext{Logger: zaptest.NewLogger(t).Sugar(), Config: cliConfig}
	cfg, writeTimeout := buildServeConfig(serveCmd, appCtx, zaptest.NewLogger(t))

	if cfg.MaxBatchSize != 12 {
		t.Errorf("expected max batch 12, got %d", cfg.MaxBatchSize)
	}
	if cfg.ScanTimeout != 20*time.Second || cfg.Runner.Timeout != 20*time.Second {
		t.Errorf("expected 20s scan timeout, got %v / %v", cfg.ScanTimeout, cfg.Runner.Timeout)
	}
	if cfg.Runner.Concurrency != 3 || cfg.Runner.RateLimit != 2 {
		t.Errorf("unexpected runner settings %+v", cfg.Runner)
	}
	if cfg.AuthToken != "s3cret" || cfg.RateLimit != 4 || cfg.RateBurst != 8 {
		t.Errorf("unexpected auth/rate settings %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("unexpected CORS origins %v", cfg.CORSOrigins)
	}
	if cfg.Scanner == nil || cfg.Logger == nil {
		t.Error("expected scanner and logger to be wired")
	}

	// 4 waves of 20s plus 6s of rate limiting.
	if cfg.BatchTimeout != 86*time.Second {
		t.Errorf("expected 86s batch timeout, got %v", cfg.BatchTimeout)
	}
	if writeTimeout != 96*time.Second {
		t.Errorf("expected 96s write timeout, got %v", writeTimeout)
	}
}

func TestBuildServeConfigDefaults(t *testing.T) {
	resetCommandState(t)
	applyConfigDefaults(serveCmd)

	appCtx := &AppContext{Logger: zaptest.NewLogger(t).Sugar(), Config: cliConfig}
	cfg, writeTimeout := buildServeConfig(serveCmd, appCtx, zaptest.NewLogger(t))

	if cfg.MaxBatchSize != defaultServeMaxBatch {
		t.Errorf("expected default max batch, got %d", cfg.MaxBatchSize)
	}
	// 50 targets at concurrency 4 and 30s per scan, plus 10s of rate limiting.
	if cfg.BatchTimeout != 400*time.Second {
		t.Errorf("expected 400s batch timeout, got %v", cfg.BatchTimeout)
	}
	if writeTimeout != 410*time.Second {
		t.Errorf("expected 410s write timeout, got %v", writeTimeout)
	}
}

func TestPerScanBound(t *testing.T) {
	if got := perScanBound(5*time.Second, DefaultValues{}); got != 5*time.Second {
		t.Errorf("expected scan timeout to bound a scan, got %v", got)
	}
	got := perScanBound(0, DefaultValues{TimeoutSecs: 10, RetryDelayMs: 2000})
	if got != 44*time.Second {
		t.Errorf("expected two retried fetches (44s), got %v", got)
	}
}

func TestBatchBudgetMinimumWriteTimeout(t *testing.T) {
	resetCommandState(t)
	if err := serveCmd.ParseFlags([]string{"--max-batch", "1", "--scan-timeout", "1s", "--rate", "0"}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	applyConfigDefaults(serveCmd)

	appCtx := &AppContext{Logger: zaptest.NewLogger(t).Sugar(), Config: cliConfig}
	cfg, writeTimeout := buildServeConfig(serveCmd, appCtx, zaptest.NewLogger(t))
	if cfg.BatchTimeout != time.Second {
		t.Errorf("expected 1s batch timeout, got %v", cfg.BatchTimeout)
	}
	if writeTimeout != serveWriteTimeout {
		t.Errorf("expected write timeout floor %v, got %v", serveWriteTimeout, writeTimeout)
	}
}
