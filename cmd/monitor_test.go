package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/thyroid-cli/internal/config"
)

func TestMonitorCommand_Once(t *testing.T) {
	cfg = &config.Config{
		Store:      config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "thyroid.db")},
		Monitoring: config.MonitoringConfig{FailureRateThreshold: 0.5, MinTestF1: 0.7, LookbackWindowHours: 24},
	}
	monitorOnce = true
	defer func() { monitorOnce = false }()

	monitorCmd.SetContext(context.Background())
	require.NoError(t, monitorCmd.RunE(monitorCmd, nil))
}
