package main

import (
	"testing"
	"time"

	"github.com/mkmtelecom/outagemon/internal/cli"
)

func TestBuildOverridesEmpty(t *testing.T) {
	overrides := buildOverrides(
		cli.OptionalDuration{},
		cli.OptionalDuration{},
		cli.OptionalInt{},
		cli.OptionalInt{},
		cli.OptionalString{},
		cli.OptionalString{},
		cli.OptionalString{},
		cli.OptionalBool{},
	)

	if overrides.Interval != nil || overrides.Timeout != nil {
		t.Errorf("expected nil duration overrides, got %+v", overrides)
	}
	if overrides.LossThreshold != nil || overrides.RecoveryThreshold != nil {
		t.Errorf("expected nil threshold overrides, got %+v", overrides)
	}
	if overrides.EventsFile != nil || overrides.ReportFile != nil || overrides.MetricsListen != nil {
		t.Errorf("expected nil file overrides, got %+v", overrides)
	}
	if overrides.UIDisable != nil {
		t.Errorf("expected nil ui override, got %+v", overrides)
	}
}

func TestBuildOverridesSetValues(t *testing.T) {
	var interval cli.OptionalDuration
	if err := interval.Set("5s"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	var loss cli.OptionalInt
	if err := loss.Set("7"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	var eventsFile cli.OptionalString
	if err := eventsFile.Set("events.json"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	var noUI cli.OptionalBool
	if err := noUI.Set("true"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	overrides := buildOverrides(
		interval,
		cli.OptionalDuration{},
		loss,
		cli.OptionalInt{},
		eventsFile,
		cli.OptionalString{},
		cli.OptionalString{},
		noUI,
	)

	if overrides.Interval == nil || *overrides.Interval != 5*time.Second {
		t.Errorf("interval override = %v, want 5s", overrides.Interval)
	}
	if overrides.LossThreshold == nil || *overrides.LossThreshold != 7 {
		t.Errorf("loss override = %v, want 7", overrides.LossThreshold)
	}
	if overrides.EventsFile == nil || *overrides.EventsFile != "events.json" {
		t.Errorf("events file override = %v", overrides.EventsFile)
	}
	if overrides.UIDisable == nil || !*overrides.UIDisable {
		t.Errorf("ui override = %v, want true", overrides.UIDisable)
	}
	if overrides.Timeout != nil || overrides.RecoveryThreshold != nil {
		t.Errorf("unset flags produced overrides: %+v", overrides)
	}
}

func TestBuildOverridesIgnoresEmptyStrings(t *testing.T) {
	var eventsFile cli.OptionalString
	if err := eventsFile.Set(""); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	overrides := buildOverrides(
		cli.OptionalDuration{},
		cli.OptionalDuration{},
		cli.OptionalInt{},
		cli.OptionalInt{},
		eventsFile,
		cli.OptionalString{},
		cli.OptionalString{},
		cli.OptionalBool{},
	)
	if overrides.EventsFile != nil {
		t.Errorf("empty string should not produce an override, got %q", *overrides.EventsFile)
	}
}
