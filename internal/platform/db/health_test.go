package db

import (
	"errors"
	"testing"
)

func TestHealthReportHealthy(t *testing.T) {
	report := newHealthReport("0.1.0", PoolUsage{Total: 4, Idle: 3, Acquired: 1, Max: 10}, nil)

	if report.Status != "healthy" {
		t.Errorf("expected healthy, got %s", report.Status)
	}
	if report.Service != "convenio-api" {
		t.Errorf("unexpected service name %q", report.Service)
	}
	if report.Version != "0.1.0" {
		t.Errorf("unexpected version %q", report.Version)
	}
	if report.Error != "" {
		t.Errorf("healthy report must not carry an error, got %q", report.Error)
	}
	if report.Pool.Acquired != 1 || report.Pool.Max != 10 {
		t.Errorf("unexpected pool usage: %+v", report.Pool)
	}
}

func TestHealthReportUnhealthy(t *testing.T) {
	report := newHealthReport("0.1.0", PoolUsage{}, errors.New("connection refused"))

	if report.Status != "unhealthy" {
		t.Errorf("expected unhealthy, got %s", report.Status)
	}
	if report.Error != "connection refused" {
		t.Errorf("expected ping error in report, got %q", report.Error)
	}
}
