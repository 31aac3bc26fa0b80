package health

import (
	"context"
	"fmt"
	"os"
	"time"
)

// PingChecker wraps a dependency reachability probe (redis, sqlite).
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingChecker creates a checker that calls ping on every probe.
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{
		name: name,
		ping: ping,
	}
}

func (c *PingChecker) Name() string {
	return c.name
}

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if err := c.ping(ctx); err != nil {
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  err.Error(),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "reachable",
	}
}

// RefreshChecker reports on the last completed refresh cycle. The
// service is not ready before the first snapshot exists, and degraded
// when the latest one is older than maxAge.
type RefreshChecker struct {
	lastRefresh func() time.Time
	maxAge      time.Duration
}

// NewRefreshChecker creates a checker for refresh recency. A maxAge of
// zero disables the staleness check.
func NewRefreshChecker(lastRefresh func() time.Time, maxAge time.Duration) *RefreshChecker {
	return &RefreshChecker{
		lastRefresh: lastRefresh,
		maxAge:      maxAge,
	}
}

func (c *RefreshChecker) Name() string {
	return "last_refresh"
}

func (c *RefreshChecker) Check(ctx context.Context) CheckResult {
	last := c.lastRefresh()

	if last.IsZero() {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "no completed refresh yet",
		}
	}

	age := time.Since(last)
	if c.maxAge > 0 && age > c.maxAge {
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("last refresh %s ago exceeds %s", age.Round(time.Second), c.maxAge),
		}
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("last refresh %s ago", age.Round(time.Second)),
	}
}

// ArtifactChecker checks an exported artifact on disk. Exports are
// best-effort, so a missing or empty artifact degrades instead of
// failing readiness.
type ArtifactChecker struct {
	name string
	path string
}

// NewArtifactChecker creates a checker for an export artifact.
func NewArtifactChecker(name, path string) *ArtifactChecker {
	return &ArtifactChecker{
		name: name,
		path: path,
	}
}

func (c *ArtifactChecker) Name() string {
	return c.name
}

func (c *ArtifactChecker) Check(ctx context.Context) CheckResult {
	if c.path == "" {
		return CheckResult{
			Status:  StatusHealthy,
			Message: "not configured (optional)",
		}
	}

	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusDegraded,
				Message: "artifact not written yet",
			}
		}
		return CheckResult{
			Status: StatusDegraded,
			Error:  err.Error(),
		}
	}

	if info.IsDir() {
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  "expected file, got directory",
		}
	}

	if info.Size() == 0 {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "artifact is empty",
		}
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: "artifact present",
	}
}
