package socketio

import (
	"context"
	"testing"
	"time"

	"github.com/specialistvlad/burstbuild/internal/report"
	"github.com/specialistvlad/burstbuild/internal/target"
	"github.com/stretchr/testify/assert"
)

func TestPayloads(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	rec := RecipePayload(report.RecipeEvent{
		Target: "app", Recipe: "link", Command: "cc -o app",
		Outcome: report.OutcomeFailed, ExitCode: 2,
		Start: start, End: start.Add(1500 * time.Millisecond),
		Stderr: []byte("undefined reference"),
	})
	assert.Equal(t, "failed", rec["outcome"])
	assert.Equal(t, 2, rec["exit_code"])
	assert.Equal(t, int64(1500), rec["duration_ms"])
	assert.Equal(t, "undefined reference", rec["stderr"])

	tgt := TargetPayload(report.TargetEvent{Target: "top", Status: target.StatusSkipped, Reason: "dependency app failed"})
	assert.Equal(t, "skipped", tgt["status"])

	sum := SummaryPayload(report.SummaryEvent{Made: 2, Duration: time.Second})
	assert.Equal(t, 2, sum["made"])
	assert.Equal(t, int64(1000), sum["duration_ms"])

	plan := PlanPayload(report.PlanEvent{Roots: []string{"app"}, Found: 2, Stale: 1, Current: 1})
	assert.Equal(t, []string{"app"}, plan["roots"])
}

func TestDialRejectsBadURL(t *testing.T) {
	_, err := Dial(context.Background(), Options{URL: "not a url"})
	assert.Error(t, err)
}
