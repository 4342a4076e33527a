package socketio

import "github.com/specialistvlad/burstbuild/internal/report"

// PlanPayload is the JSON-friendly form of a plan event.
func PlanPayload(e report.PlanEvent) map[string]any {
	return map[string]any{
		"roots":   e.Roots,
		"found":   e.Found,
		"stale":   e.Stale,
		"current": e.Current,
	}
}

// RecipePayload is the JSON-friendly form of a recipe event.
func RecipePayload(e report.RecipeEvent) map[string]any {
	return map[string]any{
		"target":      e.Target,
		"recipe":      e.Recipe,
		"command":     e.Command,
		"outcome":     e.Outcome.String(),
		"exit_code":   e.ExitCode,
		"signal":      e.Signal,
		"start":       e.Start.UnixMilli(),
		"duration_ms": e.Duration().Milliseconds(),
		"stdout":      string(e.Stdout),
		"stderr":      string(e.Stderr),
		"dry_run":     e.DryRun,
	}
}

// TargetPayload is the JSON-friendly form of a target event.
func TargetPayload(e report.TargetEvent) map[string]any {
	return map[string]any{
		"target": e.Target,
		"status": e.Status.String(),
		"failed": e.Failed,
		"reason": e.Reason,
	}
}

// SummaryPayload is the JSON-friendly form of a summary event.
func SummaryPayload(e report.SummaryEvent) map[string]any {
	return map[string]any{
		"made":        e.Made,
		"failed":      e.Failed,
		"skipped":     e.Skipped,
		"up_to_date":  e.UpToDate,
		"duration_ms": e.Duration.Milliseconds(),
	}
}
