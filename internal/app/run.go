package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kartoza/cplus-engine/internal/ctxlog"
	"github.com/kartoza/cplus-engine/internal/history"
	"github.com/kartoza/cplus-engine/internal/model"
	"github.com/kartoza/cplus-engine/internal/npv"
	"github.com/kartoza/cplus-engine/internal/pipeline"
	"github.com/kartoza/cplus-engine/internal/raster"
	"github.com/kartoza/cplus-engine/internal/remote"
	"github.com/kartoza/cplus-engine/internal/report"
	"github.com/kartoza/cplus-engine/internal/style"
)

// subscriberConnectTimeout bounds how long a remote run waits for the status
// stream before falling back to polling.
const subscriberConnectTimeout = 5 * time.Second

// Run executes the configured command: a history listing, a report or
// comparison over stored runs, or the scenario analysis itself.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	store, err := history.Open(a.config.HistoryPath)
	if err != nil {
		return err
	}
	defer store.Close()

	switch {
	case a.config.ListHistory:
		return a.listHistory(ctx, store)
	case a.config.ReportUUID != "":
		return a.reportFromHistory(ctx, store)
	case len(a.config.CompareUUIDs) > 0:
		return a.compareFromHistory(ctx, store)
	}

	a.logger.Info("Starting scenario analysis.", "scenarios", len(a.scenarios))
	for _, scenario := range a.scenarios {
		if err := a.runScenario(ctx, store, scenario); err != nil {
			return err
		}
	}
	a.logger.Info("All scenarios finished.")
	return nil
}

// runScenario executes one scenario and records its outcome in the history
// store regardless of how it ends.
func (a *App) runScenario(ctx context.Context, store *history.Store, scenario *model.Scenario) error {
	logger := a.logger.With("scenario", scenario.Name, "mode", string(scenario.Processing.Mode))
	ctx = ctxlog.WithLogger(ctx, logger)

	outDir := filepath.Join(a.config.OutDir, scenario.UUID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	result := &model.ScenarioResult{
		ScenarioUUID: scenario.UUID,
		ScenarioName: scenario.Name,
		State:        model.StateRunning,
		OutputDir:    outDir,
		StartedAt:    time.Now().UTC(),
	}

	logger.Info("Scenario started.", "activities", len(scenario.Activities), "outDir", outDir)

	var runErr error
	if scenario.Processing.Mode == model.ProcessingRemote {
		runErr = a.runRemote(ctx, scenario, outDir, result)
	} else {
		runErr = a.runLocal(ctx, scenario, outDir, result)
	}

	result.FinishedAt = time.Now().UTC()
	if runErr != nil {
		if result.State == model.StateRunning {
			result.State = model.StateFailed
			if errors.Is(runErr, context.Canceled) {
				result.State = model.StateCancelled
			}
		}
		result.Error = runErr.Error()
	} else if result.State == model.StateRunning {
		result.State = model.StateCompleted
	}

	if err := store.Save(ctx, history.Entry{Scenario: scenario, Result: result}); err != nil {
		logger.Error("Failed to record run in history.", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		return runErr
	}

	if err := a.writeArtifacts(ctx, scenario, result); err != nil {
		return err
	}
	logger.Info("Scenario finished.", "state", result.State.String(), "duration", result.Duration().Round(time.Millisecond))
	return nil
}

// runLocal builds and executes the analysis graph in-process.
func (a *App) runLocal(ctx context.Context, scenario *model.Scenario, outDir string, result *model.ScenarioResult) error {
	logger := ctxlog.FromContext(ctx)

	build, err := pipeline.BuildGraph(scenario, a.profile.PriorityLayers, outDir)
	if err != nil {
		return err
	}
	logger.Debug("Analysis graph built.", "nodes", len(build.Graph.Nodes))

	if scenario.NPV.Enabled {
		if err := materializeNPVLayers(ctx, scenario, build.NPVPaths); err != nil {
			return err
		}
	}

	exec := pipeline.NewExecutor(build.Graph, a.registry, a.config.WorkerCount, func(done, total int) {
		logger.Info("Analysis progress.", "done", done, "total", total)
	})
	if err := exec.Run(ctx); err != nil {
		return err
	}

	result.ResultPath = build.ResultPath
	result.ActivityOut = build.ActivityPaths

	activityGrids := make(map[string]*raster.Grid, len(build.ActivityNodes))
	for i := range scenario.Activities {
		activityGrids[scenario.Activities[i].UUID] = build.ActivityNodes[i].Output
	}
	result.Stats = report.ComputeStats(scenario, build.ResultNode.Output, activityGrids)
	return nil
}

// materializeNPVLayers discounts every activity's projection and writes the
// normalized values as constant grids where the graph expects them. The
// first pathway raster of each activity provides the alignment and nodata
// footprint.
func materializeNPVLayers(ctx context.Context, scenario *model.Scenario, paths map[string]string) error {
	inputs := make([]npv.Input, 0, len(scenario.Activities))
	for i := range scenario.Activities {
		activity := &scenario.Activities[i]
		for _, p := range scenario.NPV.Projections {
			if p.ActivityUUID != activity.UUID {
				continue
			}
			in := npv.Input{ActivityUUID: activity.UUID, ActivityName: activity.Name}
			for year := range p.Revenues {
				in.Years = append(in.Years, npv.YearValue{Revenue: p.Revenues[year], Cost: p.Costs[year]})
			}
			inputs = append(inputs, in)
		}
	}

	results, err := npv.ComputeAll(inputs, scenario.NPV.DiscountRate)
	if err != nil {
		return err
	}

	logger := ctxlog.FromContext(ctx)
	for _, r := range results {
		activity := scenario.Activity(r.ActivityUUID)
		ref, err := raster.ReadFile(activity.Pathways[0].Path)
		if err != nil {
			return err
		}
		layer := npv.ConstantLayer(ref, r.Normalized)
		if err := raster.WriteFile(paths[r.ActivityUUID], layer); err != nil {
			return err
		}
		logger.Debug("NPV layer materialized.", "activity", r.ActivityName, "npv", r.Value, "normalized", r.Normalized)
	}
	return nil
}

// runRemote uploads the scenario's layers, submits the job and follows it to
// completion, preferring the status stream over polling.
func (a *App) runRemote(ctx context.Context, scenario *model.Scenario, outDir string, result *model.ScenarioResult) error {
	logger := ctxlog.FromContext(ctx)

	client := remote.NewClient(scenario.Processing.APIURL, scenario.Processing.APIKey)
	defer client.Close()

	layerUUIDs := make(map[string]string)
	for _, path := range scenarioLayerPaths(scenario) {
		id, err := client.UploadLayer(ctx, path)
		if err != nil {
			return err
		}
		layerUUIDs[path] = id
	}

	jobID, err := client.SubmitScenario(ctx, scenario, layerUUIDs)
	if err != nil {
		return err
	}
	result.JobID = jobID

	onStatus := func(s remote.JobStatus) {
		logger.Info("Remote job progress.", "state", string(s.State), "progress", s.Progress, "message", s.Message)
	}

	status, err := followJob(ctx, client, scenario.Processing.APIURL, jobID, onStatus)
	if err != nil {
		return err
	}
	result.State = status.State.ScenarioState()
	if status.State != remote.JobCompleted {
		return fmt.Errorf("remote job %s ended %s: %s", jobID, status.State, status.Message)
	}

	files, err := client.FetchResults(ctx, jobID, outDir)
	if err != nil {
		return err
	}
	for _, f := range files {
		if filepath.Base(f) == "scenario_result.asc" {
			result.ResultPath = f
		}
	}
	if result.ResultPath == "" {
		return fmt.Errorf("remote job %s returned no scenario result raster", jobID)
	}

	classified, err := raster.ReadFile(result.ResultPath)
	if err != nil {
		return err
	}
	result.Stats = report.ComputeStats(scenario, classified, nil)
	return nil
}

// followJob tries the socket.io status stream first and falls back to
// polling when the stream cannot be established.
func followJob(ctx context.Context, client *remote.Client, apiURL, jobID string, onStatus func(remote.JobStatus)) (remote.JobStatus, error) {
	logger := ctxlog.FromContext(ctx)

	sub, err := remote.NewSubscriber(apiURL)
	if err == nil {
		status, ferr := sub.Follow(ctx, jobID, subscriberConnectTimeout, onStatus)
		sub.Close()
		if ferr == nil {
			return status, nil
		}
		if ctx.Err() != nil {
			return remote.JobStatus{}, ctx.Err()
		}
		logger.Warn("Status stream unavailable, falling back to polling.", "error", ferr)
	}
	return client.Wait(ctx, jobID, onStatus)
}

// scenarioLayerPaths collects every local file the server needs, once each,
// in a stable order.
func scenarioLayerPaths(scenario *model.Scenario) []string {
	seen := make(map[string]struct{})
	var paths []string
	add := func(p string) {
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	for i := range scenario.Activities {
		activity := &scenario.Activities[i]
		for _, pathway := range activity.Pathways {
			add(pathway.Path)
			for _, carbon := range pathway.CarbonPaths {
				add(carbon)
			}
		}
		for _, mask := range activity.MaskPaths {
			add(mask)
		}
	}
	return paths
}

// writeArtifacts renders the report and the QGIS styles next to the output
// rasters.
func (a *App) writeArtifacts(ctx context.Context, scenario *model.Scenario, result *model.ScenarioResult) error {
	logger := ctxlog.FromContext(ctx)

	rep := report.Build(scenario, result)
	jsonPath, mdPath, err := rep.Write(result.OutputDir)
	if err != nil {
		return err
	}
	logger.Info("Report written.", "json", jsonPath, "markdown", mdPath)

	if result.ResultPath != "" {
		qmlPath := qmlSidecar(result.ResultPath)
		if err := style.WriteScenarioQML(qmlPath, scenario); err != nil {
			return err
		}
		logger.Debug("Scenario style written.", "path", qmlPath)
	}

	for uuid, out := range result.ActivityOut {
		activity := scenario.Activity(uuid)
		grid, err := raster.ReadFile(out)
		if err != nil {
			return err
		}
		summary := raster.Stats(grid)
		if summary.ValidCount == 0 {
			continue
		}
		if err := style.WriteActivityQML(qmlSidecar(out), activity.Name, summary.Min, summary.Max); err != nil {
			return err
		}
	}
	return nil
}

// qmlSidecar swaps a raster path's extension for .qml.
func qmlSidecar(rasterPath string) string {
	return strings.TrimSuffix(rasterPath, filepath.Ext(rasterPath)) + ".qml"
}

// listHistory prints the stored runs, newest first, optionally filtered to
// one state.
func (a *App) listHistory(ctx context.Context, store *history.Store) error {
	var entries []history.Entry
	var err error
	if a.config.ListState != "" {
		var state model.ScenarioState
		if state, err = model.ParseScenarioState(a.config.ListState); err != nil {
			return err
		}
		entries, err = store.ListByState(ctx, state)
	} else {
		entries, err = store.List(ctx)
	}
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.outW, "No scenario runs recorded.")
		return nil
	}

	fmt.Fprintf(a.outW, "%-36s  %-20s  %-10s  %-20s  %s\n", "UUID", "NAME", "STATE", "STARTED", "DURATION")
	for _, e := range entries {
		fmt.Fprintf(a.outW, "%-36s  %-20s  %-10s  %-20s  %s\n",
			e.Scenario.UUID,
			e.Scenario.Name,
			e.Result.State.String(),
			e.Result.StartedAt.Format(time.RFC3339),
			e.Result.Duration().Round(time.Second))
	}
	return nil
}

// reportFromHistory regenerates the report for one stored run.
func (a *App) reportFromHistory(ctx context.Context, store *history.Store) error {
	entry, err := store.Get(ctx, a.config.ReportUUID)
	if err != nil {
		return err
	}

	rep := report.Build(entry.Scenario, entry.Result)
	jsonPath, mdPath, err := rep.Write(a.artifactDir(entry.Result.OutputDir))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.outW, "Report written to %s and %s\n", jsonPath, mdPath)
	return nil
}

// compareFromHistory renders a side-by-side comparison of stored runs.
func (a *App) compareFromHistory(ctx context.Context, store *history.Store) error {
	entries, err := store.ForComparison(ctx, a.config.CompareUUIDs)
	if err != nil {
		return err
	}

	results := make([]*model.ScenarioResult, 0, len(entries))
	for _, e := range entries {
		results = append(results, e.Result)
	}
	cmp, err := report.Compare(results)
	if err != nil {
		return err
	}

	jsonPath, mdPath, err := cmp.Write(a.artifactDir(""))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.outW, "Comparison written to %s and %s\n", jsonPath, mdPath)
	return nil
}

// artifactDir picks where history-command artifacts land: the configured
// output directory, the run's own directory, or the working directory.
func (a *App) artifactDir(runDir string) string {
	switch {
	case a.config.OutDir != "":
		return a.config.OutDir
	case runDir != "":
		return runDir
	default:
		return "."
	}
}
