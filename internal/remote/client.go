package remote

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"resty.dev/v3"

	"github.com/kartoza/cplus-engine/internal/ctxlog"
	"github.com/kartoza/cplus-engine/internal/model"
)

const (
	defaultTimeout  = 60 * time.Second
	defaultPollTick = 5 * time.Second
)

// Client talks to the CPLUS processing API.
type Client struct {
	http     *resty.Client
	pollTick time.Duration
}

// Option tweaks a Client.
type Option func(*Client)

// WithPollInterval overrides the status polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollTick = d }
}

// NewClient creates a client for the API at baseURL. apiKey may be empty for
// unauthenticated servers.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second)
	if apiKey != "" {
		httpClient.SetAuthToken(apiKey)
	}

	c := &Client{http: httpClient, pollTick: defaultPollTick}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.http.Close()
}

// apiErr converts a non-2xx resty response into an APIError.
func apiErr(resp *resty.Response) error {
	return &APIError{Status: resp.StatusCode(), Detail: resp.String()}
}

// UploadLayer requests a presigned PUT target for the file and streams it
// there, returning the server-side layer uuid. Content type is sniffed from
// the extension, matching what the storage backend expects.
func (c *Client) UploadLayer(ctx context.Context, path string) (string, error) {
	logger := ctxlog.FromContext(ctx)

	var target uploadTarget
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"filename": filepath.Base(path)}).
		SetResult(&target).
		Post("/layers/upload-url")
	if err != nil {
		return "", fmt.Errorf("request upload url for %s: %w", path, err)
	}
	if resp.IsError() {
		return "", apiErr(resp)
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open layer %s: %w", path, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat layer %s: %w", path, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	logger.Info("Uploading layer.", "path", path, "size", stat.Size(), "contentType", contentType)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.URL, file)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = stat.Size()

	putResp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload layer %s: %w", path, err)
	}
	defer putResp.Body.Close()
	if putResp.StatusCode != http.StatusOK && putResp.StatusCode != http.StatusCreated {
		return "", &APIError{Status: putResp.StatusCode, Detail: "layer upload rejected"}
	}

	logger.Info("Layer uploaded.", "path", path, "layerUUID", target.LayerUUID)
	return target.LayerUUID, nil
}

// submitPayload is the wire form of a scenario submission. Local layer paths
// are replaced by the uuids UploadLayer returned.
type submitPayload struct {
	UUID              string                `json:"uuid"`
	Name              string                `json:"name"`
	Description       string                `json:"description"`
	Extent            [4]float64            `json:"extent"`
	CarbonCoefficient float64               `json:"carbon_coefficient"`
	Sieve             model.SieveOptions    `json:"sieve"`
	Activities        []submitActivity      `json:"activities"`
	Groups            []model.PriorityGroup `json:"priority_groups"`
}

type submitActivity struct {
	UUID     string          `json:"uuid"`
	Name     string          `json:"name"`
	Pathways []submitPathway `json:"pathways"`
	PwlIDs   []string        `json:"pwls_ids"`
	Masks    []string        `json:"mask_layer_uuids"`
}

type submitPathway struct {
	UUID        string   `json:"uuid"`
	LayerUUID   string   `json:"layer_uuid"`
	CarbonUUIDs []string `json:"carbon_layer_uuids"`
}

// SubmitScenario posts the scenario for server-side processing. layerUUIDs
// maps every local layer path the scenario references to the uuid returned
// by UploadLayer; a missing mapping is an error.
func (c *Client) SubmitScenario(ctx context.Context, scenario *model.Scenario, layerUUIDs map[string]string) (string, error) {
	payload, err := buildPayload(scenario, layerUUIDs)
	if err != nil {
		return "", err
	}

	var submitted submitResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&submitted).
		Post("/scenarios")
	if err != nil {
		return "", fmt.Errorf("submit scenario %q: %w", scenario.Name, err)
	}
	if resp.IsError() {
		return "", apiErr(resp)
	}

	ctxlog.FromContext(ctx).Info("Scenario submitted for remote processing.", "scenario", scenario.Name, "jobID", submitted.JobID)
	return submitted.JobID, nil
}

// buildPayload translates local paths into uploaded layer uuids.
func buildPayload(scenario *model.Scenario, layerUUIDs map[string]string) (*submitPayload, error) {
	lookup := func(path string) (string, error) {
		id, ok := layerUUIDs[path]
		if !ok {
			return "", fmt.Errorf("scenario %q: layer %s was not uploaded", scenario.Name, path)
		}
		return id, nil
	}

	payload := &submitPayload{
		UUID:              scenario.UUID,
		Name:              scenario.Name,
		Description:       scenario.Description,
		Extent:            scenario.Extent,
		CarbonCoefficient: scenario.CarbonCoefficient,
		Sieve:             scenario.Sieve,
		Groups:            scenario.Groups,
	}
	for _, activity := range scenario.Activities {
		sa := submitActivity{UUID: activity.UUID, Name: activity.Name, PwlIDs: activity.PwlIDs}
		for _, pathway := range activity.Pathways {
			sp := submitPathway{UUID: pathway.UUID}
			id, err := lookup(pathway.Path)
			if err != nil {
				return nil, err
			}
			sp.LayerUUID = id
			for _, carbon := range pathway.CarbonPaths {
				cid, err := lookup(carbon)
				if err != nil {
					return nil, err
				}
				sp.CarbonUUIDs = append(sp.CarbonUUIDs, cid)
			}
			sa.Pathways = append(sa.Pathways, sp)
		}
		for _, mask := range activity.MaskPaths {
			mid, err := lookup(mask)
			if err != nil {
				return nil, err
			}
			sa.Masks = append(sa.Masks, mid)
		}
		payload.Activities = append(payload.Activities, sa)
	}
	return payload, nil
}

// Status fetches the current job status.
func (c *Client) Status(ctx context.Context, jobID string) (JobStatus, error) {
	var status JobStatus
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&status).
		Get("/scenarios/" + jobID + "/status")
	if err != nil {
		return JobStatus{}, fmt.Errorf("job %s status: %w", jobID, err)
	}
	if resp.IsError() {
		return JobStatus{}, apiErr(resp)
	}
	return status, nil
}

// Cancel asks the server to stop the job.
func (c *Client) Cancel(ctx context.Context, jobID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Post("/scenarios/" + jobID + "/cancel")
	if err != nil {
		return fmt.Errorf("cancel job %s: %w", jobID, err)
	}
	if resp.IsError() {
		return apiErr(resp)
	}
	return nil
}

// Wait polls the job until it reaches a terminal state. onStatus, when not
// nil, receives every observed status. If ctx is cancelled, Wait issues a
// best-effort Cancel before returning the context error.
func (c *Client) Wait(ctx context.Context, jobID string, onStatus func(JobStatus)) (JobStatus, error) {
	logger := ctxlog.FromContext(ctx)
	ticker := time.NewTicker(c.pollTick)
	defer ticker.Stop()

	for {
		status, err := c.Status(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return JobStatus{}, err
		}
		if onStatus != nil {
			onStatus(status)
		}
		if status.State.Terminal() {
			logger.Info("Remote job finished.", "jobID", jobID, "state", status.State)
			return status, nil
		}

		select {
		case <-ctx.Done():
		case <-ticker.C:
			continue
		}
		break
	}

	// The run was cancelled locally; tell the server before giving up. The
	// cancel request gets its own short deadline because ctx is already dead.
	cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := c.Cancel(cancelCtx, jobID); err != nil {
		logger.Warn("Failed to cancel remote job after local cancellation.", "jobID", jobID, "error", err)
	}
	return JobStatus{}, ctx.Err()
}

// FetchResults lists the job's output files and downloads each into outDir,
// returning the local paths.
func (c *Client) FetchResults(ctx context.Context, jobID, outDir string) ([]string, error) {
	var files []ResultFile
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&files).
		Get("/scenarios/" + jobID + "/results")
	if err != nil {
		return nil, fmt.Errorf("list results for job %s: %w", jobID, err)
	}
	if resp.IsError() {
		return nil, apiErr(resp)
	}

	logger := ctxlog.FromContext(ctx)
	paths := make([]string, 0, len(files))
	for _, f := range files {
		local := filepath.Join(outDir, f.Name)
		dlResp, err := c.http.R().
			SetContext(ctx).
			SetOutputFileName(local).
			Get(f.URL)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", f.Name, err)
		}
		if dlResp.IsError() {
			return nil, apiErr(dlResp)
		}
		logger.Info("Result downloaded.", "name", f.Name, "path", local)
		paths = append(paths, local)
	}
	return paths, nil
}
