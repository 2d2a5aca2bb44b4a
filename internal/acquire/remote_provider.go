package acquire

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"cutline/internal/logging"
	"cutline/internal/media"
	"cutline/internal/services"
)

// Remote job states reported by the generation service.
const (
	remoteQueued    = "queued"
	remoteRunning   = "running"
	remoteSucceeded = "succeeded"
	remoteFailed    = "failed"
)

// RemoteOptions configures a RemoteProvider.
type RemoteOptions struct {
	Endpoint          string
	APIKey            string
	PollInterval      time.Duration
	RequestsPerSecond float64
	FrameRate         int
	StillFrames       int64
	Client            *http.Client
	Logger            *slog.Logger
}

// RemoteProvider renders assets through a remote generation API. Jobs
// cannot be withdrawn once submitted.
type RemoteProvider struct {
	endpoint     string
	apiKey       string
	pollInterval time.Duration
	limiter      *rate.Limiter
	frameRate    int
	stillFrames  int64
	client       *http.Client
	logger       *slog.Logger
}

type generationRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

type generationResponse struct {
	ID              string  `json:"id"`
	Status          string  `json:"status"`
	URL             string  `json:"url"`
	Kind            string  `json:"kind"`
	DurationSeconds float64 `json:"duration_seconds"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	Error           string  `json:"error"`
}

// NewRemoteProvider validates options and constructs the provider.
func NewRemoteProvider(opts RemoteOptions) (*RemoteProvider, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	parsed, err := url.Parse(endpoint)
	if endpoint == "" || err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, services.Wrap(services.ErrConfiguration, "remote-provider", "new", fmt.Sprintf("invalid endpoint %q", opts.Endpoint), err)
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	fps := opts.FrameRate
	if fps <= 0 {
		fps = 30
	}
	still := opts.StillFrames
	if still <= 0 {
		still = int64(fps) * 5
	}
	return &RemoteProvider{
		endpoint:     endpoint,
		apiKey:       strings.TrimSpace(opts.APIKey),
		pollInterval: interval,
		limiter:      rate.NewLimiter(rate.Limit(rps), 1),
		frameRate:    fps,
		stillFrames:  still,
		client:       client,
		logger:       logging.NewComponentLogger(opts.Logger, "remote-provider"),
	}, nil
}

func (p *RemoteProvider) Name() string { return media.ProviderRemote }

func (p *RemoteProvider) Cancellable() bool { return false }

// Acquire submits the generation job and polls until it settles.
func (p *RemoteProvider) Acquire(ctx context.Context, item media.Item, report PhaseFunc) (media.Result, error) {
	src, ok := item.Source.(media.RemoteSource)
	if !ok {
		return media.Result{}, services.Wrap(services.ErrValidation, "remote-provider", "acquire", fmt.Sprintf("unsupported source %T", item.Source), nil)
	}
	if strings.TrimSpace(src.Prompt) == "" {
		return media.Result{}, services.Wrap(services.ErrValidation, "remote-provider", "acquire", "prompt is required", nil)
	}

	report("submitting")
	body, err := json.Marshal(generationRequest{Prompt: src.Prompt, Model: src.Model, Kind: string(src.Kind)})
	if err != nil {
		return media.Result{}, services.Wrap(services.ErrAcquisition, "remote-provider", "submit", "encode request", err)
	}
	var job generationResponse
	if err := p.do(ctx, http.MethodPost, p.endpoint+"/generations", body, &job); err != nil {
		return media.Result{}, err
	}
	if job.ID == "" {
		return media.Result{}, services.Wrap(services.ErrAcquisition, "remote-provider", "submit", "response missing job id", nil)
	}
	p.logger.Info("generation submitted",
		logging.String(logging.FieldMediaID, item.ID),
		logging.String("job_id", job.ID),
	)

	statusURL := p.endpoint + "/generations/" + url.PathEscape(job.ID)
	for {
		switch job.Status {
		case remoteSucceeded:
			return p.result(src, job), nil
		case remoteFailed:
			msg := job.Error
			if msg == "" {
				msg = "generation failed"
			}
			return media.Result{}, services.Wrap(services.ErrAcquisition, "remote-provider", "generate", msg, nil)
		case remoteQueued, remoteRunning, "":
			report("generating")
		default:
			return media.Result{}, services.Wrap(services.ErrAcquisition, "remote-provider", "poll", fmt.Sprintf("unexpected job status %q", job.Status), nil)
		}

		timer := time.NewTimer(p.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return media.Result{}, ctx.Err()
		case <-timer.C:
		}

		job = generationResponse{}
		if err := p.do(ctx, http.MethodGet, statusURL, nil, &job); err != nil {
			return media.Result{}, err
		}
	}
}

func (p *RemoteProvider) result(src media.RemoteSource, job generationResponse) media.Result {
	kind := media.ParseKind(job.Kind)
	if kind == media.KindUnknown {
		kind = src.Kind
	}
	res := media.Result{Kind: kind, Handle: &RemoteHandle{URL: job.URL}}
	if job.Width > 0 && job.Height > 0 {
		res.Width, res.Height = job.Width, job.Height
	}
	if job.DurationSeconds > 0 {
		res.Duration = int64(math.Round(job.DurationSeconds * float64(p.frameRate)))
		res.HasDuration = true
	} else if !kind.IsTimed() {
		res.Duration, res.HasDuration = p.stillFrames, true
	}
	return res
}

func (p *RemoteProvider) do(ctx context.Context, method, target string, body []byte, out any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return services.Wrap(services.ErrAcquisition, "remote-provider", method, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", rid)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return services.Wrap(services.ErrTransient, "remote-provider", method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return services.Wrap(services.ErrAcquisition, "remote-provider", method, fmt.Sprintf("%s returned %d: %s", target, resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrAcquisition, "remote-provider", method, "decode response", err)
	}
	return nil
}

// RemoteHandle references a rendered asset by URL.
type RemoteHandle struct {
	URL string
}

// Release drops the reference.
func (h *RemoteHandle) Release() {
	if h != nil {
		h.URL = ""
	}
}
