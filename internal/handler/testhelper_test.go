package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/mergeserver/api/internal/client"
	"github.com/mergeserver/api/internal/config"
	"github.com/mergeserver/api/internal/middleware"
	"github.com/mergeserver/api/internal/model"
	"github.com/mergeserver/api/internal/service"
	"github.com/mergeserver/api/internal/store"
	"github.com/mergeserver/api/internal/worker"
	ws "github.com/mergeserver/api/internal/websocket"
	"github.com/mergeserver/api/pkg/response"
)

const testPublicURL = "http://10.0.2.2:3000"

// stubMuxer writes content to the output path, or fails with err
type stubMuxer struct {
	content string
	err     error
}

func (m *stubMuxer) Mux(_ context.Context, req *client.MuxRequest, onProgress client.ProgressFunc) error {
	onProgress(50)
	if m.err != nil {
		return m.err
	}
	return os.WriteFile(req.OutputPath, []byte(m.content), 0o644)
}

type stubExtractor struct {
	meta *model.SourceMetadata
	err  error
}

func (e *stubExtractor) Extract(context.Context, string) (*model.SourceMetadata, error) {
	return e.meta, e.err
}

type stubTool bool

func (s stubTool) IsAvailable() bool { return bool(s) }

// testApp holds all components needed for testing
type testApp struct {
	app       *fiber.App
	jobs      *store.JobStore
	muxer     *stubMuxer
	extractor *stubExtractor
}

// setupApp wires the same routes as the server binary around stubbed tools
func setupApp(t *testing.T) *testApp {
	t.Helper()

	log := zerolog.Nop()
	jobs := store.NewJobStore()
	muxer := &stubMuxer{content: "merged video bytes"}
	extractor := &stubExtractor{}

	hub := ws.NewHub(log)
	go hub.Run()
	t.Cleanup(hub.Stop)

	mergeCfg := &config.MergeConfig{
		OutputDir:    t.TempDir(),
		CleanupDelay: 10 * time.Millisecond,
	}
	mediaCfg := &config.MediaConfig{MaxVideoOptions: 5, MaxAudioOptions: 3, MaxMuxedOptions: 3}

	mergeWorker := worker.NewMergeWorker(jobs, muxer, hub, 0, log)
	mergeService := service.NewMergeService(jobs, mergeWorker, mergeCfg, log)
	mediaService := service.NewMediaService(extractor, mediaCfg)

	validate := validator.New()

	app := fiber.New(fiber.Config{
		ErrorHandler: response.ErrorHandler(log),
	})

	RegisterRoutes(app, &Routes{
		Merge:  NewMergeHandler(mergeService, validate, testPublicURL),
		Media:  NewMediaHandler(mediaService, validate),
		Health: NewHealthHandler(jobs, map[string]ToolCheck{"ffmpeg": stubTool(true), "ytdlp": stubTool(false)}),
		Hub:    hub,
		// No redis: limits are not enforced
		RateLimiter: middleware.NewRateLimiter(nil, log),
	})

	return &testApp{app: app, jobs: jobs, muxer: muxer, extractor: extractor}
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// mustRequest performs a request and fails the test on transport errors
func mustRequest(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	resp, err := doRequest(app, method, path, body, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}
