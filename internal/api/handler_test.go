package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/secretsconfig/pkg/model"
	"github.com/Checker-Finance/secretsconfig/pkg/smconfig"
)

// --- Mock Provider ---

type mockProvider struct {
	snap     *smconfig.Snapshot
	next     *smconfig.Snapshot
	reloadFn func(ctx context.Context) error
	reloads  int
}

func (m *mockProvider) Snapshot() *smconfig.Snapshot { return m.snap }

func (m *mockProvider) ForceReload(ctx context.Context) error {
	m.reloads++
	if m.reloadFn != nil {
		if err := m.reloadFn(ctx); err != nil {
			return err
		}
	}
	if m.next != nil {
		m.snap = m.next
	}
	return nil
}

// --- Test Helpers ---

func newTestApp(p ConfigProvider) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app, nil, p, NewConfigHandler(zap.NewNop(), p, 0))
	return app
}

func snapshotOf(pairs ...string) *smconfig.Snapshot {
	var entries []smconfig.Entry
	for i := 0; i+1 < len(pairs); i += 2 {
		entries = append(entries, smconfig.Entry{Key: pairs[i], Value: pairs[i+1]})
	}
	return smconfig.NewSnapshot(entries)
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, v), string(body))
}

// --- Tests ---

func TestListKeys_ReturnsNamesNotValues(t *testing.T) {
	app := newTestApp(&mockProvider{snap: snapshotOf("db:user", "a", "db:pass", "hunter2")})

	resp, err := app.Test(newRequest("GET", "/api/v1/keys"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body model.KeysResponse
	decode(t, resp, &body)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, []string{"db:pass", "db:user"}, body.Keys)
	assert.False(t, body.LoadedAt.IsZero())
}

func TestListKeys_NotLoaded(t *testing.T) {
	app := newTestApp(&mockProvider{})

	resp, err := app.Test(newRequest("GET", "/api/v1/keys"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestReload_Changed(t *testing.T) {
	p := &mockProvider{
		snap: snapshotOf("a", "1"),
		next: snapshotOf("a", "2", "b", "3"),
	}
	app := newTestApp(p)

	resp, err := app.Test(newRequest("POST", "/api/v1/reload"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, p.reloads)

	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, true, body["changed"])
	assert.EqualValues(t, 2, body["key_count"])
}

func TestReload_Unchanged(t *testing.T) {
	app := newTestApp(&mockProvider{snap: snapshotOf("a", "1")})

	resp, err := app.Test(newRequest("POST", "/api/v1/reload"))
	require.NoError(t, err)

	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, false, body["changed"])
}

func TestReload_StoreFailureIsBadGateway(t *testing.T) {
	p := &mockProvider{
		snap: snapshotOf("a", "1"),
		reloadFn: func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			if !hasDeadline {
				return errors.New("expected a deadline")
			}
			return errors.New("list secrets: AccessDeniedException")
		},
	}
	app := newTestApp(p)

	resp, err := app.Test(newRequest("POST", "/api/v1/reload"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)

	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "list secrets: AccessDeniedException", body["error"])
}

func TestHealth(t *testing.T) {
	resp, err := newTestApp(&mockProvider{snap: snapshotOf("a", "1")}).Test(newRequest("GET", "/health"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = newTestApp(&mockProvider{}).Test(newRequest("GET", "/health"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "not loaded", body.Checks["config"])
	assert.NotContains(t, body.Checks, "nats")
}

func TestMetricsEndpoint(t *testing.T) {
	resp, err := newTestApp(&mockProvider{}).Test(newRequest("GET", "/metrics"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func newRequest(method, target string) *http.Request {
	req, _ := http.NewRequest(method, target, nil)
	return req
}
