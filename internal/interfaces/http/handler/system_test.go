package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogsync/backend/internal/interfaces/http/dto"
	"github.com/catalogsync/backend/internal/interfaces/http/router"
)

func newSystemEngine(h *SystemHandler) *gin.Engine {
	engine := gin.New()
	h.RegisterProbes(engine)
	router.NewRouter(engine).Register(h).Setup()
	return engine
}

func TestSystemHandler_Health(t *testing.T) {
	engine := newSystemEngine(NewSystemHandler("catalogsync", "1.0.0", nil))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSystemHandler_Ready(t *testing.T) {
	healthy := func(context.Context) error { return nil }

	t.Run("all dependencies up", func(t *testing.T) {
		engine := newSystemEngine(NewSystemHandler("catalogsync", "1.0.0", map[string]ReadinessCheck{
			"database": healthy,
			"redis":    healthy,
		}))
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok","redis":"ok"}}`, w.Body.String())
	})

	t.Run("one dependency down", func(t *testing.T) {
		engine := newSystemEngine(NewSystemHandler("catalogsync", "1.0.0", map[string]ReadinessCheck{
			"database": healthy,
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		}))
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "unavailable", resp.Status)
		assert.Equal(t, "connection refused", resp.Checks["redis"])
		assert.Equal(t, "ok", resp.Checks["database"])
	})
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	engine := newSystemEngine(NewSystemHandler("catalogsync", "1.2.3", nil))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/system/info", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, "catalogsync", data["name"])
	assert.Equal(t, "1.2.3", data["version"])
	assert.NotEmpty(t, data["go_version"])
}
