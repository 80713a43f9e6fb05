package runtime

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harshpreetweb3/insurance-dao/internal/app"
	"github.com/harshpreetweb3/insurance-dao/internal/app/events"
	"github.com/harshpreetweb3/insurance-dao/internal/config"
	"github.com/harshpreetweb3/insurance-dao/pkg/logger"
)

func TestNewApplicationInMemory(t *testing.T) {
	t.Setenv("AUTH_DISABLED", "true")
	t.Setenv("DATABASE_DSN", "")

	a, err := NewApplication()
	require.NoError(t, err)
	require.Nil(t, a.db)
	require.NotNil(t, a.httpServer)
}

func TestServerRoutes(t *testing.T) {
	t.Setenv("AUTH_DISABLED", "true")
	cfg, err := config.Load()
	require.NoError(t, err)

	application, err := app.New(app.Stores{}, app.Options{}, nil)
	require.NoError(t, err)
	hub := events.NewHub(nil)

	srv := httptest.NewServer(buildServer(cfg, application, hub, logger.NewDefault("test")).Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/organizations")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
