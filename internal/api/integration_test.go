//go:build integration

package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/siamese/internal/cache"
	"github.com/saturnino-fabrica-de-software/siamese/internal/database"
	"github.com/saturnino-fabrica-de-software/siamese/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/siamese/internal/repository"
	"github.com/saturnino-fabrica-de-software/siamese/internal/service"
)

var testDB *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "siamese_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Printf("Failed to start container: %v\n", err)
		os.Exit(1)
	}

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432")
	connStr := fmt.Sprintf("postgres://test:test@%s:%s/siamese_test?sslmode=disable", host, port.Port())

	code, err := run(ctx, m, connStr)
	if err != nil {
		fmt.Printf("Failed to prepare database: %v\n", err)
		code = 1
	}

	if err := container.Terminate(ctx); err != nil {
		fmt.Printf("Failed to terminate container: %v\n", err)
	}
	os.Exit(code)
}

func run(ctx context.Context, m *testing.M, connStr string) (int, error) {
	sqlDB, err := database.NewPool(database.DefaultPoolConfig(connStr))
	if err != nil {
		return 1, err
	}
	migrator, err := database.NewMigrator(sqlDB, "siamese_test", nil)
	if err != nil {
		return 1, err
	}
	if err := migrator.Up(); err != nil {
		return 1, err
	}
	_ = migrator.Close()

	testDB, err = database.NewPgxPool(ctx, database.DefaultPoolConfig(connStr))
	if err != nil {
		return 1, err
	}
	defer testDB.Close()

	return m.Run(), nil
}

func newIntegrationRouter(t *testing.T) *Router {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	embedder, err := cache.NewEmbedder(mock.New(), 64, cache.NewPGStore(testDB), logger)
	require.NoError(t, err)

	svc, err := service.NewSiameseService(
		embedder,
		repository.NewClassifierRepository(testDB),
		repository.NewObservationRepository(testDB),
		repository.NewDecisionRepository(testDB),
		service.Options{HistogramBins: 5},
		logger,
	)
	require.NoError(t, err)

	router := NewRouter(logger, &Dependencies{Service: svc, DB: testDB, MetricsEnabled: true})
	router.Setup()
	return router
}

func image(identity, variant string) string {
	return base64.StdEncoding.EncodeToString([]byte(identity + "\n" + variant + " portrait"))
}

func TestIntegration_ReadyEndpoint(t *testing.T) {
	router := newIntegrationRouter(t)

	resp, err := router.App().Test(httptest.NewRequest("GET", "/ready", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestIntegration_FitVerifyDelete(t *testing.T) {
	router := newIntegrationRouter(t)
	app := router.App()

	var pairs []map[string]any
	for _, who := range []string{"alice", "bob", "carol"} {
		pairs = append(pairs, map[string]any{"first": image(who, "front"), "second": image(who, "side"), "same": true})
	}
	pairs = append(pairs,
		map[string]any{"first": image("alice", "front"), "second": image("bob", "front"), "same": false},
		map[string]any{"first": image("bob", "side"), "second": image("carol", "front"), "same": false},
		map[string]any{"first": image("carol", "side"), "second": image("alice", "side"), "same": false},
	)
	body, err := json.Marshal(map[string]any{"pairs": pairs})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/v1/classifiers/faces/fit", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	var fitted struct {
		Threshold    float64 `json:"threshold"`
		Accuracy     float64 `json:"accuracy"`
		Observations int     `json:"observations"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fitted))
	assert.Equal(t, 6, fitted.Observations)
	assert.Equal(t, 1.0, fitted.Accuracy)

	// verify two unseen variants of the same identity
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for field, content := range map[string]string{"image1": "alice\nprofile portrait", "image2": "alice\nlow light portrait"} {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="%s.jpg"`, field, field))
		h.Set("Content-Type", "image/jpeg")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req = httptest.NewRequest("POST", "/v1/classifiers/faces/verify", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var decision struct {
		Same      bool    `json:"same"`
		Threshold float64 `json:"threshold"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decision))
	assert.True(t, decision.Same)
	assert.Equal(t, fitted.Threshold, decision.Threshold)

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/classifiers/faces/decisions", nil), -1)
	require.NoError(t, err)
	var log struct {
		Decisions []struct {
			Classifier string `json:"classifier"`
		} `json:"decisions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&log))
	require.Len(t, log.Decisions, 1)
	assert.Equal(t, "faces", log.Decisions[0].Classifier)

	resp, err = app.Test(httptest.NewRequest("POST", "/v1/classifiers/faces/histogram", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/v1/classifiers/faces", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/classifiers/faces", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
