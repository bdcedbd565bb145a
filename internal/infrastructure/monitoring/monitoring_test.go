package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/config"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/constants"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

func TestZapLogger_FieldsAndContext(t *testing.T) {
	level := zap.NewAtomicLevelAt(zapcore.DebugLevel)
	core, logs := observer.New(level)
	log := newZapLogger(core, level)

	ctx := context.WithValue(context.Background(), constants.ContextKeyRequestID, "req-1")
	log.WithFields(logger.Fields{"component": "test"}).Info(ctx, "hello", logger.Fields{"user_id": 42})
	log.Error(ctx, "boom", errors.New("kaput"))

	entries := logs.All()
	require.Len(t, entries, 2)

	fields := entries[0].ContextMap()
	assert.Equal(t, "hello", entries[0].Message)
	assert.Equal(t, "test", fields["component"])
	assert.EqualValues(t, 42, fields["user_id"])
	assert.Equal(t, "req-1", fields["request_id"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "kaput", entries[1].ContextMap()["error"])
}

func TestZapLogger_SetLevel(t *testing.T) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	core, logs := observer.New(level)
	log := newZapLogger(core, level)

	log.Debug(context.Background(), "hidden")
	log.SetLevel("debug")
	log.Debug(context.Background(), "visible")
	log.SetLevel("nonsense")

	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "info", log.Level())
}

func TestZapLogger_ForContext(t *testing.T) {
	log, err := NewZapLogger(&config.LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)

	scoped := logger.NewNoopLogger()
	ctx := context.WithValue(context.Background(), constants.ContextKeyLogger, scoped)
	assert.Same(t, scoped, log.ForContext(ctx))
	assert.Same(t, log, log.ForContext(context.Background()))
}

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordTokenIssue(true)
	m.RecordTokenVerification("remote", "token_expired")
	m.RecordPublicKeyFetch(false, 20*time.Millisecond)
	m.RecordAuthorizationDenied("forbidden")
	m.RecordRateLimitHit("login")
	m.RecordHTTPRequest("GET", "/auth/me", 401, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokensIssued.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenVerifications.WithLabelValues("remote", "token_expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublicKeyFetches.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthorizationDenied.WithLabelValues("forbidden")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitHits.WithLabelValues("login")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/auth/me", "401")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordTokenIssue(false)
		m.RecordTokenVerification("local", "success")
		m.RecordPublicKeyFetch(true, time.Second)
		m.RecordAuthorizationDenied("unauthenticated")
		m.RecordRateLimitHit("register")
		m.RecordHTTPRequest("POST", "/auth/login", 200, time.Second)
	})
}

func TestTracingManager_Disabled(t *testing.T) {
	tm, err := NewTracingManager(&config.TracingConfig{Enabled: false}, logger.NewNoopLogger())
	require.NoError(t, err)

	ctx, span := tm.StartSpan(context.Background(), "op")
	RecordSpanError(ctx, errors.New("ignored"))
	span.End()
	assert.NoError(t, tm.Shutdown(context.Background()))
}
