package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entrepreneursim/configs"
	"entrepreneursim/internal/adapter/backend"
	"entrepreneursim/internal/notifier"
	"entrepreneursim/internal/repository"
	"entrepreneursim/internal/session"
)

func TestHealthReportsStoreAndEvents(t *testing.T) {
	sealer, err := session.NewRandomSealer()
	require.NoError(t, err)
	sessions := session.NewManager(backend.NewClient("http://127.0.0.1:0", time.Second),
		repository.NewMemoryCredentialRepository(), sealer, session.Options{})
	hub := notifier.New(notifier.SourceFunc(func(context.Context) (notifier.Stream, error) {
		return nil, errors.New("offline")
	}))
	sessions.New()

	rec := httptest.NewRecorder()
	opsRouter(sessions, hub).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["store"])
	assert.Equal(t, "disconnected", body["events"])
	assert.EqualValues(t, 1, body["sessions"])
}

func TestOpenCredentialStore(t *testing.T) {
	store, closeStore, err := openCredentialStore(context.Background(), &configs.Config{})
	require.NoError(t, err)
	defer closeStore()
	assert.IsType(t, &repository.MemoryCredentialRepository{}, store)

	_, _, err = openCredentialStore(context.Background(), &configs.Config{
		Session: configs.SessionConfig{Store: "etcd"},
	})
	assert.Error(t, err)
}

func TestNewSealerFallsBackToRandomKey(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s, err := newSealer("", logrus.NewEntry(logger))
	require.NoError(t, err)
	sealed, err := s.Seal("sid", "token")
	require.NoError(t, err)
	token, err := s.Open("sid", sealed)
	require.NoError(t, err)
	assert.Equal(t, "token", token)
}
