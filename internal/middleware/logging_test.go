package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRequest(t *testing.T) {
	hook := logtest.NewGlobal()
	prevLevel := logrus.GetLevel()
	logrus.SetLevel(logrus.TraceLevel)
	t.Cleanup(func() {
		logrus.SetLevel(prevLevel)
		hook.Reset()
	})

	r := mux.NewRouter()
	r.Use(LogRequest())
	r.HandleFunc("/sessions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).Methods("GET").Name("get-session")
	r.HandleFunc("/boom", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}).Methods("GET")

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/sessions/s-7", nil))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.TraceLevel, entry.Level)
	assert.Equal(t, "get-session", entry.Data["route"])
	assert.Equal(t, "s-7", entry.Data["session"])
	assert.Equal(t, http.StatusNotFound, entry.Data["status"])

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/boom", nil))
	entry = hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "/boom", entry.Data["route"])
	assert.NotContains(t, entry.Data, "session")
	assert.Len(t, hook.AllEntries(), 2)
}
