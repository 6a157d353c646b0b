package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type recordingLogger struct {
	entries []logEntry
}

type logEntry struct {
	msg    string
	fields []interface{}
}

func (l *recordingLogger) record(msg string, kv []interface{}) {
	l.entries = append(l.entries, logEntry{msg: msg, fields: kv})
}

func (l *recordingLogger) Debug(msg string, kv ...interface{}) { l.record(msg, kv) }
func (l *recordingLogger) Info(msg string, kv ...interface{})  { l.record(msg, kv) }
func (l *recordingLogger) Warn(msg string, kv ...interface{})  { l.record(msg, kv) }
func (l *recordingLogger) Error(msg string, kv ...interface{}) { l.record(msg, kv) }
func (l *recordingLogger) Fatal(msg string, kv ...interface{}) { l.record(msg, kv) }

func (l *recordingLogger) field(key string) (interface{}, bool) {
	if len(l.entries) == 0 {
		return nil, false
	}
	fields := l.entries[len(l.entries)-1].fields
	for i := 0; i+1 < len(fields); i += 2 {
		if fields[i] == key {
			return fields[i+1], true
		}
	}
	return nil, false
}

func TestRequestLoggerEmitsStructuredEntry(t *testing.T) {
	gin.SetMode(gin.TestMode)

	log := &recordingLogger{}
	router := gin.New()
	router.Use(RequestLogger(log))
	router.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping?v=1", nil)
	router.ServeHTTP(w, req)

	if len(log.entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(log.entries))
	}

	if method, _ := log.field("method"); method != http.MethodGet {
		t.Errorf("method = %v, want GET", method)
	}
	if path, _ := log.field("path"); path != "/ping?v=1" {
		t.Errorf("path = %v, want /ping?v=1", path)
	}
	if status, _ := log.field("status"); status != http.StatusNoContent {
		t.Errorf("status = %v, want %d", status, http.StatusNoContent)
	}
	if _, ok := log.field("latency"); !ok {
		t.Error("latency field is missing")
	}
}
