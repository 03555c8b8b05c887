package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerRoutesBySeverity(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewLoggerTo(&out, &errOut)

	l.Info("stack ready")
	l.Warn("queue full")
	l.Event("ITEM_CONSUMED", "SYSTEM_ACTIVE", "BOOK#3")
	l.Errorf("persist failed: %v", "disk")

	assert.Contains(t, out.String(), "[BACKLOG-INFO] ")
	assert.Contains(t, out.String(), "stack ready")
	assert.Contains(t, out.String(), "[BACKLOG-WARN] ")
	assert.Contains(t, out.String(), "[EVENT:ITEM_CONSUMED] Actor:SYSTEM_ACTIVE | BOOK#3")
	assert.Contains(t, errOut.String(), "persist failed: disk")
	assert.NotContains(t, out.String(), "persist failed")
}
