package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

var _ Logger = (*SlogAdapter)(nil)

func TestNewSlogAdapter_NilUsesDefault(t *testing.T) {
	adapter := NewSlogAdapter(nil)
	assert.Same(t, slog.Default(), adapter.logger)
}

func TestSlogAdapter_Levels(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	adapter.Debug("discovery cached", "issuer", "https://accounts.google.com")
	adapter.Info("sign-in started")
	adapter.Warn("sign-in failed", "result", "failure")
	adapter.Error("userinfo undecodable")

	out := buf.String()
	assert.Contains(t, out, `level=DEBUG msg="discovery cached" issuer=https://accounts.google.com`)
	assert.Contains(t, out, `level=INFO msg="sign-in started"`)
	assert.Contains(t, out, `level=WARN msg="sign-in failed" result=failure`)
	assert.Contains(t, out, `level=ERROR msg="userinfo undecodable"`)
}
