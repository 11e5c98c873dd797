package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/user"
)

func newObservedLogger() (*RollbarLogger, *observer.ObservedLogs) {
	obs, logs := observer.New(zapcore.DebugLevel)
	return NewRollbarLogger(zap.New(obs), core.NewTestConfig()), logs
}

func TestRollbarLogger(t *testing.T) {
	usr := user.User{ID: "42", Name: "Joe", Email: "joe@x.com"}
	boom := errors.New("boom")

	tests := []struct {
		name      string
		log       func(l *RollbarLogger)
		wantLevel zapcore.Level
		wantKeys  []string
	}{
		{
			name:      "debug without args",
			log:       func(l *RollbarLogger) { l.Debug("hello") },
			wantLevel: zapcore.DebugLevel,
		},
		{
			name:      "info with user",
			log:       func(l *RollbarLogger) { l.Info("logged in", usr) },
			wantLevel: zapcore.InfoLevel,
			wantKeys:  []string{"user_id"},
		},
		{
			name:      "warn with extra data",
			log:       func(l *RollbarLogger) { l.Warn("slow", map[string]interface{}{"took": 3}) },
			wantLevel: zapcore.WarnLevel,
			wantKeys:  []string{"took"},
		},
		{
			name:      "error with error and user",
			log:       func(l *RollbarLogger) { l.Error("failed", boom, usr, usr) },
			wantLevel: zapcore.ErrorLevel,
			wantKeys:  []string{"error", "user_id"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, logs := newObservedLogger()
			tt.log(l)

			entries := logs.AllUntimed()
			if assert.Len(t, entries, 1) {
				entry := entries[0]
				assert.Equal(t, tt.wantLevel, entry.Level)
				keys := make([]string, 0, len(entry.Context))
				for _, f := range entry.Context {
					keys = append(keys, f.Key)
				}
				assert.ElementsMatch(t, tt.wantKeys, keys)
			}
		})
	}
}

func TestRollbarLoggerDisabledInTestMode(t *testing.T) {
	l, _ := newObservedLogger()
	assert.False(t, l.enabled)
}
