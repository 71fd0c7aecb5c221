package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStopSeenKey(t *testing.T) {
	tests := []struct {
		name string
		stop string
		want string
	}{
		{name: "plain", stop: "Rondo Kaponiera", want: "stopwatch:stop:seen:rondo kaponiera"},
		{name: "padded", stop: "  Bałtyk ", want: "stopwatch:stop:seen:bałtyk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StopSeenKey(tt.stop))
		})
	}
}

func TestFixedKeys(t *testing.T) {
	assert.Equal(t, "stopwatch:proxies", ProxiesKey())
	assert.Equal(t, "stopwatch:stops:usage", StopUsageKey())
}
