package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBump(t *testing.T) {
	tests := []struct {
		name  string
		in    any
		delta int
		want  any
	}{
		{"int", 2, 1, 3},
		{"int64", int64(2), -1, int64(1)},
		{"float", 1.5, 1, 2.5},
		{"missing", nil, -1, int64(-1)},
		{"string", "high", 1, int64(1)},
		{"uint floor", uint64(0), -1, uint64(0)},
		{"uint", uint64(4), -1, uint64(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Bump(tt.in, tt.delta))
		})
	}
}
