package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"100", 100},
		{"100B", 100},
		{"1K", 1024},
		{"1KB", 1024},
		{"500M", 500 << 20},
		{"500mb", 500 << 20},
		{"2G", 2 << 30},
		{"2GB", 2 << 30},
		{"1T", 1 << 40},
		{"1.5K", 1536},
		{" 2 GB ", 2 << 30},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSizeInvalid(t *testing.T) {
	for _, in := range []string{"", "abc", "G", "12X"} {
		_, err := ParseSize(in)
		assert.Error(t, err, in)
	}
}
