package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefix(t *testing.T) {
	tests := []struct {
		i, n int
		name string
		want string
	}{
		{i: 0, n: 1, name: "test.zip", want: `[1/1] "test.zip" - `},
		{i: 2, n: 10, name: "path/to/test.zip", want: `[3/10] "test.zip" - `},
		{i: 0, n: 1, name: "a-very-long-archive-name-that-goes-on.zip", want: `[1/1] "a-very-long-archive-name-that-..." - `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Prefix(tt.i, tt.n, tt.name))
		})
	}
}
