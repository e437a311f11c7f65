package cli

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	tests := []struct {
		name    string
		version string
	}{
		{name: "injected", version: "1.2.0"},
		{name: "development build", version: "dev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := version
			defer func() { version = original }()
			SetVersion(tt.version)

			out, err := execute(t, "", "version")

			require.NoError(t, err)
			assert.Contains(t, out, "vidrag version "+tt.version)
			assert.Contains(t, out, runtime.GOOS+"/"+runtime.GOARCH)
		})
	}
}

func TestVersionCmd_RejectsArgs(t *testing.T) {
	_, err := execute(t, "", "version", "extra")

	assert.Error(t, err)
}
