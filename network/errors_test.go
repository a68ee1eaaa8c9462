package network

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/MixinNetwork/telemetry/config"
	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	assert := assert.New(t)

	err := error(newError(ErrConnect, "quic.Dial(%s) => %w", "127.0.0.1:4433", context.DeadlineExceeded))
	assert.Equal("connect failed: quic.Dial(127.0.0.1:4433) => context deadline exceeded", err.Error())
	assert.True(errors.Is(err, ErrConnect))
	assert.True(errors.Is(err, context.DeadlineExceeded))
	assert.False(errors.Is(err, ErrBind))

	var ne *Error
	assert.True(errors.As(err, &ne))
	assert.Equal(ErrConnect, ne.Kind)
}

func TestConfigErrorKind(t *testing.T) {
	assert := assert.New(t)

	file := filepath.Join(t.TempDir(), "config.toml")
	for _, data := range []string{"[server]\ncert = \"server.crt\"\n", "[server]\nkey = \"server.key\"\n"} {
		assert.Nil(os.WriteFile(file, []byte(data), 0600))
		_, err := config.Initialize(file)
		assert.ErrorIs(err, ErrConfig)
	}

	custom, err := config.Initialize("")
	assert.Nil(err)
	custom.Server.Key = "server.key"
	assert.ErrorIs(custom.Validate(), ErrConfig)

	_, err = LoadCertificate("", "")
	assert.ErrorIs(err, ErrConfig)
}
