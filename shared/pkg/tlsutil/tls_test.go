package tlsutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClientTLSConfig(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "client.crt")
	keyFile := filepath.Join(dir, "client.key")
	require.NoError(t, GenerateSelfSignedCert(certFile, keyFile, "reaper", "10.0.0.5", "admin.internal"))

	cfg, err := LoadClientTLSConfig(Config{CertFile: certFile, KeyFile: keyFile, CAFile: certFile})
	require.NoError(t, err)
	assert.Len(t, cfg.Certificates, 1)
	assert.NotNil(t, cfg.RootCAs)
}

func TestLoadClientTLSConfigErrors(t *testing.T) {
	_, err := LoadClientTLSConfig(Config{CertFile: "only-cert.pem"})
	assert.Error(t, err)

	_, err = LoadClientTLSConfig(Config{CAFile: filepath.Join(t.TempDir(), "missing.pem")})
	assert.Error(t, err)
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.True(t, Config{CAFile: "ca.pem"}.Enabled())
}
