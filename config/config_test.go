package config_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/cardano-ibc/gateway/config"
)

var (
	policyA = strings.Repeat("aa", 28)
	policyB = strings.Repeat("bb", 28)
	script  = strings.Repeat("cc", 28)
)

const deployment = `
chain_id = "cardano-preview"

[server]
grpc_address = "0.0.0.0:5001"

[deployment]
handler_token = "%[1]s.68616e646c6572"
host_state_token = "%[1]s.686f7374"
client_policy = "%[2]s"
connection_policy = "%[2]s"
channel_policy = "%[2]s"
verify_proof_policy = "%[2]s"

[deployment.handler]
script_hash = "%[3]s"
address = "addr_test1handler"

[deployment.host_state]
script_hash = "%[3]s"
address = "addr_test1host"

[deployment.client]
script_hash = "%[3]s"
address = "addr_test1client"

[deployment.connection]
script_hash = "%[3]s"
address = "addr_test1connection"

[deployment.channel]
script_hash = "%[3]s"
address = "addr_test1channel"

[deployment.modules.port-100]
port = 100
token = "%[1]s.7472616e73666572"
script_hash = "%[3]s"
address = "addr_test1transfer"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(viper.New(), "")
	require.NoError(t, err)

	def := config.Default()
	require.Equal(t, def.ChainID, cfg.ChainID)
	require.Equal(t, def.Server, cfg.Server)
	require.Equal(t, def.Mithril, cfg.Mithril)
	require.Equal(t, def.Builder, cfg.Builder)
	require.Equal(t, def.DBSync, cfg.DBSync)
	require.Equal(t, def.Cache, cfg.Cache)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, fmt.Sprintf(deployment, policyA, policyB, script))
	t.Setenv("GATEWAY_SERVER_GATEWAY_ADDRESS", "0.0.0.0:1318")
	t.Setenv("GATEWAY_MITHRIL_TIMEOUT", "2s")
	t.Setenv("GATEWAY_LOG_LEVEL", "debug")

	cfg, err := config.Load(viper.New(), path)
	require.NoError(t, err)
	require.Equal(t, "cardano-preview", cfg.ChainID)
	require.Equal(t, "0.0.0.0:5001", cfg.Server.GRPCAddress)
	require.Equal(t, "0.0.0.0:1318", cfg.Server.GatewayAddress)
	require.Equal(t, config.Default().Server.MetricsAddress, cfg.Server.MetricsAddress)
	require.Equal(t, 2*time.Second, cfg.Mithril.Timeout)
	require.Equal(t, "debug", cfg.Log.Level)

	d, err := cfg.Deployment.Deployment()
	require.NoError(t, err)
	require.Equal(t, []byte("handler"), d.HandlerToken.Name)
	require.Equal(t, "addr_test1channel", d.Channel.Address)
	require.Len(t, d.VerifyProofPolicy, 28)
	require.Contains(t, d.Modules, "port-100")
	require.EqualValues(t, 100, d.Modules["port-100"].Port)
	require.Equal(t, []byte("transfer"), d.Modules["port-100"].Token.Name)
}

func TestLoadInvalid(t *testing.T) {
	path := writeConfig(t, "[log]\nlevel = \"loud\"\n")
	_, err := config.Load(viper.New(), path)
	require.ErrorContains(t, err, "log.level")

	_, err = config.Load(viper.New(), filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestDeploymentErrors(t *testing.T) {
	_, err := config.Default().Deployment.Deployment()
	require.ErrorContains(t, err, "handler_token")

	_, err = config.ParseToken(policyA)
	require.Error(t, err)
	_, err = config.ParseToken("abcd.00")
	require.ErrorContains(t, err, "expected 28 bytes")
	token, err := config.ParseToken(policyA + ".")
	require.NoError(t, err)
	require.Empty(t, token.Name)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.DefaultFileName)
	require.NoError(t, config.WriteFile(path, config.Default()))
	require.Error(t, config.WriteFile(path, config.Default()))

	cfg, err := config.Load(viper.New(), path)
	require.NoError(t, err)
	require.Equal(t, config.Default().Builder, cfg.Builder)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := config.LogConfig{Level: "warn", JSON: true}.Logger(&buf)
	require.NoError(t, err)
	logger.Info("dropped")
	logger.Warn("kept", "module", "config")
	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), `"module":"config"`)

	_, err = config.LogConfig{Level: "loud"}.Logger(&buf)
	require.Error(t, err)
}
