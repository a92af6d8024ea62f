package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/nss-ldap/internal/config"
	"github.com/isometry/nss-ldap/internal/nss"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ldap.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// closedPort returns a local port with no listener.
func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--log-level", "off"}, args...))

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func exitCodeOf(err error) int {
	var exitErr ExitCode
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if err != nil {
		return 1
	}
	return 0
}

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, 0, exitCodeFor(nss.StatusSuccess))
	assert.Equal(t, 2, exitCodeFor(nss.StatusNotFound))
	assert.Equal(t, 3, exitCodeFor(nss.StatusTryAgain))
	assert.Equal(t, 1, exitCodeFor(nss.StatusUnavailable))
}

func TestStatusError(t *testing.T) {
	assert.NoError(t, statusError(nil, nss.StatusUnavailable))

	cause := nss.NewError("getpwnam", nss.StatusNotFound, "no matching entry", nil)
	err := statusError(cause, nss.StatusNotFound)

	var exitErr ExitCode
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, exitNotFound, exitErr.Code)
	assert.True(t, exitErr.Quiet)
	assert.ErrorIs(t, err, nss.ErrNotFound)
}

func TestConfigCommand(t *testing.T) {
	path := writeConfig(t, `# test configuration
host ldap1.example.com ldap2.example.com
base dc=example,dc=com
binddn cn=proxy,dc=example,dc=com
bindpw hunter2
scope one
timelimit 5
crypt md5
`)

	stdout, stderr, err := execute(t, "--config", path, "config")
	require.NoError(t, err)

	assert.Equal(t, `host ldap1.example.com ldap2.example.com
base dc=example,dc=com
port 389
scope one
ssl off
binddn cn=proxy,dc=example,dc=com
bindpw ********
timelimit 5
bind_timelimit 30
# userPassword values use the {MD5} prefix
crypt md5
`, stdout)
	assert.NotContains(t, stdout, "hunter2")
	assert.Contains(t, stderr, "buffer bytes used")
}

func TestConfigCommand_Errors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		args     []string
		wantCode int
	}{
		{
			name:     "missing base",
			content:  "host ldap1.example.com\n",
			wantCode: exitNotFound,
		},
		{
			name:     "buffer too small",
			content:  "host ldap1.example.com\nbase dc=example,dc=com\n",
			args:     []string{"--buffer", "8"},
			wantCode: exitTryAgain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			args := append([]string{"--config", path}, tt.args...)

			_, _, err := execute(t, append(args, "config")...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, exitCodeOf(err))
		})
	}

	_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.conf"), "config")
	assert.Equal(t, exitUnavailable, exitCodeOf(err))
}

func TestLookupCommands_Unavailable(t *testing.T) {
	path := writeConfig(t, fmt.Sprintf("host 127.0.0.1:%d\nbase dc=example,dc=com\nbind_timelimit 2\n", closedPort(t)))

	for _, args := range [][]string{
		{"passwd", "alice"},
		{"passwd", "1001"},
		{"group", "staff"},
		{"hosts", "web01"},
		{"hosts", "192.0.2.10"},
	} {
		t.Run(args[0]+" "+args[1], func(t *testing.T) {
			stdout, _, err := execute(t, append([]string{"--config", path}, args...)...)
			require.Error(t, err)
			assert.Equal(t, exitUnavailable, exitCodeOf(err))
			assert.Empty(t, stdout)
		})
	}
}

func TestLookupCommands_IncompleteConfig(t *testing.T) {
	path := writeConfig(t, "host ldap1.example.com\n")

	stdout, _, err := execute(t, "--config", path, "passwd", "alice")
	require.Error(t, err)
	assert.Empty(t, stdout)

	var exitErr ExitCode
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, exitNotFound, exitErr.Code)
	assert.False(t, exitErr.Quiet, "a missing base must be reported")
	assert.Contains(t, err.Error(), "host and base must be configured")
}

func TestConfigError(t *testing.T) {
	assert.NoError(t, configError(nil))

	err := configError(nss.NewError("readconfig", nss.StatusTryAgain, "scratch buffer exhausted", nil))
	var exitErr ExitCode
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, exitTryAgain, exitErr.Code)
	assert.False(t, exitErr.Quiet)
}

func TestLookupCommands_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "host ldap1.example.com\nbase example.com\n")

	_, _, err := execute(t, "--config", path, "passwd", "alice")
	require.Error(t, err)
	assert.Equal(t, exitUnavailable, exitCodeOf(err))
}

func TestLookup_GrowsBuffer(t *testing.T) {
	opts := &options{bufferSize: 4, maxBufferSize: 256}

	var sizes []int
	name, err := lookup(opts, func(buf *nss.Buffer) (string, error) {
		sizes = append(sizes, buf.Cap())
		return buf.Put("a-rather-long-name")
	})
	require.NoError(t, err)
	assert.Equal(t, "a-rather-long-name", name)
	assert.Equal(t, []int{4, 64}, sizes)
}

func TestLookup_StopsAtMaximum(t *testing.T) {
	opts := &options{bufferSize: 4, maxBufferSize: 8}

	var sizes []int
	_, err := lookup(opts, func(buf *nss.Buffer) (string, error) {
		sizes = append(sizes, buf.Cap())
		return buf.Put("a-rather-long-name")
	})
	require.Error(t, err)
	assert.Equal(t, exitTryAgain, exitCodeOf(err))
	assert.Equal(t, []int{4, 8}, sizes)
}

func TestInvalidLogLevel(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--log-level", "loud", "--config", config.DefaultPath, "config"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
