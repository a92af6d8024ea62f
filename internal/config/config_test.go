package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, ScopeSubtree, cfg.Scope)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, SSLOff, cfg.SSL)
	assert.Equal(t, 30*time.Second, cfg.BindTimeLimit)
	assert.Zero(t, cfg.TimeLimit)
	assert.False(t, cfg.HasHost())
	assert.False(t, cfg.HasBase())
	assert.Empty(t, cfg.Servers())
}

func TestScope(t *testing.T) {
	tests := []struct {
		text    string
		want    Scope
		wantOK  bool
		wantStr string
	}{
		{"sub", ScopeSubtree, true, "sub"},
		{"one", ScopeOneLevel, true, "one"},
		{"base", ScopeBase, true, "base"},
		{"subtree", ScopeSubtree, false, "sub"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ParseScope(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantStr, got.String())

			var s Scope
			err := s.UnmarshalText([]byte(tt.text))
			if tt.wantOK {
				require.NoError(t, err)
				assert.Equal(t, tt.want, s)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestCryptScheme(t *testing.T) {
	tests := []struct {
		text       string
		want       CryptScheme
		wantOK     bool
		wantPrefix string
	}{
		{"md5", CryptMD5, true, "{MD5}"},
		{"sha", CryptSHA, true, "{SHA}"},
		{"des", CryptUnix, true, "{CRYPT}"},
		{"MD5", CryptUnset, false, ""},
		{"", CryptUnset, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ParseCryptScheme(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantPrefix, got.Prefix())
		})
	}
}

func TestSSLMode(t *testing.T) {
	mode, ok := ParseSSLMode("start_tls")
	assert.True(t, ok)
	assert.Equal(t, SSLStartTLS, mode)
	assert.Equal(t, "start_tls", mode.String())

	_, ok = ParseSSLMode("yes")
	assert.False(t, ok)

	var m SSLMode
	require.NoError(t, m.UnmarshalText([]byte("on")))
	assert.Equal(t, SSLOn, m)
}

func TestConfig_Servers(t *testing.T) {
	cfg := &Config{Host: " ldap1 \tldap2:1389  ldaps://ldap3 "}
	assert.Equal(t, []string{"ldap1", "ldap2:1389", "ldaps://ldap3"}, cfg.Servers())
}
