package ldap

import (
	"context"
	"os"
	"testing"

	krb5config "github.com/jcmturner/gokrb5/v8/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRuntimeKrb5Conf(t *testing.T) {
	conf, err := generateRuntimeKrb5Conf("example.com")
	require.NoError(t, err)

	parsed, err := krb5config.NewFromString(conf)
	require.NoError(t, err)

	assert.Equal(t, "EXAMPLE.COM", parsed.LibDefaults.DefaultRealm)
	assert.True(t, parsed.LibDefaults.DNSLookupKDC)
	assert.False(t, parsed.LibDefaults.DNSLookupRealm)
	assert.Equal(t, "EXAMPLE.COM", parsed.DomainRealm[".example.com"])

	_, err = generateRuntimeKrb5Conf("")
	assert.Error(t, err)
}

func TestWriteRuntimeKrb5Conf(t *testing.T) {
	path, cleanup, err := writeRuntimeKrb5Conf(context.Background(), "EXAMPLE.COM")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "default_realm = EXAMPLE.COM")

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
