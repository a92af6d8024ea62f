package ldap

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldap/v3/gssapi"
	"github.com/hashicorp/terraform-plugin-log/tflog"
	krb5client "github.com/jcmturner/gokrb5/v8/client"
)

const defaultKrb5Conf = "/etc/krb5.conf"

// kerberosSettings is the resolved Kerberos identity for a GSSAPI bind.
type kerberosSettings struct {
	principal string
	realm     string
	password  string
	keytab    string
	ccache    string
	krb5conf  string

	// discoverKDC is set when no krb5.conf exists and one must be generated.
	discoverKDC bool
}

// performKerberosAuth performs a SASL GSSAPI bind on an LDAP connection.
func performKerberosAuth(ctx context.Context, conn *ldap.Conn, cfg *ConnectionConfig, serverInfo *ServerInfo) error {
	settings, err := prepareKerberosConfig(cfg)
	if err != nil {
		return fmt.Errorf("kerberos configuration error: %w", err)
	}

	if settings.discoverKDC {
		path, cleanup, err := writeRuntimeKrb5Conf(ctx, settings.realm)
		if err != nil {
			return fmt.Errorf("kerberos configuration error: %w", err)
		}
		defer cleanup()
		settings.krb5conf = path
	}

	gssapiClient, err := createGSSAPIClient(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to create GSSAPI client: %w", err)
	}
	defer func() {
		_ = gssapiClient.DeleteSecContext()
	}()

	spn, err := buildServicePrincipal(serverInfo)
	if err != nil {
		return fmt.Errorf("failed to build service principal: %w", err)
	}

	tflog.SubsystemDebug(ctx, subsystem, "Performing GSSAPI bind", map[string]any{
		"principal": settings.principal,
		"realm":     settings.realm,
		"spn":       spn,
	})

	if err := conn.GSSAPIBind(gssapiClient, spn, ""); err != nil {
		return fmt.Errorf("GSSAPI bind failed: %w", err)
	}

	return nil
}

// createGSSAPIClient creates a GSSAPI client from the resolved settings.
// Priority order: credential cache, keytab, password.
func createGSSAPIClient(ctx context.Context, s *kerberosSettings) (ldap.GSSAPIClient, error) {
	if !fileExists(s.krb5conf) {
		return nil, fmt.Errorf("kerberos configuration file not found at %s", s.krb5conf)
	}

	if s.ccache != "" {
		tflog.SubsystemDebug(ctx, subsystem, "Using Kerberos credential cache", map[string]any{"ccache": s.ccache})
		return gssapi.NewClientFromCCache(s.ccache, s.krb5conf, krb5client.DisablePAFXFAST(true))
	}

	if s.keytab != "" {
		tflog.SubsystemDebug(ctx, subsystem, "Using Kerberos keytab", map[string]any{"keytab": s.keytab})
		return gssapi.NewClientWithKeytab(s.principal, s.realm, s.keytab, s.krb5conf, krb5client.DisablePAFXFAST(true))
	}

	if s.password != "" {
		return gssapi.NewClientWithPassword(s.principal, s.realm, s.password, s.krb5conf, krb5client.DisablePAFXFAST(true))
	}

	return nil, fmt.Errorf("no suitable credentials found for Kerberos authentication")
}

// buildServicePrincipal constructs the LDAP service principal name for a server.
func buildServicePrincipal(serverInfo *ServerInfo) (string, error) {
	if serverInfo == nil {
		return "", fmt.Errorf("server info is required for service principal")
	}

	if serverInfo.Host == "" {
		return "", fmt.Errorf("hostname is required for service principal")
	}

	return "ldap/" + serverInfo.Host, nil
}

// prepareKerberosConfig resolves the principal, realm and credential source.
// The principal comes from sasl_authid, falling back to the bind DN's uid or cn.
// A realm suffix on the principal is used when krb5_realm is not set.
func prepareKerberosConfig(cfg *ConnectionConfig) (*kerberosSettings, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	s := &kerberosSettings{
		principal: strings.TrimPrefix(cfg.SASLAuthID, "u:"),
		realm:     cfg.KerberosRealm,
		password:  cfg.BindPassword,
		krb5conf:  cfg.KerberosConfig,
	}

	if s.krb5conf == "" {
		s.krb5conf = defaultKrb5Conf
		s.discoverKDC = !fileExists(defaultKrb5Conf)
	}

	if s.principal == "" && cfg.BindDN != "" {
		for _, attr := range []string{"uid", "cn"} {
			if value, err := ExtractRDNValue(cfg.BindDN, attr); err == nil {
				s.principal = value
				break
			}
		}
	}

	if name, realm, ok := strings.Cut(s.principal, "@"); ok {
		s.principal = name
		if s.realm == "" {
			s.realm = realm
		}
	}

	if s.realm == "" {
		return nil, fmt.Errorf("kerberos realm is required (set krb5_realm or include realm in sasl_authid)")
	}

	switch {
	case cfg.KerberosCCache != "" && fileExists(cfg.KerberosCCache):
		s.ccache = cfg.KerberosCCache
	case fileExists(getDefaultCCachePath()):
		s.ccache = getDefaultCCachePath()
	}

	switch {
	case cfg.KerberosKeytab != "" && fileExists(cfg.KerberosKeytab):
		s.keytab = cfg.KerberosKeytab
	case fileExists(getDefaultKeytabPath()):
		s.keytab = getDefaultKeytabPath()
	}

	if s.ccache == "" && s.principal == "" {
		return nil, fmt.Errorf("principal is required for Kerberos authentication without a credential cache")
	}

	if s.ccache == "" && s.keytab == "" && s.password == "" {
		return nil, fmt.Errorf("no suitable Kerberos credentials found: provide krb5_ccname, krb5_keytab, bindpw, or ensure a default credential cache or keytab exists")
	}

	return s, nil
}

// getDefaultCCachePath returns the default credential cache location.
func getDefaultCCachePath() string {
	if ccache := os.Getenv("KRB5CCNAME"); ccache != "" {
		return strings.TrimPrefix(ccache, "FILE:")
	}
	return fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
}

// getDefaultKeytabPath returns the default keytab location.
func getDefaultKeytabPath() string {
	if keytab := os.Getenv("KRB5_KTNAME"); keytab != "" {
		return strings.TrimPrefix(keytab, "FILE:")
	}
	return "/etc/krb5.keytab"
}

// fileExists checks if a file exists and is readable.
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	file.Close()
	return true
}
