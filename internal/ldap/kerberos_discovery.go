package ldap

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"
	krb5config "github.com/jcmturner/gokrb5/v8/config"
)

// generateRuntimeKrb5Conf renders a krb5.conf for realm that locates KDCs
// through DNS SRV records.
func generateRuntimeKrb5Conf(realm string) (string, error) {
	if realm == "" {
		return "", fmt.Errorf("kerberos realm is required for KDC discovery")
	}

	realm = strings.ToUpper(realm)
	domain := strings.ToLower(realm)

	conf := fmt.Sprintf(`[libdefaults]
    default_realm = %s
    dns_lookup_kdc = true
    dns_lookup_realm = false
    rdns = false
    forwardable = true

[domain_realm]
    .%s = %s
    %s = %s
`,
		realm,
		domain, realm,
		domain, realm,
	)

	if _, err := krb5config.NewFromString(conf); err != nil {
		return "", fmt.Errorf("invalid generated krb5.conf: %w", err)
	}

	return conf, nil
}

// writeRuntimeKrb5Conf writes a generated krb5.conf to a private temporary file.
// The returned cleanup removes it.
func writeRuntimeKrb5Conf(ctx context.Context, realm string) (string, func(), error) {
	conf, err := generateRuntimeKrb5Conf(realm)
	if err != nil {
		return "", nil, err
	}

	f, err := os.CreateTemp("", "nss-ldap-krb5-*.conf")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create runtime krb5.conf: %w", err)
	}
	cleanup := func() { os.Remove(f.Name()) }

	if _, err := f.WriteString(conf); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to write runtime krb5.conf: %w", err)
	}

	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to write runtime krb5.conf: %w", err)
	}

	tflog.SubsystemDebug(ctx, subsystem, "Generated runtime krb5.conf", map[string]any{
		"realm": strings.ToUpper(realm),
		"path":  f.Name(),
	})

	return f.Name(), cleanup, nil
}
