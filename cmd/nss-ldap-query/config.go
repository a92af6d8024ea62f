package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/isometry/nss-ldap/internal/config"
)

const maskedPassword = "********"

func newConfigCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the parsed configuration",
		Long: `Print the parsed configuration.

Settings are printed in ldap.conf syntax after defaults are applied. The bind
password is masked. The configuration file is parsed with the --buffer scratch
space, so an undersized buffer reports try-again just as a lookup would.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, loader, buf, err := opts.loadConfig(cmd.Context(), opts.bufferSize)
			if err != nil {
				return err
			}

			if err := printConfig(cmd.OutOrStdout(), cfg, loader.Crypt); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.ErrOrStderr(), "# %d of %d buffer bytes used\n", buf.Len(), buf.Cap())
			return err
		},
	}
}

// printConfig writes cfg as ldap.conf directives, omitting unset optional values.
func printConfig(w io.Writer, cfg *config.Config, crypt config.CryptScheme) error {
	bindpw := ""
	if cfg.BindPW != "" {
		bindpw = maskedPassword
	}

	directives := []struct {
		key, value string
	}{
		{config.KeyHost, cfg.Host},
		{config.KeyBase, cfg.Base},
		{config.KeyPort, strconv.Itoa(cfg.Port)},
		{config.KeyScope, cfg.Scope.String()},
		{config.KeySSL, cfg.SSL.String()},
		{config.KeyBindDN, cfg.BindDN},
		{config.KeyBindPW, bindpw},
		{config.KeyTimeLimit, seconds(cfg.TimeLimit)},
		{config.KeyBindTimeLimit, seconds(cfg.BindTimeLimit)},
		{config.KeySASLMech, cfg.SASLMech},
		{config.KeySASLAuthID, cfg.SASLAuthID},
		{config.KeyKrb5Realm, cfg.Krb5Realm},
		{config.KeyKrb5Keytab, cfg.Krb5Keytab},
		{config.KeyKrb5CCName, cfg.Krb5CCName},
		{config.KeyKrb5Conf, cfg.Krb5Conf},
	}

	for _, d := range directives {
		if d.value == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", d.key, d.value); err != nil {
			return err
		}
	}

	if crypt != config.CryptUnset {
		if _, err := fmt.Fprintf(w, "# userPassword values use the %s prefix\n%s %s\n", crypt.Prefix(), config.KeyCrypt, crypt); err != nil {
			return err
		}
	}

	return nil
}

func seconds(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return strconv.Itoa(int(d / time.Second))
}
