package main

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/terraform-plugin-log/tfsdklog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/isometry/nss-ldap/internal/config"
	"github.com/isometry/nss-ldap/internal/directory"
	ldapclient "github.com/isometry/nss-ldap/internal/ldap"
	"github.com/isometry/nss-ldap/internal/nss"
)

const (
	defaultBufferSize    = 4096
	defaultMaxBufferSize = 1 << 20
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath    string
	bufferSize    int
	maxBufferSize int
	logLevel      string
}

func (o *options) flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.StringVarP(&o.configPath, "config", "c", config.DefaultPath, "path to the ldap.conf file")
	flags.IntVar(&o.bufferSize, "buffer", defaultBufferSize, "initial result buffer size in bytes")
	flags.IntVar(&o.maxBufferSize, "max-buffer", defaultMaxBufferSize, "largest buffer to grow to on try-again, 0 disables growth")
	flags.StringVar(&o.logLevel, "log-level", "warn", "log level: trace, debug, info, warn, error or off")
	return flags
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "nss-ldap-query",
		Short: "Query name-service maps in an LDAP directory",
		Long: `Query name-service maps in an LDAP directory.

Entries are looked up the way the nss_ldap module would, using the servers
and search base from ldap.conf, and printed in getent format.`,
		Example: `
  # Look up a user by name or uid.
  nss-ldap-query passwd alice
  nss-ldap-query passwd 1001

  # Resolve a host against an alternative configuration.
  nss-ldap-query -c ./ldap.conf hosts web01`[1:],
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := opts.loggingContext(cmd.Context())
			if err != nil {
				return err
			}
			if opts.bufferSize < 0 {
				return fmt.Errorf("--buffer must not be negative")
			}
			cmd.SetContext(ctx)
			return nil
		},
	}

	rootCmd.PersistentFlags().AddFlagSet(opts.flagSet())

	rootCmd.AddCommand(
		newPasswdCommand(opts),
		newGroupCommand(opts),
		newHostsCommand(opts),
		newConfigCommand(opts),
	)

	return rootCmd
}

// loggingContext installs the root logger and the package subsystems.
func (o *options) loggingContext(ctx context.Context) (context.Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	level := hclog.LevelFromString(o.logLevel)
	if level == hclog.NoLevel {
		return nil, fmt.Errorf("invalid log level %q", o.logLevel)
	}

	ctx = tfsdklog.NewRootProviderLogger(ctx,
		tfsdklog.WithLogName("nss-ldap"),
		tfsdklog.WithLevel(level),
		tfsdklog.WithStderrFromInit(),
		tfsdklog.WithoutLocation(),
	)
	ctx = ldapclient.InitializeLogging(ctx)
	ctx = directory.InitializeLogging(ctx)

	return ctx, nil
}

// loadConfig reads the configuration file named by --config into a scratch
// buffer of the given size.
func (o *options) loadConfig(ctx context.Context, size int) (*config.Config, *config.Loader, *nss.Buffer, error) {
	loader := config.NewLoader(o.configPath)
	buf := nss.NewBuffer(size)

	cfg, err := loader.Load(ctx, nil, buf)
	if err != nil {
		return cfg, loader, buf, configError(err)
	}

	return cfg, loader, buf, nil
}

// withService loads the configuration, connects a client and runs fn.
func (o *options) withService(ctx context.Context, fn func(*directory.Service) error) error {
	cfg, _, _, err := o.loadConfig(ctx, defaultMaxBufferSize)
	if err != nil {
		return err
	}

	connCfg, err := ldapclient.NewConnectionConfig(cfg)
	if err != nil {
		return statusError(fmt.Errorf("%s: %w", o.configPath, err), nss.StatusUnavailable)
	}

	client, err := ldapclient.NewClient(ctx, connCfg)
	if err != nil {
		return statusError(err, nss.StatusUnavailable)
	}
	defer client.Close()

	return fn(directory.NewService(client))
}

// lookup calls fn with a fresh buffer, doubling its size on try-again up to
// the configured maximum.
func lookup[T any](o *options, fn func(*nss.Buffer) (T, error)) (T, error) {
	size := o.bufferSize
	for {
		record, err := fn(nss.NewBuffer(size))
		status := nss.StatusOf(err)
		if status != nss.StatusTryAgain || o.maxBufferSize <= 0 || size >= o.maxBufferSize {
			return record, statusError(err, status)
		}
		size = min(max(size*2, 64), o.maxBufferSize)
	}
}
