package main

import (
	"fmt"
	"net/netip"

	"github.com/spf13/cobra"

	"github.com/isometry/nss-ldap/internal/directory"
	"github.com/isometry/nss-ldap/internal/nss"
)

func newPasswdCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <name|uid>",
		Short: "Look up a posixAccount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key := args[0]

			return opts.withService(ctx, func(svc *directory.Service) error {
				pw, err := lookup(opts, func(buf *nss.Buffer) (*directory.Passwd, error) {
					if uid, ok := directory.ParseID(key); ok {
						return svc.PasswdByUID(ctx, uid, buf)
					}
					return svc.PasswdByName(ctx, key, buf)
				})
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), pw)
				return err
			})
		},
	}
}

func newGroupCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "group <name|gid>",
		Short: "Look up a posixGroup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key := args[0]

			return opts.withService(ctx, func(svc *directory.Service) error {
				group, err := lookup(opts, func(buf *nss.Buffer) (*directory.Group, error) {
					if gid, ok := directory.ParseID(key); ok {
						return svc.GroupByGID(ctx, gid, buf)
					}
					return svc.GroupByName(ctx, key, buf)
				})
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), group)
				return err
			})
		},
	}
}

func newHostsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "hosts <name|address>",
		Short: "Look up an ipHost",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key := args[0]

			return opts.withService(ctx, func(svc *directory.Service) error {
				host, err := lookup(opts, func(buf *nss.Buffer) (*directory.Host, error) {
					if _, err := netip.ParseAddr(key); err == nil {
						return svc.HostByAddr(ctx, key, buf)
					}
					return svc.HostByName(ctx, key, buf)
				})
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), host)
				return err
			})
		},
	}
}
