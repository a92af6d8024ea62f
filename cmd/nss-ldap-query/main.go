// Command nss-ldap-query resolves passwd, group and hosts entries from an
// LDAP directory configured through ldap.conf, printing them in getent format.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCommand().ExecuteContext(ctx)
	if err == nil {
		return
	}

	code := 1
	var exitErr ExitCode
	if errors.As(err, &exitErr) {
		code = exitErr.Code
	}

	if exitErr.Quiet {
		os.Exit(code)
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(code)
}
