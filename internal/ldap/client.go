package ldap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// boundConn is the part of a bound *ldap.Conn that searches use.
type boundConn interface {
	Search(*ldap.SearchRequest) (*ldap.SearchResult, error)
	IsClosing() bool
	Close() error
}

// client implements the Client interface over a single bound connection.
type client struct {
	config *ConnectionConfig

	// dialServer opens and binds a connection to one server.
	dialServer func(context.Context, *ServerInfo) (boundConn, error)

	mu   sync.Mutex
	conn boundConn
}

// NewClient creates a new LDAP client. No connection is made until Connect or Search.
func NewClient(ctx context.Context, config *ConnectionConfig) (Client, error) {
	if config == nil {
		return nil, fmt.Errorf("connection configuration cannot be nil")
	}

	if len(config.Servers) == 0 {
		return nil, fmt.Errorf("at least one server must be configured")
	}

	for _, server := range config.Servers {
		if err := ValidateServerInfo(server); err != nil {
			return nil, fmt.Errorf("invalid server: %w", err)
		}
	}

	tflog.SubsystemDebug(ctx, subsystem, "Creating new LDAP client", map[string]any{
		"servers_count": len(config.Servers),
		"base_dn":       config.BaseDN,
		"auth_method":   config.GetAuthMethod().String(),
		"start_tls":     config.StartTLS,
	})

	c := &client{config: config}
	c.dialServer = c.dial
	return c, nil
}

func (c *client) BaseDN() string {
	return c.config.BaseDN
}

func (c *client) Scope() SearchScope {
	return c.config.Scope
}

// Connect tries each configured server in order and keeps the first that binds.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connect(ctx)
}

func (c *client) connect(ctx context.Context) error {
	if c.conn != nil && !c.conn.IsClosing() {
		return nil
	}
	c.reset()

	return LogOperation(ctx, "connect", map[string]any{
		"servers_count": len(c.config.Servers),
		"auth_method":   c.config.GetAuthMethod().String(),
	}, func() error {
		var lastErr error

		for _, server := range c.config.Servers {
			if err := ctx.Err(); err != nil {
				return NewLDAPError("connect", err)
			}

			conn, err := c.dialServer(ctx, server)
			if err != nil {
				lastErr = err
				continue
			}

			c.conn = conn
			return nil
		}

		LogConnectionEvent(ctx, "all_servers_failed", map[string]any{
			"servers_count": len(c.config.Servers),
		})

		return lastErr
	})
}

// dial opens, secures and binds a connection to one server.
func (c *client) dial(ctx context.Context, server *ServerInfo) (boundConn, error) {
	url := ServerInfoToURL(server)
	fields := map[string]any{
		"server": url,
	}

	dialer := &net.Dialer{Timeout: c.config.Timeout}
	opts := []ldap.DialOpt{ldap.DialWithDialer(dialer)}
	if server.UseTLS {
		opts = append(opts, ldap.DialWithTLSConfig(c.tlsConfig(server)))
	}

	conn, err := ldap.DialURL(url, opts...)
	if err != nil {
		fields["error"] = err.Error()
		LogConnectionEvent(ctx, "connection_failed", fields)
		return nil, c.serverError("connect", server, err)
	}

	if c.config.StartTLS && !server.UseTLS {
		if err := conn.StartTLS(c.tlsConfig(server)); err != nil {
			conn.Close()
			fields["error"] = err.Error()
			LogConnectionEvent(ctx, "connection_failed", fields)
			return nil, c.serverError("start_tls", server, err)
		}
	}

	conn.SetTimeout(c.config.Timeout)
	LogConnectionEvent(ctx, "connection_established", fields)

	authMethod := c.config.GetAuthMethod()
	fields["auth_method"] = authMethod.String()

	if err := c.authenticate(ctx, conn, server); err != nil {
		conn.Close()
		fields["error"] = err.Error()
		LogConnectionEvent(ctx, "authentication_failed", fields)
		LogLDAPError(ctx, "bind", err, fields)
		return nil, c.serverError("bind", server, err)
	}

	LogConnectionEvent(ctx, "authentication_success", fields)
	return conn, nil
}

// authenticate binds the connection using the configured method.
func (c *client) authenticate(ctx context.Context, conn *ldap.Conn, server *ServerInfo) error {
	switch c.config.GetAuthMethod() {
	case AuthMethodKerberos:
		return performKerberosAuth(ctx, conn, c.config, server)
	case AuthMethodSimpleBind:
		if c.config.BindPassword == "" {
			return conn.UnauthenticatedBind(c.config.BindDN)
		}
		return conn.Bind(c.config.BindDN, c.config.BindPassword)
	default:
		return conn.UnauthenticatedBind("")
	}
}

func (c *client) tlsConfig(server *ServerInfo) *tls.Config {
	var cfg *tls.Config
	if c.config.TLSConfig != nil {
		cfg = c.config.TLSConfig.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = server.Host
	}
	return cfg
}

func (c *client) serverError(operation string, server *ServerInfo, err error) *LDAPError {
	ldapErr := NewLDAPError(operation, err)
	ldapErr.Server = ServerInfoToURL(server)
	return ldapErr
}

// Close closes the current connection, if any.
func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset()
	return nil
}

func (c *client) reset() {
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = nil
}

// Search performs an LDAP search, connecting first if needed.
// A connection lost mid-search is re-established once before giving up.
func (c *client) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if req == nil {
		return nil, fmt.Errorf("search request cannot be nil")
	}

	baseDN := req.BaseDN
	if baseDN == "" {
		baseDN = c.config.BaseDN
	}

	searchFields := map[string]any{
		"base_dn":    baseDN,
		"scope":      req.Scope.String(),
		"filter":     req.Filter,
		"attributes": req.Attributes,
		"size_limit": req.SizeLimit,
	}

	ldapReq := ldap.NewSearchRequest(
		baseDN,
		req.Scope.ldapScope(),
		ldap.NeverDerefAliases,
		req.SizeLimit,
		int(c.config.TimeLimit/time.Second),
		false, // TypesOnly
		req.Filter,
		req.Attributes,
		nil, // Controls
	)

	c.mu.Lock()
	defer c.mu.Unlock()

	var result *SearchResult
	err := LogOperation(ctx, "search", searchFields, func() error {
		var err error
		for attempt := 0; attempt < 2; attempt++ {
			if err = c.connect(ctx); err != nil {
				return err
			}

			result, err = c.search(ldapReq)
			if err == nil || !isReconnectableError(err) {
				break
			}

			tflog.SubsystemDebug(ctx, subsystem, "Connection lost during search, reconnecting", map[string]any{
				"error":   err.Error(),
				"attempt": attempt + 1,
			})
			c.reset()
		}

		if err != nil {
			LogLDAPError(ctx, "search", err, searchFields)
			return WrapError("search", err)
		}

		tflog.SubsystemDebug(ctx, subsystem, "Search completed", map[string]any{
			"entries_found": result.Total,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (c *client) search(req *ldap.SearchRequest) (*SearchResult, error) {
	result, err := c.conn.Search(req)

	// A size-limited search still yields usable entries.
	if err != nil && ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) && result != nil && len(result.Entries) > 0 {
		err = nil
	}

	if err != nil {
		return nil, err
	}

	return &SearchResult{
		Entries: result.Entries,
		Total:   len(result.Entries),
	}, nil
}

// isReconnectableError reports whether an error means the connection is gone.
func isReconnectableError(err error) bool {
	if err == nil {
		return false
	}

	if ldap.IsErrorWithCode(err, ldap.ErrorNetwork) ||
		ldap.IsErrorWithCode(err, ldap.LDAPResultServerDown) ||
		ldap.IsErrorWithCode(err, ldap.LDAPResultUnavailable) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
