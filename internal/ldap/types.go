package ldap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/isometry/nss-ldap/internal/config"
)

// ConnectionConfig holds configuration for LDAP connections.
type ConnectionConfig struct {
	// Connection settings
	Servers   []*ServerInfo // Servers in the order they are tried
	BaseDN    string        // Base DN for searches
	Scope     SearchScope   // Default search scope
	Timeout   time.Duration // Dial and bind timeout
	TimeLimit time.Duration // Server-side search time limit

	// Authentication settings
	BindDN       string // DN for simple bind; empty means anonymous
	BindPassword string // Password for simple bind
	SASLMech     string // SASL mechanism; only GSSAPI is supported
	SASLAuthID   string // Kerberos principal for GSSAPI

	// Kerberos settings
	KerberosRealm  string // Kerberos realm
	KerberosKeytab string // Path to Kerberos keytab file
	KerberosCCache string // Path to Kerberos credential cache
	KerberosConfig string // Path to krb5.conf

	// TLS settings
	StartTLS  bool        // Upgrade plain connections with StartTLS
	TLSConfig *tls.Config // TLS configuration for ldaps:// and StartTLS
}

// DefaultConfig returns a configuration with secure defaults and no servers.
func DefaultConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Scope:   ScopeWholeSubtree,
		Timeout: 30 * time.Second,
		TLSConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// NewConnectionConfig builds a connection configuration from a parsed config record.
func NewConnectionConfig(cfg *config.Config) (*ConnectionConfig, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	if err := ValidateDNSyntax(cfg.Base); err != nil {
		return nil, fmt.Errorf("invalid base: %w", err)
	}

	if cfg.BindDN != "" {
		if err := ValidateDNSyntax(cfg.BindDN); err != nil {
			return nil, fmt.Errorf("invalid binddn: %w", err)
		}
	}

	conn := DefaultConfig()
	conn.BaseDN = cfg.Base
	conn.Scope = SearchScope(cfg.Scope)
	conn.TimeLimit = cfg.TimeLimit
	if cfg.BindTimeLimit > 0 {
		conn.Timeout = cfg.BindTimeLimit
	}
	conn.BindDN = cfg.BindDN
	conn.BindPassword = cfg.BindPW
	conn.SASLMech = cfg.SASLMech
	conn.SASLAuthID = cfg.SASLAuthID
	conn.KerberosRealm = cfg.Krb5Realm
	conn.KerberosKeytab = cfg.Krb5Keytab
	conn.KerberosCCache = strings.TrimPrefix(cfg.Krb5CCName, "FILE:")
	conn.KerberosConfig = cfg.Krb5Conf
	conn.StartTLS = cfg.SSL == config.SSLStartTLS

	for _, token := range cfg.Servers() {
		server, err := ParseServer(token, cfg.Port, cfg.SSL == config.SSLOn)
		if err != nil {
			return nil, fmt.Errorf("invalid host %q: %w", token, err)
		}
		conn.Servers = append(conn.Servers, server)
	}

	if len(conn.Servers) == 0 {
		return nil, fmt.Errorf("at least one host must be configured")
	}

	return conn, nil
}

// ServerInfo contains information about an LDAP server.
type ServerInfo struct {
	Host   string
	Port   int
	UseTLS bool
	Source string // "config" or "url"
}

// Client provides the directory operations used by the name-service maps.
type Client interface {
	// Connect dials the configured servers in order and binds to the first reachable one.
	Connect(ctx context.Context) error
	Close() error

	Search(ctx context.Context, req *SearchRequest) (*SearchResult, error)

	// BaseDN and Scope return the configured search defaults.
	BaseDN() string
	Scope() SearchScope
}

// SearchRequest encapsulates LDAP search parameters.
// An empty BaseDN means the configured base.
type SearchRequest struct {
	BaseDN     string
	Scope      SearchScope
	Filter     string
	Attributes []string
	SizeLimit  int
}

// SearchResult contains search results.
type SearchResult struct {
	Entries []*ldap.Entry
	Total   int
}

// SearchScope defines LDAP search scope.
type SearchScope int

const (
	ScopeBaseObject SearchScope = iota
	ScopeSingleLevel
	ScopeWholeSubtree
)

func (s SearchScope) String() string {
	switch s {
	case ScopeBaseObject:
		return "base"
	case ScopeSingleLevel:
		return "one"
	case ScopeWholeSubtree:
		return "sub"
	default:
		return "unknown"
	}
}

// ldapScope converts the scope to the go-ldap constant.
func (s SearchScope) ldapScope() int {
	switch s {
	case ScopeBaseObject:
		return ldap.ScopeBaseObject
	case ScopeSingleLevel:
		return ldap.ScopeSingleLevel
	default:
		return ldap.ScopeWholeSubtree
	}
}

// AuthMethod defines authentication method types.
type AuthMethod int

const (
	AuthMethodAnonymous AuthMethod = iota // No bind credentials
	AuthMethodSimpleBind                  // Bind DN and password
	AuthMethodKerberos                    // SASL GSSAPI
)

// String returns string representation of authentication method.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodAnonymous:
		return "anonymous"
	case AuthMethodSimpleBind:
		return "simple"
	case AuthMethodKerberos:
		return "kerberos"
	default:
		return "unknown"
	}
}

// GetAuthMethod determines the authentication method from the configuration.
func (c *ConnectionConfig) GetAuthMethod() AuthMethod {
	if strings.EqualFold(c.SASLMech, "GSSAPI") {
		return AuthMethodKerberos
	}

	if c.BindDN != "" {
		return AuthMethodSimpleBind
	}

	return AuthMethodAnonymous
}
