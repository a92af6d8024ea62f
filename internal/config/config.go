package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
)

// DefaultPath is the well-known location of the configuration file.
const DefaultPath = "/etc/ldap.conf"

// DefaultPort is the standard LDAP port.
const DefaultPort = 389

// Configuration file keys.
const (
	KeyHost          = "host"
	KeyBase          = "base"
	KeyBindDN        = "binddn"
	KeyBindPW        = "bindpw"
	KeyScope         = "scope"
	KeyCrypt         = "crypt"
	KeyPort          = "port"
	KeySSL           = "ssl"
	KeyTimeLimit     = "timelimit"
	KeyBindTimeLimit = "bind_timelimit"
	KeySASLMech      = "sasl_mech"
	KeySASLAuthID    = "sasl_authid"
	KeyKrb5Realm     = "krb5_realm"
	KeyKrb5Keytab    = "krb5_keytab"
	KeyKrb5CCName    = "krb5_ccname"
	KeyKrb5Conf      = "krb5_conf"
)

// Config describes how to reach and bind to the directory.
type Config struct {
	// Mandatory settings
	Host string // One or more whitespace-separated servers
	Base string // Search base DN

	// Bind settings
	BindDN string
	BindPW string

	Port  int   `default:"389"`
	Scope Scope `default:"sub"`

	// Transport settings
	SSL           SSLMode       `default:"off"`
	TimeLimit     time.Duration // Search time limit, 0 means none
	BindTimeLimit time.Duration `default:"30s"` // Connect and bind timeout

	// SASL/Kerberos settings
	SASLMech   string
	SASLAuthID string
	Krb5Realm  string
	Krb5Keytab string
	Krb5CCName string
	Krb5Conf   string
}

// New returns a Config populated with defaults.
func New() *Config {
	cfg := &Config{}
	cfg.reset()
	return cfg
}

// reset clears every field and reapplies the defaults.
func (c *Config) reset() {
	*c = Config{}
	defaults.MustSet(c)
}

// HasHost reports whether a host was configured.
func (c *Config) HasHost() bool {
	return c.Host != ""
}

// HasBase reports whether a search base was configured.
func (c *Config) HasBase() bool {
	return c.Base != ""
}

// Servers returns the configured servers in the order they should be tried.
func (c *Config) Servers() []string {
	return strings.Fields(c.Host)
}

// Scope selects the breadth of directory searches.
type Scope int

// Scope values match the LDAP protocol encoding.
const (
	ScopeBase     Scope = 0
	ScopeOneLevel Scope = 1
	ScopeSubtree  Scope = 2
)

// ParseScope maps a configuration value to a Scope.
func ParseScope(s string) (Scope, bool) {
	switch s {
	case "sub":
		return ScopeSubtree, true
	case "one":
		return ScopeOneLevel, true
	case "base":
		return ScopeBase, true
	default:
		return ScopeSubtree, false
	}
}

func (s Scope) String() string {
	switch s {
	case ScopeBase:
		return "base"
	case ScopeOneLevel:
		return "one"
	case ScopeSubtree:
		return "sub"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scope) UnmarshalText(text []byte) error {
	scope, ok := ParseScope(string(text))
	if !ok {
		return fmt.Errorf("invalid scope %q", string(text))
	}
	*s = scope
	return nil
}

// CryptScheme selects the password-hash prefix expected on userPassword values.
type CryptScheme int

const (
	CryptUnset CryptScheme = iota
	CryptMD5
	CryptSHA
	CryptUnix
)

// ParseCryptScheme maps a configuration value to a CryptScheme.
func ParseCryptScheme(s string) (CryptScheme, bool) {
	switch s {
	case "md5":
		return CryptMD5, true
	case "sha":
		return CryptSHA, true
	case "des":
		return CryptUnix, true
	default:
		return CryptUnset, false
	}
}

func (c CryptScheme) String() string {
	switch c {
	case CryptUnset:
		return "unset"
	case CryptMD5:
		return "md5"
	case CryptSHA:
		return "sha"
	case CryptUnix:
		return "des"
	default:
		return fmt.Sprintf("crypt(%d)", int(c))
	}
}

// Prefix returns the RFC 2307 scheme prefix for the selected scheme.
func (c CryptScheme) Prefix() string {
	switch c {
	case CryptMD5:
		return "{MD5}"
	case CryptSHA:
		return "{SHA}"
	case CryptUnix:
		return "{CRYPT}"
	default:
		return ""
	}
}

// SSLMode selects how the connection is secured.
type SSLMode int

const (
	SSLOff SSLMode = iota
	SSLOn
	SSLStartTLS
)

// ParseSSLMode maps a configuration value to an SSLMode.
func ParseSSLMode(s string) (SSLMode, bool) {
	switch s {
	case "on":
		return SSLOn, true
	case "start_tls":
		return SSLStartTLS, true
	case "off":
		return SSLOff, true
	default:
		return SSLOff, false
	}
}

func (m SSLMode) String() string {
	switch m {
	case SSLOff:
		return "off"
	case SSLOn:
		return "on"
	case SSLStartTLS:
		return "start_tls"
	default:
		return fmt.Sprintf("ssl(%d)", int(m))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *SSLMode) UnmarshalText(text []byte) error {
	mode, ok := ParseSSLMode(string(text))
	if !ok {
		return fmt.Errorf("invalid ssl mode %q", string(text))
	}
	*m = mode
	return nil
}
