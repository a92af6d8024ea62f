package ldap

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const (
	defaultLDAPPort  = 389
	defaultLDAPSPort = 636
)

// ParseServer parses one token of the host directive.
// A token is a host name, a host:port pair, or an ldap:// or ldaps:// URL.
// Bare hosts use defaultPort, or the LDAPS port when useTLS is set and
// defaultPort is the plain LDAP port.
func ParseServer(token string, defaultPort int, useTLS bool) (*ServerInfo, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("server cannot be empty")
	}

	if strings.Contains(token, "://") {
		return ParseLDAPURL(token)
	}

	port := defaultPort
	if port <= 0 {
		port = defaultLDAPPort
	}
	if useTLS && port == defaultLDAPPort {
		port = defaultLDAPSPort
	}

	host := token
	if h, p, err := net.SplitHostPort(token); err == nil {
		host = h
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid port number: %s", p)
		}
	}

	server := &ServerInfo{
		Host:   host,
		Port:   port,
		UseTLS: useTLS,
		Source: "config",
	}

	return server, ValidateServerInfo(server)
}

// ParseLDAPURL parses an LDAP URL into ServerInfo.
func ParseLDAPURL(rawURL string) (*ServerInfo, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	var useTLS bool
	switch strings.ToLower(u.Scheme) {
	case "ldaps":
		useTLS = true
	case "ldap":
		useTLS = false
	default:
		return nil, fmt.Errorf("unsupported scheme, must be ldap:// or ldaps://")
	}

	port := defaultLDAPPort
	if useTLS {
		port = defaultLDAPSPort
	}

	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid port number: %s", p)
		}
	}

	server := &ServerInfo{
		Host:   u.Hostname(),
		Port:   port,
		UseTLS: useTLS,
		Source: "url",
	}

	return server, ValidateServerInfo(server)
}

// ValidateServerInfo validates server information.
func ValidateServerInfo(server *ServerInfo) error {
	if server == nil {
		return fmt.Errorf("server info cannot be nil")
	}

	if server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}

	if server.Port <= 0 || server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", server.Port)
	}

	return nil
}

// ServerInfoToURL converts ServerInfo to LDAP URL.
func ServerInfoToURL(server *ServerInfo) string {
	scheme := "ldap"
	if server.UseTLS {
		scheme = "ldaps"
	}

	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(server.Host, strconv.Itoa(server.Port)))
}
