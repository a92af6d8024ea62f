/*
Package ldap provides the directory access layer for the nss-ldap name service.

# Architecture Overview

The package is organized into a few core components:

  - Client: a single bound connection with ordered failover across servers
  - ConnectionConfig: connection settings derived from a parsed ldap.conf
  - ResolveRDN: canonical entry names copied into a caller buffer
  - Errors: categorized LDAP errors mapped onto name-service statuses

# Connection Management

Servers come from the whitespace-separated host directive and are tried in
the order given. Each token may be a host name, a host:port pair or an
ldap:// or ldaps:// URL. The first server that accepts the connection and
the bind is kept until Close, or until it is lost mid-search, in which case
the client reconnects once.

Supported bind methods are anonymous, simple and SASL GSSAPI (Kerberos).

# Logging

All operations log through the "ldap" tflog subsystem. The level is taken
from the NSS_LDAP_LOG_LDAP environment variable. Fields carrying credentials
are redacted before they are logged.
*/
package ldap
