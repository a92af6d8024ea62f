// Package directory maps passwd, group and hosts lookups onto LDAP searches
// against posixAccount, posixGroup and ipHost entries.
//
// Every string in a returned record has been copied through the caller's
// nss.Buffer, so an undersized buffer yields a TryAgain status and the
// caller may retry with more space.
package directory
