package ldap

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"

	"github.com/isometry/nss-ldap/internal/nss"
)

// NameAttribute is the attribute that names entries in the name-service maps.
const NameAttribute = "cn"

// ResolveRDN returns the canonical name of an entry and copies it into buf.
//
// The name is the cn value of the leaf RDN, taken verbatim without
// unescaping. When the leaf RDN carries no cn the first value of the entry's
// cn attribute is used instead.
// The returned count is the number of buffer bytes consumed, including the
// terminator. On error the buffer is left untouched.
func ResolveRDN(entry *ldap.Entry, buf *nss.Buffer) (string, int, error) {
	if entry == nil || entry.DN == "" {
		return "", 0, nss.NewError("getrdnvalue", nss.StatusNotFound, "entry has no DN", nil)
	}

	if buf == nil {
		buf = nss.NewBuffer(0)
	}

	if value, ok := leafRDNValue(entry.DN, NameAttribute); ok {
		// A leaf RDN that does not fit is final.
		return putName(buf, value)
	}

	if values := entry.GetEqualFoldAttributeValues(NameAttribute); len(values) > 0 {
		return putName(buf, values[0])
	}

	return "", 0, nss.NewError("getrdnvalue", nss.StatusNotFound,
		fmt.Sprintf("no %s in %q", NameAttribute, entry.DN), nil)
}

func putName(buf *nss.Buffer, value string) (string, int, error) {
	name, err := buf.Put(value)
	if err != nil {
		return "", 0, err
	}
	return name, len(value) + 1, nil
}

// leafRDNValue returns the value of the first attrType pair in the leaf RDN of dn.
//
// The leaf RDN is found at the first comma outside escapes and quotes, but its
// pairs are split at every '+' and values are returned as written, escapes
// included. A '+' inside an escaped or quoted value therefore splits it.
func leafRDNValue(dn, attrType string) (string, bool) {
	leaf, ok := leafRDN(dn)
	if !ok {
		return "", false
	}

	prefix := attrType + "="
	for _, pair := range strings.Split(leaf, "+") {
		if len(pair) >= len(prefix) && strings.EqualFold(pair[:len(prefix)], prefix) {
			return pair[len(prefix):], true
		}
	}

	return "", false
}

// leafRDN returns the raw text of the first RDN of dn. It fails when dn has a
// dangling escape or an unterminated quote.
func leafRDN(dn string) (string, bool) {
	end := -1
	quoted := false
	for i := 0; i < len(dn); i++ {
		switch dn[i] {
		case '\\':
			if i+1 == len(dn) {
				return "", false
			}
			i++
		case '"':
			quoted = !quoted
		case ',', ';':
			if !quoted && end < 0 {
				end = i
			}
		}
	}

	if quoted || end == 0 {
		return "", false
	}
	if end < 0 {
		return dn, true
	}
	return dn[:end], true
}

// ValidateDNSyntax validates that a string is a properly formatted Distinguished Name.
func ValidateDNSyntax(dn string) error {
	if dn == "" {
		return fmt.Errorf("DN cannot be empty")
	}

	_, err := ldap.ParseDN(dn)
	if err != nil {
		return fmt.Errorf("invalid DN syntax: %w", err)
	}

	return nil
}

// ExtractRDNValue extracts the value of the first RDN component with the specified attribute type.
// For example, extracting "ou" from "cn=web,ou=Hosts,dc=example,dc=com" returns "Hosts".
func ExtractRDNValue(dn, attrType string) (string, error) {
	if dn == "" {
		return "", fmt.Errorf("DN cannot be empty")
	}

	parsedDN, err := ldap.ParseDN(dn)
	if err != nil {
		return "", fmt.Errorf("invalid DN syntax: %w", err)
	}

	for _, rdn := range parsedDN.RDNs {
		for _, attr := range rdn.Attributes {
			if strings.EqualFold(attr.Type, attrType) {
				return attr.Value, nil
			}
		}
	}

	return "", fmt.Errorf("attribute type '%s' not found in DN '%s'", attrType, dn)
}
