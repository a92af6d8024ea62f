package directory

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"github.com/go-ldap/ldap/v3"

	ldapclient "github.com/isometry/nss-ldap/internal/ldap"
	"github.com/isometry/nss-ldap/internal/nss"
)

var hostAttributes = []string{"cn", "ipHostNumber"}

// Host is a hosts(5) record.
type Host struct {
	Name    string
	Aliases []string
	Addrs   []string
}

// String renders the record as hosts(5) lines, one per address.
func (h *Host) String() string {
	names := strings.Join(append([]string{h.Name}, h.Aliases...), " ")

	lines := make([]string, 0, len(h.Addrs))
	for _, addr := range h.Addrs {
		lines = append(lines, fmt.Sprintf("%-15s %s", addr, names))
	}

	return strings.Join(lines, "\n")
}

// HostByName looks up an ipHost by canonical name or alias.
func (s *Service) HostByName(ctx context.Context, name string, buf *nss.Buffer) (*Host, error) {
	filter := fmt.Sprintf("(&(objectClass=ipHost)(cn=%s))", ldap.EscapeFilter(name))
	return s.host(ctx, "gethostbyname", filter, buf)
}

// HostByAddr looks up an ipHost by address. The address is matched in its
// canonical textual form.
func (s *Service) HostByAddr(ctx context.Context, addr string, buf *nss.Buffer) (*Host, error) {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return nil, nss.NewError("gethostbyaddr", nss.StatusNotFound, fmt.Sprintf("invalid address %q", addr), err)
	}

	filter := fmt.Sprintf("(&(objectClass=ipHost)(ipHostNumber=%s))", ldap.EscapeFilter(ip.Unmap().String()))
	return s.host(ctx, "gethostbyaddr", filter, buf)
}

func (s *Service) host(ctx context.Context, op, filter string, buf *nss.Buffer) (*Host, error) {
	entry, err := s.lookupOne(ctx, op, filter, hostAttributes)
	if err != nil {
		return nil, err
	}
	return newHost(op, entry, buf)
}

func newHost(op string, entry *ldap.Entry, buf *nss.Buffer) (*Host, error) {
	addrs := entry.GetEqualFoldAttributeValues("ipHostNumber")
	if len(addrs) == 0 {
		return nil, nss.NewError(op, nss.StatusNotFound, entry.DN+" has no ipHostNumber", nil)
	}

	name, _, err := ldapclient.ResolveRDN(entry, buf)
	if err != nil {
		return nil, err
	}

	var aliases []string
	for _, cn := range entry.GetEqualFoldAttributeValues(ldapclient.NameAttribute) {
		if cn != name {
			aliases = append(aliases, cn)
		}
	}

	storedAliases, err := putAll(buf, aliases)
	if err != nil {
		return nil, err
	}

	storedAddrs, err := putAll(buf, addrs)
	if err != nil {
		return nil, err
	}

	return &Host{
		Name:    name,
		Aliases: storedAliases,
		Addrs:   storedAddrs,
	}, nil
}
