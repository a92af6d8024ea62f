package directory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/go-ldap/ldap/v3"

	ldapclient "github.com/isometry/nss-ldap/internal/ldap"
	"github.com/isometry/nss-ldap/internal/nss"
)

var groupAttributes = []string{"cn", "gidNumber", "memberUid", "uniqueMember"}

// Group is a group(5) record.
type Group struct {
	Name    string
	Passwd  string
	GID     uint32
	Members []string
}

// String renders the record as a group(5) line.
func (g *Group) String() string {
	return fmt.Sprintf("%s:%s:%d:%s", g.Name, g.Passwd, g.GID, strings.Join(g.Members, ","))
}

// GroupByName looks up a posixGroup by name.
func (s *Service) GroupByName(ctx context.Context, name string, buf *nss.Buffer) (*Group, error) {
	filter := fmt.Sprintf("(&(objectClass=posixGroup)(cn=%s))", ldap.EscapeFilter(name))
	return s.group(ctx, "getgrnam", filter, buf)
}

// GroupByGID looks up a posixGroup by numeric group id.
func (s *Service) GroupByGID(ctx context.Context, gid uint32, buf *nss.Buffer) (*Group, error) {
	filter := fmt.Sprintf("(&(objectClass=posixGroup)(gidNumber=%d))", gid)
	return s.group(ctx, "getgrgid", filter, buf)
}

func (s *Service) group(ctx context.Context, op, filter string, buf *nss.Buffer) (*Group, error) {
	entry, err := s.lookupOne(ctx, op, filter, groupAttributes)
	if err != nil {
		return nil, err
	}
	return newGroup(op, entry, buf)
}

func newGroup(op string, entry *ldap.Entry, buf *nss.Buffer) (*Group, error) {
	gid, err := idValue(op, entry, "gidNumber")
	if err != nil {
		return nil, err
	}

	name, _, err := ldapclient.ResolveRDN(entry, buf)
	if err != nil {
		return nil, err
	}

	passwd, err := buf.Put(shadowPlaceholder)
	if err != nil {
		return nil, err
	}

	members, err := putAll(buf, groupMembers(entry))
	if err != nil {
		return nil, err
	}

	return &Group{
		Name:    name,
		Passwd:  passwd,
		GID:     gid,
		Members: members,
	}, nil
}

// groupMembers lists memberUid values followed by the uid of each
// uniqueMember DN, without duplicates.
func groupMembers(entry *ldap.Entry) []string {
	var members []string
	add := func(uid string) {
		if uid != "" && !slices.Contains(members, uid) {
			members = append(members, uid)
		}
	}

	for _, uid := range entry.GetEqualFoldAttributeValues("memberUid") {
		add(uid)
	}

	for _, dn := range entry.GetEqualFoldAttributeValues("uniqueMember") {
		if uid, err := ldapclient.ExtractRDNValue(dn, "uid"); err == nil {
			add(uid)
		}
	}

	return members
}
