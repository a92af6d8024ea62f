package directory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-ldap/ldap/v3"

	ldapclient "github.com/isometry/nss-ldap/internal/ldap"
	"github.com/isometry/nss-ldap/internal/nss"
)

// shadowPlaceholder fills the password field; hashes are never returned.
const shadowPlaceholder = "x"

var passwdAttributes = []string{"uid", "cn", "uidNumber", "gidNumber", "gecos", "homeDirectory", "loginShell"}

// Passwd is a passwd(5) record.
type Passwd struct {
	Name   string
	Passwd string
	UID    uint32
	GID    uint32
	Gecos  string
	Dir    string
	Shell  string
}

// String renders the record as a passwd(5) line.
func (p *Passwd) String() string {
	return fmt.Sprintf("%s:%s:%d:%d:%s:%s:%s", p.Name, p.Passwd, p.UID, p.GID, p.Gecos, p.Dir, p.Shell)
}

// PasswdByName looks up a posixAccount by login name.
func (s *Service) PasswdByName(ctx context.Context, name string, buf *nss.Buffer) (*Passwd, error) {
	filter := fmt.Sprintf("(&(objectClass=posixAccount)(uid=%s))", ldap.EscapeFilter(name))
	return s.passwd(ctx, "getpwnam", filter, buf)
}

// PasswdByUID looks up a posixAccount by numeric user id.
func (s *Service) PasswdByUID(ctx context.Context, uid uint32, buf *nss.Buffer) (*Passwd, error) {
	filter := fmt.Sprintf("(&(objectClass=posixAccount)(uidNumber=%d))", uid)
	return s.passwd(ctx, "getpwuid", filter, buf)
}

func (s *Service) passwd(ctx context.Context, op, filter string, buf *nss.Buffer) (*Passwd, error) {
	entry, err := s.lookupOne(ctx, op, filter, passwdAttributes)
	if err != nil {
		return nil, err
	}
	return newPasswd(op, entry, buf)
}

func newPasswd(op string, entry *ldap.Entry, buf *nss.Buffer) (*Passwd, error) {
	name := firstValue(entry, "uid")
	if name == "" {
		// Accounts named only by their RDN.
		name, _ = ldapclient.ExtractRDNValue(entry.DN, "uid")
	}
	if name == "" {
		return nil, nss.NewError(op, nss.StatusNotFound, entry.DN+" has no uid", nil)
	}

	uid, err := idValue(op, entry, "uidNumber")
	if err != nil {
		return nil, err
	}

	gid, err := idValue(op, entry, "gidNumber")
	if err != nil {
		return nil, err
	}

	gecos := firstValue(entry, "gecos")
	if gecos == "" {
		gecos = firstValue(entry, "cn")
	}

	fields := []string{name, shadowPlaceholder, gecos, firstValue(entry, "homeDirectory"), firstValue(entry, "loginShell")}
	stored, err := putAll(buf, fields)
	if err != nil {
		return nil, err
	}

	return &Passwd{
		Name:   stored[0],
		Passwd: stored[1],
		UID:    uid,
		GID:    gid,
		Gecos:  stored[2],
		Dir:    stored[3],
		Shell:  stored[4],
	}, nil
}

// ParseID parses a decimal user or group id.
func ParseID(s string) (uint32, bool) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(id), true
}
