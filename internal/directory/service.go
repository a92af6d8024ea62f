package directory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	ldapclient "github.com/isometry/nss-ldap/internal/ldap"
	"github.com/isometry/nss-ldap/internal/nss"
)

const subsystem = "directory"

// InitializeLogging registers the directory logging subsystem.
// Pattern: NSS_LDAP_LOG_DIRECTORY
func InitializeLogging(ctx context.Context) context.Context {
	return tflog.NewSubsystem(ctx, subsystem, tflog.WithLevelFromEnv("NSS_LDAP_LOG", subsystem))
}

// Searcher is the part of the LDAP client used by the name-service maps.
type Searcher interface {
	Search(ctx context.Context, req *ldapclient.SearchRequest) (*ldapclient.SearchResult, error)
	Scope() ldapclient.SearchScope
}

// Service answers passwd, group and hosts lookups from the directory.
type Service struct {
	client Searcher
}

// NewService creates a Service backed by the given client.
func NewService(client Searcher) *Service {
	return &Service{client: client}
}

// lookupOne runs a single-entry search below the configured base.
// An empty result is reported as NotFound.
func (s *Service) lookupOne(ctx context.Context, op, filter string, attributes []string) (*ldap.Entry, error) {
	fields := map[string]any{
		"lookup": op,
		"filter": filter,
	}
	tflog.SubsystemDebug(ctx, subsystem, "Looking up entry", fields)

	result, err := s.client.Search(ctx, &ldapclient.SearchRequest{
		Scope:      s.client.Scope(),
		Filter:     filter,
		Attributes: attributes,
		SizeLimit:  1,
	})
	if err != nil {
		status := ldapclient.StatusOf(err)
		fields["status"] = status.String()
		fields["error"] = err.Error()
		tflog.SubsystemWarn(ctx, subsystem, "Directory search failed", fields)
		return nil, nss.NewError(op, status, "search failed", err)
	}

	if result == nil || len(result.Entries) == 0 {
		tflog.SubsystemDebug(ctx, subsystem, "No matching entry", fields)
		return nil, nss.NewError(op, nss.StatusNotFound, "no matching entry", nil)
	}

	fields["dn"] = result.Entries[0].DN
	tflog.SubsystemTrace(ctx, subsystem, "Found entry", fields)

	return result.Entries[0], nil
}

// firstValue returns the first value of attr, matched case-insensitively.
func firstValue(entry *ldap.Entry, attr string) string {
	values := entry.GetEqualFoldAttributeValues(attr)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// idValue parses a numeric id attribute such as uidNumber.
func idValue(op string, entry *ldap.Entry, attr string) (uint32, error) {
	raw := firstValue(entry, attr)
	if raw == "" {
		return 0, nss.NewError(op, nss.StatusNotFound, fmt.Sprintf("%s has no %s", entry.DN, attr), nil)
	}

	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, nss.NewError(op, nss.StatusNotFound, fmt.Sprintf("%s has invalid %s %q", entry.DN, attr, raw), err)
	}

	return uint32(id), nil
}

// putAll copies each value into buf.
func putAll(buf *nss.Buffer, values []string) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}

	out := make([]string, 0, len(values))
	for _, v := range values {
		s, err := buf.Put(v)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	return out, nil
}
