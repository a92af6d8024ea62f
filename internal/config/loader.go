package config

import (
	"bufio"
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"time"

	"github.com/hashicorp/terraform-plugin-log/tflog"
	"github.com/spf13/afero"

	"github.com/isometry/nss-ldap/internal/nss"
)

const subsystem = "config"

// Loader reads the configuration file.
//
// Crypt holds the password-hash scheme selector. It is written as a side
// effect of parsing a "crypt" directive and keeps its value across loads, so
// a file with an unrecognised value leaves the previous selection in place.
type Loader struct {
	Path  string
	Crypt CryptScheme

	// Fs is the filesystem Path is read from. Nil means the OS filesystem.
	Fs afero.Fs
}

// NewLoader returns a Loader for path on the OS filesystem, or for
// DefaultPath when path is empty.
func NewLoader(path string) *Loader {
	if path == "" {
		path = DefaultPath
	}
	return &Loader{Path: path, Fs: afero.NewOsFs()}
}

func (l *Loader) fs() afero.Fs {
	if l.Fs == nil {
		return afero.NewOsFs()
	}
	return l.Fs
}

// initializeLogging registers the config logging subsystem.
// Pattern: NSS_LDAP_LOG_CONFIG
func initializeLogging(ctx context.Context) context.Context {
	return tflog.NewSubsystem(ctx, subsystem, tflog.WithLevelFromEnv("NSS_LDAP_LOG", subsystem))
}

// Load parses the configuration file into cfg, allocating a record when cfg is nil.
//
// String values are accounted against buf: each one needs len(value)+1 bytes
// and a value that does not fit stops the scan with a TryAgain error. The
// record is returned on every path that could allocate it, including error
// paths, so that fields parsed before a failure remain visible to the caller.
//
// The first problem wins: buffer exhaustion takes precedence over a missing
// host or base, which yields NotFound.
func (l *Loader) Load(ctx context.Context, cfg *Config, buf *nss.Buffer) (*Config, error) {
	ctx = initializeLogging(ctx)

	if cfg == nil {
		cfg = &Config{}
	}
	cfg.reset()

	if buf == nil {
		buf = nss.NewBuffer(0)
	}

	f, err := l.fs().Open(l.Path)
	if err != nil {
		tflog.SubsystemWarn(ctx, subsystem, "Cannot open configuration file", map[string]any{
			"path":  l.Path,
			"error": err.Error(),
		})
		return cfg, nss.NewError("readconfig", nss.StatusUnavailable, "cannot open "+l.Path, err)
	}
	defer f.Close()

	tflog.SubsystemDebug(ctx, subsystem, "Reading configuration file", map[string]any{
		"path":       l.Path,
		"buffer_len": buf.Remaining(),
	})

	exhausted, err := l.parse(ctx, f, cfg, buf)
	if err != nil {
		return cfg, nss.NewError("readconfig", nss.StatusUnavailable, "cannot read "+l.Path, err)
	}

	if exhausted {
		tflog.SubsystemWarn(ctx, subsystem, "Scratch buffer exhausted while reading configuration", map[string]any{
			"path":       l.Path,
			"buffer_len": buf.Cap(),
		})
		return cfg, nss.NewError("readconfig", nss.StatusTryAgain, "scratch buffer exhausted", nil)
	}

	if !cfg.HasHost() || !cfg.HasBase() {
		tflog.SubsystemWarn(ctx, subsystem, "Configuration is missing mandatory settings", map[string]any{
			"path":     l.Path,
			"has_host": cfg.HasHost(),
			"has_base": cfg.HasBase(),
		})
		return cfg, nss.NewError("readconfig", nss.StatusNotFound, "host and base must be configured", nil)
	}

	tflog.SubsystemInfo(ctx, subsystem, "Configuration loaded", map[string]any{
		"path":        l.Path,
		"host":        cfg.Host,
		"base":        cfg.Base,
		"binddn":      cfg.BindDN,
		"port":        cfg.Port,
		"scope":       cfg.Scope.String(),
		"crypt":       l.Crypt.String(),
		"buffer_used": buf.Len(),
	})

	return cfg, nil
}

// parse scans r line by line, reporting whether the buffer ran out.
func (l *Loader) parse(ctx context.Context, r io.Reader, cfg *Config, buf *nss.Buffer) (bool, error) {
	br := bufio.NewReader(r)

	for lineNo := 1; ; lineNo++ {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		if line == "" && err != nil {
			return false, nil
		}

		key, value, ok := splitDirective(line)
		if ok {
			if target := cfg.stringField(key); target != nil {
				if !buf.Fits(len(value) + 1) {
					tflog.SubsystemDebug(ctx, subsystem, "Value does not fit in scratch buffer", map[string]any{
						"line":      lineNo,
						"key":       key,
						"value_len": len(value),
						"remaining": buf.Remaining(),
					})
					return true, nil
				}
				s, putErr := buf.Put(value)
				if putErr != nil {
					return true, nil
				}
				*target = s
			} else if !l.apply(cfg, key, value) {
				tflog.SubsystemTrace(ctx, subsystem, "Ignoring configuration directive", map[string]any{
					"line": lineNo,
					"key":  key,
				})
			}
		}

		if err != nil {
			return false, nil
		}
	}
}

// splitDirective splits a raw line into key and value.
//
// Exactly one trailing newline is removed. Blank lines and lines starting with
// '#' are skipped. The key is the first space- or tab-delimited token; the value
// is the remainder after the single delimiter that ends the key, taken verbatim.
func splitDirective(line string) (key, value string, ok bool) {
	line = strings.TrimSuffix(line, "\n")
	if line == "" || line[0] == '#' {
		return "", "", false
	}

	line = strings.TrimLeft(line, " \t")
	end := strings.IndexAny(line, " \t")
	if end <= 0 {
		return "", "", false
	}

	key, value = line[:end], line[end+1:]
	if value == "" {
		return "", "", false
	}

	return key, value, true
}

// stringField returns the record field backing a string-valued key.
func (c *Config) stringField(key string) *string {
	switch key {
	case KeyHost:
		return &c.Host
	case KeyBase:
		return &c.Base
	case KeyBindDN:
		return &c.BindDN
	case KeyBindPW:
		return &c.BindPW
	case KeySASLMech:
		return &c.SASLMech
	case KeySASLAuthID:
		return &c.SASLAuthID
	case KeyKrb5Realm:
		return &c.Krb5Realm
	case KeyKrb5Keytab:
		return &c.Krb5Keytab
	case KeyKrb5CCName:
		return &c.Krb5CCName
	case KeyKrb5Conf:
		return &c.Krb5Conf
	default:
		return nil
	}
}

// apply handles the keys that do not consume buffer space.
// It reports whether key was recognised.
func (l *Loader) apply(cfg *Config, key, value string) bool {
	switch key {
	case KeyCrypt:
		if scheme, ok := ParseCryptScheme(value); ok {
			l.Crypt = scheme
		}
	case KeyScope:
		if scope, ok := ParseScope(value); ok {
			cfg.Scope = scope
		}
	case KeySSL:
		if mode, ok := ParseSSLMode(value); ok {
			cfg.SSL = mode
		}
	case KeyPort:
		cfg.Port = atoi(value)
	case KeyTimeLimit:
		cfg.TimeLimit = time.Duration(atoi(value)) * time.Second
	case KeyBindTimeLimit:
		cfg.BindTimeLimit = time.Duration(atoi(value)) * time.Second
	default:
		return false
	}
	return true
}

// atoi converts the leading decimal integer of s, ignoring trailing text.
// Leading whitespace and a sign are accepted; text without digits yields 0.
func atoi(s string) int {
	s = strings.TrimLeft(s, " \t\n\v\f\r")

	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}

	n := 0
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
		if n > math.MaxInt32 {
			n = math.MaxInt32
			break
		}
	}

	if neg {
		return -n
	}
	return n
}
