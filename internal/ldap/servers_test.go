package ldap

import (
	"testing"
)

func TestParseServer(t *testing.T) {
	tests := []struct {
		name        string
		token       string
		defaultPort int
		useTLS      bool
		want        *ServerInfo
		wantErr     bool
	}{
		{
			name:        "bare host",
			token:       "ldap1.example.com",
			defaultPort: 389,
			want:        &ServerInfo{Host: "ldap1.example.com", Port: 389, Source: "config"},
		},
		{
			name:        "bare host with configured port",
			token:       "ldap1.example.com",
			defaultPort: 3389,
			want:        &ServerInfo{Host: "ldap1.example.com", Port: 3389, Source: "config"},
		},
		{
			name:        "bare host with ssl on",
			token:       "ldap1.example.com",
			defaultPort: 389,
			useTLS:      true,
			want:        &ServerInfo{Host: "ldap1.example.com", Port: 636, UseTLS: true, Source: "config"},
		},
		{
			name:        "host and port",
			token:       "10.0.0.1:1389",
			defaultPort: 389,
			want:        &ServerInfo{Host: "10.0.0.1", Port: 1389, Source: "config"},
		},
		{
			name:        "bracketed ipv6 with port",
			token:       "[2001:db8::1]:389",
			defaultPort: 389,
			want:        &ServerInfo{Host: "2001:db8::1", Port: 389, Source: "config"},
		},
		{
			name:        "unset port",
			token:       "ldap1.example.com",
			defaultPort: 0,
			want:        &ServerInfo{Host: "ldap1.example.com", Port: 389, Source: "config"},
		},
		{
			name:        "url overrides ssl mode",
			token:       "ldaps://ldap1.example.com",
			defaultPort: 389,
			want:        &ServerInfo{Host: "ldap1.example.com", Port: 636, UseTLS: true, Source: "url"},
		},
		{
			name:        "empty",
			token:       "  ",
			defaultPort: 389,
			wantErr:     true,
		},
		{
			name:        "port out of range",
			token:       "ldap1.example.com:70000",
			defaultPort: 389,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServer(tt.token, tt.defaultPort, tt.useTLS)

			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseServer(%q) expected error, got %+v", tt.token, got)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseServer(%q) unexpected error: %v", tt.token, err)
			}

			if *got != *tt.want {
				t.Errorf("ParseServer(%q) = %+v, want %+v", tt.token, got, tt.want)
			}
		})
	}
}

func TestParseLDAPURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    *ServerInfo
		wantErr bool
	}{
		{
			name: "ldaps with port",
			url:  "ldaps://ldap1.example.com:1636",
			want: &ServerInfo{Host: "ldap1.example.com", Port: 1636, UseTLS: true, Source: "url"},
		},
		{
			name: "ldap without port",
			url:  "ldap://ldap1.example.com",
			want: &ServerInfo{Host: "ldap1.example.com", Port: 389, Source: "url"},
		},
		{
			name: "ldaps without port",
			url:  "ldaps://ldap1.example.com/",
			want: &ServerInfo{Host: "ldap1.example.com", Port: 636, UseTLS: true, Source: "url"},
		},
		{
			name: "scheme is case-insensitive",
			url:  "LDAP://ldap1.example.com:389",
			want: &ServerInfo{Host: "ldap1.example.com", Port: 389, Source: "url"},
		},
		{
			name:    "empty URL",
			url:     "",
			wantErr: true,
		},
		{
			name:    "invalid scheme",
			url:     "https://ldap1.example.com",
			wantErr: true,
		},
		{
			name:    "invalid port",
			url:     "ldap://ldap1.example.com:abc",
			wantErr: true,
		},
		{
			name:    "missing host",
			url:     "ldap://:389",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLDAPURL(tt.url)

			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseLDAPURL(%q) expected error, got %+v", tt.url, got)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseLDAPURL(%q) unexpected error: %v", tt.url, err)
			}

			if *got != *tt.want {
				t.Errorf("ParseLDAPURL(%q) = %+v, want %+v", tt.url, got, tt.want)
			}
		})
	}
}

func TestServerInfoToURL(t *testing.T) {
	tests := []struct {
		server *ServerInfo
		want   string
	}{
		{&ServerInfo{Host: "ldap1.example.com", Port: 389}, "ldap://ldap1.example.com:389"},
		{&ServerInfo{Host: "ldap1.example.com", Port: 636, UseTLS: true}, "ldaps://ldap1.example.com:636"},
		{&ServerInfo{Host: "2001:db8::1", Port: 389}, "ldap://[2001:db8::1]:389"},
	}

	for _, tt := range tests {
		if got := ServerInfoToURL(tt.server); got != tt.want {
			t.Errorf("ServerInfoToURL(%+v) = %q, want %q", tt.server, got, tt.want)
		}
	}
}

func TestValidateServerInfo(t *testing.T) {
	if err := ValidateServerInfo(nil); err == nil {
		t.Error("ValidateServerInfo(nil) should fail")
	}
	if err := ValidateServerInfo(&ServerInfo{Port: 389}); err == nil {
		t.Error("ValidateServerInfo() should reject an empty host")
	}
	if err := ValidateServerInfo(&ServerInfo{Host: "h", Port: 0}); err == nil {
		t.Error("ValidateServerInfo() should reject port 0")
	}
	if err := ValidateServerInfo(&ServerInfo{Host: "h", Port: 389}); err != nil {
		t.Errorf("ValidateServerInfo() unexpected error: %v", err)
	}
}
