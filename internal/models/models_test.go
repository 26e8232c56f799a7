package models

import (
	"testing"
	"time"
)

// TestParseState tests decoding of the raw StillInvestig column value
func TestParseState(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		valid    bool
		wantKind StateKind
		wantN    int
	}{
		{
			name:     "SQL NULL is unset",
			raw:      "",
			valid:    false,
			wantKind: StateUnset,
		},
		{
			name:     "Empty string is unset",
			raw:      "",
			valid:    true,
			wantKind: StateUnset,
		},
		{
			name:     "Whitespace is unset",
			raw:      "  ",
			valid:    true,
			wantKind: StateUnset,
		},
		{
			name:     "Single digit counter",
			raw:      "1",
			valid:    true,
			wantKind: StateAttempts,
			wantN:    1,
		},
		{
			name:     "Multi digit counter",
			raw:      "12",
			valid:    true,
			wantKind: StateAttempts,
			wantN:    12,
		},
		{
			name:     "Exhausted sentinel",
			raw:      "Disabled",
			valid:    true,
			wantKind: StateExhausted,
		},
		{
			name:     "Resolved timestamp",
			raw:      "2019-03-14T08:30:00",
			valid:    true,
			wantKind: StateResolved,
		},
		{
			name:     "Garbage falls back to unset",
			raw:      "?",
			valid:    true,
			wantKind: StateUnset,
		},
		{
			name:     "Negative number falls back to unset",
			raw:      "-3",
			valid:    true,
			wantKind: StateUnset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseState(tt.raw, tt.valid)
			if got.Kind != tt.wantKind {
				t.Fatalf("ParseState(%q) kind = %v, want %v", tt.raw, got.Kind, tt.wantKind)
			}
			if tt.wantKind == StateAttempts && got.Attempts != tt.wantN {
				t.Errorf("ParseState(%q) attempts = %d, want %d", tt.raw, got.Attempts, tt.wantN)
			}
		})
	}
}

// TestEncodeRoundTrip verifies that every state shape survives the trip
// through its scalar column encoding
func TestEncodeRoundTrip(t *testing.T) {
	ts := time.Date(2019, 3, 14, 8, 30, 0, 0, time.UTC)

	states := []InvestigationState{
		Unset(),
		WithAttempts(1),
		WithAttempts(3),
		Exhausted(),
		ResolvedAt(ts),
	}

	for _, s := range states {
		raw := s.Encode()
		got := ParseState(raw, raw != "")
		if got.Kind != s.Kind {
			t.Errorf("round trip of %v: kind = %v, want %v (raw %q)", s, got.Kind, s.Kind, raw)
		}
		if s.Kind == StateAttempts && got.Attempts != s.Attempts {
			t.Errorf("round trip of attempts: got %d, want %d", got.Attempts, s.Attempts)
		}
		if s.Kind == StateResolved && !got.ResolvedAt.Equal(ts) {
			t.Errorf("round trip of resolved: got %v, want %v", got.ResolvedAt, ts)
		}
	}
}

func TestEncodeResolvedIsUTCSecondPrecision(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	s := ResolvedAt(time.Date(2019, 3, 14, 9, 30, 0, 123456789, loc))
	if got, want := s.Encode(), "2019-03-14T08:30:00"; got != want {
		t.Fatalf("Encode() = %q, want %q", got, want)
	}
}

func TestAttemptCount(t *testing.T) {
	if got := Unset().AttemptCount(); got != 0 {
		t.Errorf("unset AttemptCount() = %d, want 0", got)
	}
	if got := WithAttempts(2).AttemptCount(); got != 2 {
		t.Errorf("AttemptCount() = %d, want 2", got)
	}
	if got := Exhausted().AttemptCount(); got != 0 {
		t.Errorf("exhausted AttemptCount() = %d, want 0", got)
	}
}

func TestParentDomain(t *testing.T) {
	tests := []struct {
		name     string
		hostname string
		want     string
	}{
		{
			name:     "Apex stays apex",
			hostname: "example.com",
			want:     "example.com",
		},
		{
			name:     "Subdomain collapses to apex",
			hostname: "mail.example.com",
			want:     "example.com",
		},
		{
			name:     "Deep subdomain",
			hostname: "a.b.example.co.uk",
			want:     "example.co.uk",
		},
		{
			name:     "Wildcard prefix stripped",
			hostname: "*.example.com",
			want:     "example.com",
		},
		{
			name:     "Bare TLD returned unchanged",
			hostname: "com",
			want:     "com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParentDomain(tt.hostname); got != tt.want {
				t.Errorf("ParentDomain(%q) = %q, want %q", tt.hostname, got, tt.want)
			}
		})
	}
}
