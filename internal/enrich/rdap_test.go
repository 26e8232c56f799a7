package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

const rdapFixture = `{
	"handle": "NET-203-0-113-0-1",
	"name": "EXAMPLE-HOSTING",
	"country": "FR",
	"cidr0_cidrs": [{"v4prefix": "203.0.113.0", "length": 24}],
	"arin_originas0_originautnums": [64500],
	"entities": [
		{
			"roles": ["registrant"],
			"vcardArray": ["vcard", [["version", {}, "text", "4.0"], ["email", {}, "text", "noc@example.net"]]]
		},
		{
			"roles": ["abuse"],
			"vcardArray": ["vcard", [["version", {}, "text", "4.0"], ["email", {}, "text", "abuse@example.net"]]]
		},
		{
			"roles": ["abuse"],
			"vcardArray": ["vcard", [["version", {}, "text", "4.0"], ["email", {}, "text", "second-abuse@example.net"]]]
		}
	]
}`

func TestLookupOwnership(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ip/203.0.113.10" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/rdap+json")
		w.Write([]byte(rdapFixture))
	}))
	defer ts.Close()

	c := NewRDAPClient(ts.URL, quietLogger())
	info := c.LookupOwnership(context.Background(), "203.0.113.10")

	if info.ASN != "64500" {
		t.Errorf("ASN = %q, want 64500", info.ASN)
	}
	if info.CIDR != "203.0.113.0/24" {
		t.Errorf("CIDR = %q, want 203.0.113.0/24", info.CIDR)
	}
	if info.CountryCode != "FR" {
		t.Errorf("CountryCode = %q, want FR", info.CountryCode)
	}
	if info.Description != "EXAMPLE-HOSTING" {
		t.Errorf("Description = %q, want EXAMPLE-HOSTING", info.Description)
	}
	// First abuse entity wins, in service-provided order.
	if info.AbuseEmail != "abuse@example.net" {
		t.Errorf("AbuseEmail = %q, want abuse@example.net", info.AbuseEmail)
	}
}

func TestLookupOwnershipNestedAbuseEntity(t *testing.T) {
	const nested = `{
		"name": "NESTED-NET",
		"entities": [
			{
				"roles": ["registrant"],
				"entities": [
					{
						"roles": ["abuse"],
						"vcardArray": ["vcard", [["version", {}, "text", "4.0"], ["email", {}, "text", "deep-abuse@example.net"]]]
					}
				]
			}
		]
	}`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(nested))
	}))
	defer ts.Close()

	c := NewRDAPClient(ts.URL, quietLogger())
	info := c.LookupOwnership(context.Background(), "203.0.113.10")

	if info.AbuseEmail != "deep-abuse@example.net" {
		t.Errorf("AbuseEmail = %q, want deep-abuse@example.net", info.AbuseEmail)
	}
}

func TestLookupOwnershipDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "Not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "no such network", http.StatusNotFound)
			},
		},
		{
			name: "Garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			c := NewRDAPClient(ts.URL, quietLogger())
			info := c.LookupOwnership(context.Background(), "203.0.113.10")

			empty := info.ASN == "" && info.CIDR == "" && info.CountryCode == "" &&
				info.Description == "" && info.AbuseEmail == ""
			if !empty {
				t.Errorf("ownership info not empty on failure: %+v", info)
			}
		})
	}
}

func TestLookupOwnershipPartialRecord(t *testing.T) {
	// Ownership record found but no abuse entity and no origin ASN.
	const partial = `{"name": "BARE-NET", "country": "DE", "entities": []}`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(partial))
	}))
	defer ts.Close()

	c := NewRDAPClient(ts.URL, quietLogger())
	info := c.LookupOwnership(context.Background(), "203.0.113.10")

	if info.CountryCode != "DE" || info.Description != "BARE-NET" {
		t.Errorf("partial fields lost: %+v", info)
	}
	if info.ASN != "" || info.CIDR != "" || info.AbuseEmail != "" {
		t.Errorf("missing fields not empty: %+v", info)
	}
}
