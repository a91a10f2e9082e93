package web

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeed(t *testing.T) {
	tests := []struct {
		name    string
		seed    string
		want    string
		wantErr bool
	}{
		{"adds https", "csusb.edu/its", "https://csusb.edu/its", false},
		{"keeps http", "http://example.com/docs/", "http://example.com/docs", false},
		{"lower-cases host", "https://Example.COM/Path", "https://example.com/Path", false},
		{"root path", "https://example.com", "https://example.com/", false},
		{"drops fragment", "https://example.com/a#top", "https://example.com/a", false},
		{"empty", "  ", "", true},
		{"bad scheme", "ftp://example.com", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseSeed(tt.seed)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.String())
		})
	}
}

func TestScope_Allows(t *testing.T) {
	seed, err := ParseSeed("https://example.com/its")
	require.NoError(t, err)
	sc := newScope(seed, []string{"/its/archive", "https://example.com/its/old"})

	tests := []struct {
		raw  string
		want bool
	}{
		{"https://example.com/its", true},
		{"https://example.com/its/help", true},
		{"http://example.com/its/help", false},
		{"https://other.com/its/help", false},
		{"https://example.com/admissions", false},
		{"https://example.com/its/archive/2019", false},
		{"https://example.com/its/old-page", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			u, err := url.Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sc.allows(u))
		})
	}
}

func TestParsePage(t *testing.T) {
	base, err := url.Parse("https://example.com/its/")
	require.NoError(t, err)

	body := `<html><head><title> IT
	Services </title></head><body>
	<a href="help">Help</a>
	<a href="/its/help#faq">Help FAQ</a>
	<a href="https://EXAMPLE.com:443/its/wifi/">Wifi</a>
	<a href="#top">Top</a>
	<a href="javascript:void(0)">JS</a>
	<a>No href</a>
	</body></html>`

	title, links, err := parsePage(base, body)
	require.NoError(t, err)

	assert.Equal(t, "IT Services", title)
	var got []string
	for _, l := range links {
		got = append(got, l.String())
	}
	assert.Equal(t, []string{
		"https://example.com/its/help",
		"https://example.com/its/wifi",
	}, got)
}
