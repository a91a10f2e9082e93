package web

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// scope decides which URLs belong to the crawl.
type scope struct {
	scheme  string
	host    string
	prefix  string
	exclude []string
}

func newScope(seed *url.URL, exclude []string) scope {
	return scope{
		scheme:  seed.Scheme,
		host:    seed.Host,
		prefix:  seed.Path,
		exclude: exclude,
	}
}

// allows reports whether u is on the seed's scheme and host, under its path,
// and not excluded.
func (s scope) allows(u *url.URL) bool {
	if u.Scheme != s.scheme || u.Host != s.host {
		return false
	}
	if !strings.HasPrefix(u.Path, s.prefix) {
		return false
	}
	full := u.String()
	for _, ex := range s.exclude {
		if ex == "" {
			continue
		}
		if strings.HasPrefix(u.Path, ex) || strings.HasPrefix(full, ex) {
			return false
		}
	}
	return true
}

// ParseSeed parses a seed URL, defaulting the scheme to https.
func ParseSeed(seed string) (*url.URL, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return nil, fmt.Errorf("empty seed url")
	}
	if !strings.Contains(seed, "://") {
		seed = "https://" + seed
	}
	u, err := url.Parse(seed)
	if err != nil {
		return nil, fmt.Errorf("parse seed %q: %w", seed, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("seed %q has no host", seed)
	}
	return normalise(u), nil
}

// normalise returns a canonical copy of u: lower-case scheme and host,
// default ports and fragment removed, trailing slash trimmed except at root.
func normalise(u *url.URL) *url.URL {
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)
	if (n.Scheme == "http" && strings.HasSuffix(n.Host, ":80")) ||
		(n.Scheme == "https" && strings.HasSuffix(n.Host, ":443")) {
		n.Host = n.Host[:strings.LastIndexByte(n.Host, ':')]
	}
	n.Fragment = ""
	n.RawFragment = ""
	n.User = nil
	if n.Path == "" {
		n.Path = "/"
	}
	if len(n.Path) > 1 {
		n.Path = strings.TrimRight(n.Path, "/")
		if n.Path == "" {
			n.Path = "/"
		}
	}
	n.RawPath = ""
	return &n
}

// parsePage extracts the title and the absolute, normalised link targets of
// a page. Links are returned in document order without duplicates.
func parsePage(base *url.URL, body string) (string, []*url.URL, error) {
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", nil, err
	}

	var (
		title string
		links []*url.URL
		seen  = make(map[string]bool)
	)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if title == "" && n.FirstChild != nil {
					title = strings.Join(strings.Fields(n.FirstChild.Data), " ")
				}
			case atom.A:
				for _, attr := range n.Attr {
					if attr.Key != "href" {
						continue
					}
					if u := resolve(base, attr.Val); u != nil && !seen[u.String()] {
						seen[u.String()] = true
						links = append(links, u)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return title, links, nil
}

func resolve(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}
	return normalise(u)
}
