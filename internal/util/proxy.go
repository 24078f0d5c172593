package util

import (
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
)

// NewProxyFunc returns a proxy selector for explicit proxy settings.
// With no explicit proxies it defers to HTTP_PROXY/HTTPS_PROXY/NO_PROXY.
// noProxy accepts "*", host names (matching subdomains too), IPs and CIDRs.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	bypass := parseNoProxy(noProxy)

	return func(req *http.Request) (*url.URL, error) {
		if bypass.matches(req.URL.Hostname()) {
			return nil, nil
		}
		switch {
		case req.URL.Scheme == "https" && httpsProxy != "":
			return url.Parse(httpsProxy)
		case httpProxy != "":
			return url.Parse(httpProxy)
		default:
			return http.ProxyFromEnvironment(req)
		}
	}
}

type noProxyList struct {
	all      bool
	suffixes []string
	prefixes []netip.Prefix
}

func parseNoProxy(s string) noProxyList {
	var l noProxyList
	for _, entry := range strings.Split(s, ",") {
		entry = strings.ToLower(strings.TrimSpace(entry))
		switch {
		case entry == "":
		case entry == "*":
			l.all = true
		default:
			if p, err := netip.ParsePrefix(entry); err == nil {
				l.prefixes = append(l.prefixes, p.Masked())
				continue
			}
			if addr, err := netip.ParseAddr(entry); err == nil {
				l.prefixes = append(l.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
				continue
			}
			if host, _, err := net.SplitHostPort(entry); err == nil {
				entry = host
			}
			l.suffixes = append(l.suffixes, strings.TrimPrefix(entry, "."))
		}
	}
	return l
}

func (l noProxyList) matches(host string) bool {
	if l.all {
		return true
	}
	host = strings.ToLower(host)
	if addr, err := netip.ParseAddr(host); err == nil {
		for _, p := range l.prefixes {
			if p.Contains(addr.Unmap()) {
				return true
			}
		}
		return false
	}
	for _, s := range l.suffixes {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}
