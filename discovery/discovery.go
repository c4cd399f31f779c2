// Package discovery locates service gateways through DNS. Operators publish
// _pipe._tcp SRV records naming gateway hosts, and optionally _pipe TXT
// records carrying full gateway URLs; a client with no configured base URL
// resolves either to find one.
package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	// defaultUpstream is the default recursive resolver for discovery queries.
	defaultUpstream = "8.8.8.8:53"

	// queryTimeout bounds a single DNS exchange.
	queryTimeout = 10 * time.Second

	// srvService is the SRV service label: _pipe._tcp.{domain}.
	srvService = "pipe"

	// txtPrefix marks gateway URLs inside _pipe.{domain} TXT records.
	txtPrefix = "pipe-gateway="
)

// Gateway is one discovered gateway candidate. Candidates are ordered by
// SRV priority (lower first), then weight (higher first).
type Gateway struct {
	URL      string
	Priority uint16
	Weight   uint16
}

// Resolver discovers gateways for a service domain.
type Resolver struct {
	// Upstream is the recursive resolver address (e.g., "8.8.8.8:53").
	Upstream string

	// exchange performs one DNS query. Injected in tests.
	exchange func(ctx context.Context, msg *dns.Msg) (*dns.Msg, error)
}

// NewResolver creates a Resolver. An empty upstream selects the default.
func NewResolver(upstream string) *Resolver {
	if upstream == "" {
		upstream = defaultUpstream
	}
	r := &Resolver{Upstream: upstream}
	r.exchange = func(ctx context.Context, msg *dns.Msg) (*dns.Msg, error) {
		client := &dns.Client{Timeout: queryTimeout}
		resp, _, err := client.ExchangeContext(ctx, msg, r.Upstream)
		return resp, err
	}
	return r
}

// Gateways resolves the gateway candidates for domain. TXT-published URLs
// come first (they carry explicit scheme and path), then SRV-derived HTTPS
// URLs in priority order. Returns ErrNoGateways if neither record exists.
func (r *Resolver) Gateways(ctx context.Context, domain string) ([]Gateway, error) {
	if strings.TrimSpace(domain) == "" {
		return nil, ErrEmptyDomain
	}

	var out []Gateway

	txts, txtErr := r.lookupTXT(ctx, "_pipe."+domain)
	if txtErr == nil {
		out = append(out, gatewaysFromTXT(txts)...)
	}

	srvs, srvErr := r.lookupSRV(ctx, fmt.Sprintf("_%s._tcp.%s", srvService, domain))
	if srvErr == nil {
		out = append(out, gatewaysFromSRV(srvs)...)
	}

	if txtErr != nil && srvErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLookupFailed, domain, srvErr)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoGateways, domain)
	}
	return out, nil
}

func (r *Resolver) lookupSRV(ctx context.Context, qname string) ([]*dns.SRV, error) {
	resp, err := r.query(ctx, qname, dns.TypeSRV)
	if err != nil {
		return nil, err
	}
	var srvs []*dns.SRV
	for _, rr := range resp.Answer {
		if srv, ok := rr.(*dns.SRV); ok {
			srvs = append(srvs, srv)
		}
	}
	return srvs, nil
}

func (r *Resolver) lookupTXT(ctx context.Context, qname string) ([]string, error) {
	resp, err := r.query(ctx, qname, dns.TypeTXT)
	if err != nil {
		return nil, err
	}
	var txts []string
	for _, rr := range resp.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			txts = append(txts, strings.Join(txt.Txt, ""))
		}
	}
	return txts, nil
}

func (r *Resolver) query(ctx context.Context, qname string, qtype uint16) (*dns.Msg, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(qname), qtype)
	msg.RecursionDesired = true

	resp, err := r.exchange(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s %s: %w",
			ErrLookupFailed, qname, dns.TypeToString[qtype], err)
	}
	if resp.Rcode != dns.RcodeSuccess && resp.Rcode != dns.RcodeNameError {
		return nil, fmt.Errorf("%w: query %s %s: rcode %s",
			ErrLookupFailed, qname, dns.TypeToString[qtype], dns.RcodeToString[resp.Rcode])
	}
	return resp, nil
}

// gatewaysFromSRV converts SRV records into HTTPS gateway candidates,
// ordered by priority then descending weight.
func gatewaysFromSRV(srvs []*dns.SRV) []Gateway {
	out := make([]Gateway, 0, len(srvs))
	for _, srv := range srvs {
		host := strings.TrimSuffix(srv.Target, ".")
		if host == "" {
			continue
		}
		u := "https://" + host
		if srv.Port != 0 && srv.Port != 443 {
			u = fmt.Sprintf("%s:%d", u, srv.Port)
		}
		out = append(out, Gateway{URL: u, Priority: srv.Priority, Weight: srv.Weight})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Weight > out[j].Weight
	})
	return out
}

// gatewaysFromTXT extracts pipe-gateway= URLs from TXT record strings.
func gatewaysFromTXT(txts []string) []Gateway {
	var out []Gateway
	for _, txt := range txts {
		for _, field := range strings.Fields(txt) {
			if !strings.HasPrefix(field, txtPrefix) {
				continue
			}
			u := strings.TrimPrefix(field, txtPrefix)
			if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
				out = append(out, Gateway{URL: u})
			}
		}
	}
	return out
}
