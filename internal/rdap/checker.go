// Package rdap checks domain registration status against authoritative RDAP
// servers, using the IANA bootstrap registry to find the right server per TLD.
package rdap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/guc1/domain-agent/internal/core"
)

// DefaultBootstrapURL is the IANA RDAP bootstrap registry for DNS.
const DefaultBootstrapURL = "https://data.iana.org/rdap/dns.json"

// Bootstrap lazily loads and caches the TLD-to-server mapping.
type Bootstrap struct {
	url    string
	client *http.Client

	mu     sync.Mutex
	tldMap map[string]string
	loaded bool
}

// NewBootstrap creates a bootstrap resolver for the given registry URL.
func NewBootstrap(url string, client *http.Client) *Bootstrap {
	if url == "" {
		url = DefaultBootstrapURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Bootstrap{url: url, client: client, tldMap: make(map[string]string)}
}

type bootstrapFile struct {
	Services [][]json.RawMessage `json:"services"`
}

// ServerForTLD returns the RDAP base URL serving a TLD, or "" when the
// bootstrap registry lists none.
func (b *Bootstrap) ServerForTLD(ctx context.Context, tld string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.loaded {
		if err := b.load(ctx); err != nil {
			return "", err
		}
		b.loaded = true
	}
	return b.tldMap[strings.ToLower(tld)], nil
}

func (b *Bootstrap) load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url, nil)
	if err != nil {
		return fmt.Errorf("create bootstrap request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch RDAP bootstrap data: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch RDAP bootstrap data: status %d", resp.StatusCode)
	}

	var file bootstrapFile
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return fmt.Errorf("decode RDAP bootstrap data: %w", err)
	}

	for _, service := range file.Services {
		if len(service) < 2 {
			continue
		}
		var tlds, servers []string
		if err := json.Unmarshal(service[0], &tlds); err != nil {
			continue
		}
		if err := json.Unmarshal(service[1], &servers); err != nil {
			continue
		}
		if len(servers) == 0 {
			continue
		}
		base := servers[0]
		for _, url := range servers {
			if strings.HasPrefix(url, "https://") {
				base = url
				break
			}
		}
		for _, tld := range tlds {
			b.tldMap[strings.ToLower(tld)] = base
		}
	}
	return nil
}

// Checker implements core.AvailabilityChecker with direct RDAP lookups
// (LOCAL checking mode).
type Checker struct {
	bootstrap *Bootstrap
	client    *http.Client
	log       core.Logger
}

// NewChecker builds an RDAP checker. timeout bounds each lookup request.
func NewChecker(bootstrap *Bootstrap, timeout time.Duration, log core.Logger) *Checker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Checker{
		bootstrap: bootstrap,
		client:    &http.Client{Timeout: timeout},
		log:       log,
	}
}

// Check queries the authoritative RDAP server for the name's TLD. A 200 reply
// means the domain is registered; anything else means it is not. A TLD with
// no RDAP server is reported available, matching registries that simply have
// no RDAP coverage.
func (c *Checker) Check(ctx context.Context, name string) (core.Status, error) {
	name = core.NormalizeDomain(name)
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return "", fmt.Errorf("domain %q has no TLD", name)
	}
	tld := name[idx+1:]

	base, err := c.bootstrap.ServerForTLD(ctx, tld)
	if err != nil {
		return "", err
	}
	if base == "" {
		c.log.Warn("no RDAP server for TLD, assuming available", "name", name, "tld", tld)
		return core.StatusAvailable, nil
	}

	url := strings.TrimSuffix(base, "/") + "/domain/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create RDAP request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("RDAP lookup for %s: %w", name, err)
	}
	defer resp.Body.Close()

	status := core.StatusAvailable
	if resp.StatusCode == http.StatusOK {
		status = core.StatusTaken
	}
	c.log.Debug("RDAP lookup", "name", name, "status_code", resp.StatusCode, "decision", status)
	return status, nil
}
