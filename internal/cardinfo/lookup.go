// Package cardinfo resolves card names to images over HTTP. Every
// failure degrades to "no image"; the tabletop works fine with blank
// card faces.
package cardinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const lookupTimeout = 5 * time.Second

// Info is the minimal metadata the tabletop needs for a card.
type Info struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Client looks up card images by exact name against a Scryfall-style
// endpoint and caches results in process.
type Client struct {
	base string
	http *http.Client
	log  *logrus.Logger

	mu    sync.Mutex
	cache map[string]Info
}

// New builds a lookup client. An empty base URL disables lookups
// entirely; every query returns a no-image Info.
func New(base string, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		http:  &http.Client{Timeout: lookupTimeout},
		log:   log,
		cache: make(map[string]Info),
	}
}

// Lookup resolves a card name to its image URL. It never fails; on any
// error the returned Info carries the name and an empty image.
func (c *Client) Lookup(ctx context.Context, name string) Info {
	fallback := Info{Name: name}
	if c.base == "" || name == "" {
		return fallback
	}

	key := strings.ToLower(name)
	c.mu.Lock()
	if info, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return info
	}
	c.mu.Unlock()

	info, err := c.fetch(ctx, name)
	if err != nil {
		c.log.WithField("card", name).WithError(err).Debug("card lookup failed")
		return fallback
	}

	c.mu.Lock()
	c.cache[key] = info
	c.mu.Unlock()
	return info
}

func (c *Client) fetch(ctx context.Context, name string) (Info, error) {
	u := c.base + "/cards/named?exact=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Info{}, fmt.Errorf("build lookup request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("card lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Info{}, fmt.Errorf("card lookup: status %d", resp.StatusCode)
	}

	var body struct {
		Name      string `json:"name"`
		ImageURIs struct {
			Normal string `json:"normal"`
			Small  string `json:"small"`
		} `json:"image_uris"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Info{}, fmt.Errorf("decode card lookup: %w", err)
	}

	info := Info{Name: name, Image: body.ImageURIs.Normal}
	if body.Name != "" {
		info.Name = body.Name
	}
	if info.Image == "" {
		info.Image = body.ImageURIs.Small
	}
	return info, nil
}
