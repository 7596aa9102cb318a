package dream

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kbukum/phrame/httpclient"
)

// Style is one entry of the Dream style catalogue.
type Style struct {
	ID   int    `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// LoadStyles reads a YAML list of styles.
func LoadStyles(path string) ([]Style, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read styles: %w", err)
	}
	var styles []Style
	if err := yaml.Unmarshal(data, &styles); err != nil {
		return nil, fmt.Errorf("parse styles %s: %w", path, err)
	}
	return styles, nil
}

// catalogue maps lower-cased style names to ids. It is filled from the
// styles file when configured, otherwise from GET /api/styles/ on first
// use. A failed fetch is retried on the next lookup.
type catalogue struct {
	mu     sync.Mutex
	byName map[string]int
	fetch  func(ctx context.Context) ([]Style, error)
}

func newCatalogue(styles []Style, fetch func(ctx context.Context) ([]Style, error)) *catalogue {
	c := &catalogue{fetch: fetch}
	if styles != nil {
		c.fill(styles)
	}
	return c
}

func (c *catalogue) fill(styles []Style) {
	c.byName = make(map[string]int, len(styles))
	for _, s := range styles {
		c.byName[strings.ToLower(strings.TrimSpace(s.Name))] = s.ID
	}
}

// lookup returns the id for name, matched case-insensitively.
func (c *catalogue) lookup(ctx context.Context, name string) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byName == nil {
		styles, err := c.fetch(ctx)
		if err != nil {
			return 0, false, err
		}
		c.fill(styles)
	}
	id, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return id, ok, nil
}

func remoteStyles(client *httpclient.Adapter) func(ctx context.Context) ([]Style, error) {
	return func(ctx context.Context) ([]Style, error) {
		resp, err := httpclient.Get[[]Style](client, ctx, "/api/styles/")
		if err != nil {
			return nil, err
		}
		return resp.Data, nil
	}
}
