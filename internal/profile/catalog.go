package profile

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/kartoza/kartoza-portal-recorder/internal/experimental"
	"github.com/kartoza/kartoza-portal-recorder/internal/media"
	"github.com/kartoza/kartoza-portal-recorder/internal/recerr"
)

// CatalogVersion is the only catalog document version understood
const CatalogVersion = 1

//go:embed profiles.yaml
var builtinCatalog []byte

type catalogDocument struct {
	Version      int        `yaml:"version"`
	Supported    []*Profile `yaml:"supported"`
	Experimental []*Profile `yaml:"experimental"`
}

// Catalog is the list of known profiles, supported first
type Catalog struct {
	profiles []*Profile
}

// Parse reads and validates a catalog document
func Parse(data []byte) (*Catalog, error) {
	var doc catalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse profile catalog: %w", err)
	}
	if doc.Version != CatalogVersion {
		return nil, fmt.Errorf("unsupported profile catalog version %d", doc.Version)
	}

	for _, p := range doc.Experimental {
		p.Experimental = true
	}
	c := &Catalog{profiles: append(doc.Supported, doc.Experimental...)}

	seen := map[string]struct{}{}
	for _, p := range c.profiles {
		if p.ID == "" || p.Extension == "" {
			return nil, fmt.Errorf("profile %q needs an id and an extension", p.Name)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("duplicate profile id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
		if _, err := p.parse(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

var (
	builtinOnce sync.Once
	builtin     *Catalog
	builtinErr  error
)

// Builtin returns the catalog shipped with the binary, parsed once
func Builtin() (*Catalog, error) {
	builtinOnce.Do(func() {
		builtin, builtinErr = Parse(builtinCatalog)
	})
	return builtin, builtinErr
}

// All returns every profile, experimental ones flagged
func (c *Catalog) All() []*Profile {
	return append([]*Profile(nil), c.profiles...)
}

// Visible returns the supported profiles, plus the experimental ones when
// experimental formats are enabled
func (c *Catalog) Visible(features experimental.Features) []*Profile {
	var out []*Profile
	for _, p := range c.profiles {
		if p.Experimental && !features.Enabled(experimental.ExperimentalFormats) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Available returns the visible profiles whose elements are all installed
func (c *Catalog) Available(ctx context.Context, features experimental.Features, inspector media.Inspector) []*Profile {
	var out []*Profile
	for _, p := range c.Visible(features) {
		if p.IsAvailable(ctx, inspector) {
			out = append(out, p)
		}
	}
	return out
}

// Get looks a profile up by id
func (c *Catalog) Get(id string) (*Profile, error) {
	for _, p := range c.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, recerr.Config("get profile", fmt.Sprintf("unknown profile %q", id))
}
