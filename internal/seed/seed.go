// Package seed loads system graphs from HCL seed files into a store.
//
// A seed file declares systems and the interfaces between them:
//
//	system "Gateway" {
//	  category = "Backend"
//	  parent   = "Platform"   # optional
//	}
//
//	interface {
//	  from        = "Gateway"
//	  to          = "Cache"
//	  type        = "Internal"
//	  directional = false      # optional, defaults to true
//	}
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

//go:embed default.hcl
var defaultSeed []byte

// System is a seeded system.
type System struct {
	Name     string `hcl:"name,label"`
	Category string `hcl:"category,optional"`
	Parent   string `hcl:"parent,optional"`
}

// Interface is a seeded interface.
type Interface struct {
	From        string `hcl:"from"`
	To          string `hcl:"to"`
	Type        string `hcl:"type,optional"`
	Directional *bool  `hcl:"directional,optional"`
}

// IsDirectional reports the interface direction; unset means directional.
func (i Interface) IsDirectional() bool {
	return i.Directional == nil || *i.Directional
}

// File is a decoded seed file.
type File struct {
	Systems    []System    `hcl:"system,block"`
	Interfaces []Interface `hcl:"interface,block"`
}

// Default returns the built-in seed.
func Default() (*File, error) {
	return Parse(defaultSeed, "default.hcl")
}

// Load resolves a seed reference: "default" names the built-in seed,
// anything else is a file path.
func Load(ref string) (*File, error) {
	if ref == "default" {
		return Default()
	}
	return LoadFile(ref)
}

// LoadFile parses and validates the seed file at path.
func LoadFile(path string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, diags)
	}
	return decode(hclFile.Body, path)
}

// Parse parses and validates seed source. filename is used in diagnostics.
func Parse(src []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", filename, diags)
	}
	return decode(hclFile.Body, filename)
}

func decode(body hcl.Body, filename string) (*File, error) {
	var f File
	if diags := gohcl.DecodeBody(body, nil, &f); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode seed file %s: %w", filename, diags)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid seed file %s: %w", filename, err)
	}
	return &f, nil
}

// Validate trims surrounding whitespace from every system name, parent and
// interface endpoint in place, then checks that system names are unique and
// non-empty and that every parent and interface endpoint names a system
// declared in the file. The hierarchy must be a forest. All problems are
// reported together.
func (f *File) Validate() error {
	f.normalize()

	var errs []error
	known := make(map[string]bool, len(f.Systems))
	for _, s := range f.Systems {
		switch {
		case s.Name == "":
			errs = append(errs, errors.New("system with empty name"))
		case known[s.Name]:
			errs = append(errs, fmt.Errorf("system %q declared twice", s.Name))
		}
		known[s.Name] = true
	}
	parent := make(map[string]string, len(f.Systems))
	for _, s := range f.Systems {
		if s.Parent == "" {
			continue
		}
		if !known[s.Parent] {
			errs = append(errs, fmt.Errorf("system %q: unknown parent %q", s.Name, s.Parent))
		}
		parent[s.Name] = s.Parent
	}
	for _, s := range f.Systems {
		seen := map[string]bool{s.Name: true}
		for p := parent[s.Name]; p != ""; p = parent[p] {
			if seen[p] {
				errs = append(errs, fmt.Errorf("system %q: parent chain loops", s.Name))
				break
			}
			seen[p] = true
		}
	}
	for i, iface := range f.Interfaces {
		for _, end := range []string{iface.From, iface.To} {
			if !known[end] {
				errs = append(errs, fmt.Errorf("interface %d: unknown system %q", i+1, end))
			}
		}
	}
	return errors.Join(errs...)
}

func (f *File) normalize() {
	for i := range f.Systems {
		s := &f.Systems[i]
		s.Name = strings.TrimSpace(s.Name)
		s.Parent = strings.TrimSpace(s.Parent)
	}
	for i := range f.Interfaces {
		iface := &f.Interfaces[i]
		iface.From = strings.TrimSpace(iface.From)
		iface.To = strings.TrimSpace(iface.To)
	}
}
