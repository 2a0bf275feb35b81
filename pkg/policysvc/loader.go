package policysvc

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// bundleFile is the on-disk shape of a policy bundle JSON file. It accepts
// both a single-insurer document (insurer/policy_version/drugs at the top
// level) and a multi-insurer document keyed by insurer name.
type bundleFile struct {
	Insurer       string                          `json:"insurer"`
	PolicyVersion string                          `json:"policy_version"`
	Drugs         map[string]domain.InsurerPolicy `json:"drugs"`
	Insurers      map[string]bundleFile           `json:"insurers"`
}

// Loader loads insurer policy bundles from a directory of JSON files,
// enabling formulary updates without a code deployment.
type Loader struct {
	mu      sync.RWMutex
	dir     string
	bundles map[string]Bundle
}

// NewLoader creates a Loader rooted at dir. No files are read until LoadAll
// or LoadFile is called.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, bundles: make(map[string]Bundle)}
}

// LoadAll loads every .json file in the loader's directory.
func (l *Loader) LoadAll() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("policysvc: read bundle dir %s: %w", l.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := l.LoadFile(filepath.Join(l.dir, entry.Name())); err != nil {
			return fmt.Errorf("policysvc: load %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// LoadFile loads a single policy bundle file, merging into any bundles
// already loaded for the same insurer.
func (l *Loader) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	var raw bundleFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse bundle: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(raw.Insurers) > 0 {
		for name, b := range raw.Insurers {
			l.bundles[name] = Bundle{Insurer: name, PolicyVersion: b.PolicyVersion, Drugs: b.Drugs}
		}
		return nil
	}

	insurer := raw.Insurer
	if insurer == "" {
		insurer = "Default Health Insurance"
	}
	l.bundles[insurer] = Bundle{Insurer: insurer, PolicyVersion: raw.PolicyVersion, Drugs: raw.Drugs}
	return nil
}

// Catalog builds an immutable Catalog snapshot from the bundles loaded so far.
func (l *Loader) Catalog() *Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()

	bundles := make([]Bundle, 0, len(l.bundles))
	for _, b := range l.bundles {
		bundles = append(bundles, b)
	}
	return NewCatalog(bundles...)
}
