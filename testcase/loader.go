package testcase

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile parses one YAML document holding a map of test-case id to body.
// Returned models are sorted by id so enumeration order does not depend on
// map iteration.
func LoadFile(path string) ([]*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read test case file: %w", err)
	}
	var raw map[string]*Model
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse test case file %s: %w", path, err)
	}
	models := make([]*Model, 0, len(raw))
	for id, m := range raw {
		if m == nil {
			return nil, fmt.Errorf("test case %q in %s has an empty body", id, path)
		}
		m.ID = id
		if err := m.check(); err != nil {
			return nil, fmt.Errorf("test case %q in %s: %w", id, path, err)
		}
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// LoadPaths loads every .yaml/.yml file reachable from the given paths,
// recursing into directories. Files are visited in deterministic order.
func LoadPaths(paths []string) ([]*Model, error) {
	var all []*Model
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat test case path: %w", err)
		}
		if !info.IsDir() {
			models, err := LoadFile(p)
			if err != nil {
				return nil, err
			}
			all = append(all, models...)
			continue
		}
		err = filepath.Walk(p, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() || !isYAML(path) {
				return nil
			}
			models, err := LoadFile(path)
			if err != nil {
				return err
			}
			all = append(all, models...)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	seen := make(map[string]bool, len(all))
	for _, m := range all {
		if seen[m.ID] {
			return nil, fmt.Errorf("duplicate test case id %q", m.ID)
		}
		seen[m.ID] = true
	}
	return all, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// check enforces the structural constraints a model must satisfy before it
// may be expanded. Fork-range validity is checked later against the
// registry, together with any command-line filter.
func (m *Model) check() error {
	if m.Forks.From == "" {
		return fmt.Errorf("missing fork range lower bound")
	}
	if len(m.Blocks) == 0 {
		return fmt.Errorf("no blocks declared")
	}
	for i, b := range m.Blocks {
		if len(b.Txs) == 0 {
			return fmt.Errorf("block %d has no transactions", i)
		}
		for j, tx := range b.Txs {
			if tx.SecretKey == "" {
				return fmt.Errorf("block %d tx %d has no secret key", i, j)
			}
			if tx.Gas == 0 {
				return fmt.Errorf("block %d tx %d has no gas limit", i, j)
			}
		}
	}
	for name, domain := range m.Params {
		if len(domain) == 0 {
			return fmt.Errorf("parameter %q has an empty domain", name)
		}
	}
	for addr, acct := range m.Pre {
		if acct == nil {
			return fmt.Errorf("pre-state account %s has an empty body", addr)
		}
		if acct.Code != "" && acct.Source != nil {
			return fmt.Errorf("pre-state account %s declares both code and source", addr)
		}
	}
	return nil
}
