// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package xadapt

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultRoot is the device tree root the x86_adapt kernel module
// creates on a stock install.
const DefaultRoot = "/dev/x86_adapt"

// ErrUnknownItem is returned by Catalog.Lookup for names the
// definitions file does not declare.
var ErrUnknownItem = errors.New("xadapt: unknown configuration item")

// Item identifies one CPU configuration item. Items are comparable
// and safe to use as map keys.
type Item struct {
	// Index is the item's dense position in the definitions file and
	// therefore its slot in every per-CPU device file.
	Index int

	// Name is the item's unique identifier, e.g.
	// "Intel_UNCORE_FREQUENCY_MIN".
	Name string

	// Description is the human-readable text from the definitions
	// file. May be empty.
	Description string

	// Writable reports whether the kernel module accepts writes to
	// this item ("rw" in the definitions file).
	Writable bool
}

// Catalog is the parsed definitions file: the full set of
// configuration items the kernel module exposes on this machine.
type Catalog struct {
	items  []Item
	byName map[string]Item
}

// LoadCatalog parses <root>/definitions.
func LoadCatalog(root string) (*Catalog, error) {
	path := filepath.Join(root, "definitions")
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("xadapt: opening definitions: %w", err)
	}
	defer file.Close()

	catalog := &Catalog{byName: make(map[string]Item)}
	scanner := bufio.NewScanner(file)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.SplitN(line, "\t", 3)
		if len(fields) < 2 {
			return nil, fmt.Errorf("xadapt: %s:%d: malformed definition %q (want NAME<TAB>ro|rw<TAB>DESCRIPTION)", path, lineNumber, line)
		}
		name := fields[0]
		if name == "" {
			return nil, fmt.Errorf("xadapt: %s:%d: empty item name", path, lineNumber)
		}
		if _, exists := catalog.byName[name]; exists {
			return nil, fmt.Errorf("xadapt: %s:%d: duplicate item name %q", path, lineNumber, name)
		}

		var writable bool
		switch fields[1] {
		case "ro":
			writable = false
		case "rw":
			writable = true
		default:
			return nil, fmt.Errorf("xadapt: %s:%d: access mode %q is neither ro nor rw", path, lineNumber, fields[1])
		}

		item := Item{
			Index:    len(catalog.items),
			Name:     name,
			Writable: writable,
		}
		if len(fields) == 3 {
			item.Description = strings.TrimSpace(fields[2])
		}
		catalog.items = append(catalog.items, item)
		catalog.byName[name] = item
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("xadapt: reading definitions: %w", err)
	}
	return catalog, nil
}

// Lookup resolves an item by name.
func (c *Catalog) Lookup(name string) (Item, error) {
	item, ok := c.byName[name]
	if !ok {
		return Item{}, fmt.Errorf("%w: %q", ErrUnknownItem, name)
	}
	return item, nil
}

// Items returns all configuration items in index order. The returned
// slice is shared; callers must not modify it.
func (c *Catalog) Items() []Item {
	return c.items
}

// Len returns the number of configuration items.
func (c *Catalog) Len() int {
	return len(c.items)
}

// ListCPUs returns the CPU indices that have a device file under
// <root>/cpu, in ascending order. Non-numeric directory entries are
// ignored.
func ListCPUs(root string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(root, "cpu"))
	if err != nil {
		return nil, fmt.Errorf("xadapt: listing cpu devices: %w", err)
	}
	var cpus []int
	for _, entry := range entries {
		cpu, err := strconv.Atoi(entry.Name())
		if err != nil || cpu < 0 {
			continue
		}
		cpus = append(cpus, cpu)
	}
	sort.Ints(cpus)
	return cpus, nil
}
