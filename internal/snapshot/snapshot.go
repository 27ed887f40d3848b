// Package snapshot builds the read-only capability index used to flag
// documentation that references functions, modules, files or commands
// that may not exist in the project.
package snapshot

import (
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// Snapshot is an immutable index of what a project defines.
// A nil *Snapshot knows nothing; every lookup on it returns false.
type Snapshot struct {
	Root      string    `json:"root"`
	BuiltAt   time.Time `json:"built_at"`
	Functions []string  `json:"functions"`
	Types     []string  `json:"types"`
	Modules   []string  `json:"modules"`
	Files     []string  `json:"files"`
	Commands  []string  `json:"commands"`
	Truncated bool      `json:"truncated,omitempty"` // Scan stopped at the file limit

	once      sync.Once
	functions map[string]struct{}
	types     map[string]struct{}
	modules   map[string]struct{}
	files     map[string]struct{}
	commands  map[string]struct{}
}

// index builds lookup sets on first use
func (s *Snapshot) index() {
	s.once.Do(func() {
		s.functions = toSet(s.Functions)
		s.types = toSet(s.Types)
		s.modules = toSet(s.Modules)
		s.files = toSet(s.Files)
		s.commands = toSet(s.Commands)
	})
}

// HasFunction reports whether a function or method name is defined
func (s *Snapshot) HasFunction(name string) bool {
	if s == nil {
		return false
	}
	s.index()
	_, ok := s.functions[name]
	return ok
}

// HasType reports whether a type or class name is defined
func (s *Snapshot) HasType(name string) bool {
	if s == nil {
		return false
	}
	s.index()
	_, ok := s.types[name]
	return ok
}

// HasModule reports whether an import path is covered by a known module.
// Go-style paths match any known module they are nested under.
func (s *Snapshot) HasModule(importPath string) bool {
	if s == nil {
		return false
	}
	s.index()
	if _, ok := s.modules[importPath]; ok {
		return true
	}
	for p := importPath; strings.Contains(p, "/"); {
		p = p[:strings.LastIndex(p, "/")]
		if _, ok := s.modules[p]; ok {
			return true
		}
	}
	return false
}

// HasFile reports whether a project-relative path is tracked
func (s *Snapshot) HasFile(rel string) bool {
	if s == nil {
		return false
	}
	s.index()
	clean := strings.TrimPrefix(path.Clean(strings.ReplaceAll(rel, "\\", "/")), "./")
	if _, ok := s.files[clean]; ok {
		return true
	}
	// bare file names match anywhere in the tree
	if !strings.Contains(clean, "/") {
		for _, f := range s.Files {
			if path.Base(f) == clean {
				return true
			}
		}
	}
	return false
}

// HasCommand reports whether the project provides a command
func (s *Snapshot) HasCommand(name string) bool {
	if s == nil {
		return false
	}
	s.index()
	_, ok := s.commands[name]
	return ok
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

// sortedKeys returns the set's members in sorted order
func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
