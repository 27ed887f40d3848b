package snapshot

import (
	"encoding/json"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/modfile"
)

// Options bound the project scan
type Options struct {
	MaxFiles int // Stop after this many files (0 = 20000)
}

var (
	pyDefPattern   = regexp.MustCompile(`(?m)^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)`)
	pyClassPattern = regexp.MustCompile(`(?m)^\s*class\s+([A-Za-z_]\w*)`)
	jsFuncPattern  = regexp.MustCompile(`(?m)\bfunction\s+([A-Za-z_$][\w$]*)`)
	jsClassPattern = regexp.MustCompile(`(?m)\bclass\s+([A-Za-z_$][\w$]*)`)
	requirementSep = regexp.MustCompile(`[\s<>=!~;\[(]`)
)

// maxSourceBytes skips very large generated sources
const maxSourceBytes = 1 << 20

type builder struct {
	root      string
	functions map[string]struct{}
	types     map[string]struct{}
	modules   map[string]struct{}
	files     map[string]struct{}
	commands  map[string]struct{}
	fset      *token.FileSet
}

// Build scans root and returns its capability snapshot. Unreadable files are
// skipped; only a missing or non-directory root is an error.
func Build(root string, opts Options) (*Snapshot, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root is not a directory: %s", abs)
	}

	maxFiles := opts.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 20000
	}

	b := &builder{
		root:      abs,
		functions: make(map[string]struct{}),
		types:     make(map[string]struct{}),
		modules:   make(map[string]struct{}),
		files:     make(map[string]struct{}),
		commands:  make(map[string]struct{}),
		fset:      token.NewFileSet(),
	}

	truncated := false
	count := 0

	_ = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if p != abs && skipDir(name) {
				return filepath.SkipDir
			}
			b.visitDir(p)
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		count++
		if count > maxFiles {
			truncated = true
			return filepath.SkipAll
		}

		b.visitFile(p, d)
		return nil
	})

	return &Snapshot{
		Root:      abs,
		BuiltAt:   time.Now().UTC(),
		Functions: sortedKeys(b.functions),
		Types:     sortedKeys(b.types),
		Modules:   sortedKeys(b.modules),
		Files:     sortedKeys(b.files),
		Commands:  sortedKeys(b.commands),
		Truncated: truncated,
	}, nil
}

func skipDir(name string) bool {
	switch name {
	case "node_modules", "vendor", "__pycache__", "dist", "build", "target":
		return true
	}
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func (b *builder) rel(p string) string {
	r, err := filepath.Rel(b.root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(r)
}

func (b *builder) visitDir(p string) {
	rel := b.rel(p)
	if rel == "." {
		return
	}

	// cmd/<name> directories build binaries
	if filepath.Base(filepath.Dir(p)) == "cmd" {
		b.commands[filepath.Base(p)] = struct{}{}
	}

	// Python packages
	if _, err := os.Stat(filepath.Join(p, "__init__.py")); err == nil {
		b.modules[filepath.Base(p)] = struct{}{}
		b.modules[strings.ReplaceAll(rel, "/", ".")] = struct{}{}
	}
}

func (b *builder) visitFile(p string, d fs.DirEntry) {
	rel := b.rel(p)
	b.files[rel] = struct{}{}

	name := d.Name()
	ext := strings.ToLower(filepath.Ext(name))
	dir := filepath.Base(filepath.Dir(p))

	if dir == "bin" || dir == "scripts" {
		if info, err := d.Info(); err == nil && info.Mode()&0111 != 0 {
			b.commands[strings.TrimSuffix(name, filepath.Ext(name))] = struct{}{}
		}
	}

	switch name {
	case "go.mod":
		b.commands["go"] = struct{}{}
		b.readGoMod(p)
		return
	case "pyproject.toml":
		b.commands["python"] = struct{}{}
		b.commands["pip"] = struct{}{}
		b.readPyProject(p)
		return
	case "Cargo.toml":
		b.commands["cargo"] = struct{}{}
		b.readCargo(p)
		return
	case "package.json":
		b.commands["npm"] = struct{}{}
		b.commands["npx"] = struct{}{}
		b.readPackageJSON(p)
		return
	case "Makefile", "makefile", "GNUmakefile":
		b.commands["make"] = struct{}{}
		return
	}

	switch ext {
	case ".go":
		b.readGo(p)
	case ".py":
		// top-level modules are importable by file name
		if !strings.Contains(rel, "/") {
			b.modules[strings.TrimSuffix(name, ext)] = struct{}{}
		}
		b.readRegex(p, pyDefPattern, pyClassPattern)
	case ".js", ".ts", ".mjs", ".tsx", ".jsx":
		b.readRegex(p, jsFuncPattern, jsClassPattern)
	}
}

func (b *builder) readSource(p string) ([]byte, bool) {
	info, err := os.Stat(p)
	if err != nil || info.Size() > maxSourceBytes {
		return nil, false
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (b *builder) readGo(p string) {
	data, ok := b.readSource(p)
	if !ok {
		return
	}
	file, err := parser.ParseFile(b.fset, p, data, parser.SkipObjectResolution)
	if err != nil || file == nil {
		return
	}
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			b.functions[d.Name.Name] = struct{}{}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				if ts, ok := spec.(*ast.TypeSpec); ok {
					b.types[ts.Name.Name] = struct{}{}
				}
			}
		}
	}
}

func (b *builder) readRegex(p string, funcs, classes *regexp.Regexp) {
	data, ok := b.readSource(p)
	if !ok {
		return
	}
	for _, m := range funcs.FindAllSubmatch(data, -1) {
		b.functions[string(m[1])] = struct{}{}
	}
	for _, m := range classes.FindAllSubmatch(data, -1) {
		b.types[string(m[1])] = struct{}{}
	}
}

func (b *builder) readGoMod(p string) {
	data, ok := b.readSource(p)
	if !ok {
		return
	}
	mf, err := modfile.ParseLax(p, data, nil)
	if err != nil {
		return
	}
	if mf.Module != nil {
		b.modules[mf.Module.Mod.Path] = struct{}{}
	}
	for _, req := range mf.Require {
		b.modules[req.Mod.Path] = struct{}{}
	}
}

type pyProject struct {
	Project struct {
		Name         string   `toml:"name"`
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name         string                 `toml:"name"`
			Dependencies map[string]interface{} `toml:"dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

func (b *builder) readPyProject(p string) {
	var doc pyProject
	if _, err := toml.DecodeFile(p, &doc); err != nil {
		return
	}
	b.addPythonModule(doc.Project.Name)
	b.addPythonModule(doc.Tool.Poetry.Name)
	for _, dep := range doc.Project.Dependencies {
		b.addPythonModule(requirementSep.Split(strings.TrimSpace(dep), 2)[0])
	}
	for dep := range doc.Tool.Poetry.Dependencies {
		if dep != "python" {
			b.addPythonModule(dep)
		}
	}
}

// addPythonModule records a distribution name and its import spelling
func (b *builder) addPythonModule(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	b.modules[name] = struct{}{}
	b.modules[strings.ReplaceAll(strings.ToLower(name), "-", "_")] = struct{}{}
}

type cargoManifest struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Dependencies map[string]interface{} `toml:"dependencies"`
}

func (b *builder) readCargo(p string) {
	var doc cargoManifest
	if _, err := toml.DecodeFile(p, &doc); err != nil {
		return
	}
	if doc.Package.Name != "" {
		b.modules[doc.Package.Name] = struct{}{}
	}
	for dep := range doc.Dependencies {
		b.modules[dep] = struct{}{}
	}
}

type packageJSON struct {
	Name            string            `json:"name"`
	Bin             json.RawMessage   `json:"bin"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func (b *builder) readPackageJSON(p string) {
	data, ok := b.readSource(p)
	if !ok {
		return
	}
	var doc packageJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return
	}
	if doc.Name != "" {
		b.modules[doc.Name] = struct{}{}
	}
	for dep := range doc.Dependencies {
		b.modules[dep] = struct{}{}
	}
	for dep := range doc.DevDependencies {
		b.modules[dep] = struct{}{}
	}

	// "bin" is either a single path (named after the package) or a name -> path map
	var bins map[string]string
	if err := json.Unmarshal(doc.Bin, &bins); err == nil {
		for name := range bins {
			b.commands[name] = struct{}{}
		}
	} else if len(doc.Bin) > 0 && doc.Name != "" {
		b.commands[doc.Name] = struct{}{}
	}
}
