package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/docgate/internal/extract"
	"github.com/ppiankov/docgate/internal/model"
	"github.com/ppiankov/docgate/internal/snapshot"
)

// lookPath probes the local machine for a command (injectable for tests)
var lookPath = exec.LookPath

var (
	goPackagePattern  = regexp.MustCompile(`(?m)^\s*package\s+\w+`)
	pyImportPattern   = regexp.MustCompile(`^\s*import\s+(.+)$`)
	pyFromPattern     = regexp.MustCompile(`^\s*from\s+(\S+)\s+import\b\s*(.*)$`)
	pyBlockPattern    = regexp.MustCompile(`^\s*(def|class|if|elif|else|for|while|try|except|finally|with|async\s+def|async\s+for|async\s+with)\b`)
	envAssignPattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=`)
	commandSplitter   = regexp.MustCompile(`&&|\|\||[|;]`)
	quotedPathPattern = regexp.MustCompile(`["']([\w./-]+\.(?:go|py|js|ts|md|rst|txt|json|yaml|yml|toml))["']`)
)

// shellBuiltins are never reported as unknown
var shellBuiltins = toSet(
	"cd", "echo", "export", "source", ".", "set", "unset", "alias", "exit", "read",
	"test", "[", "true", "false", "printf", "pwd", "eval", "exec", "pushd", "popd",
	"type", "which", "ulimit", "umask", "wait", "trap", "shift", "return", "local",
	"if", "then", "else", "fi", "for", "do", "done", "while", "case", "esac", "function",
)

// commandPrefixes wrap the real command
var commandPrefixes = toSet("sudo", "time", "env", "nohup", "command", "builtin", "xargs")

// pythonStdlib is a small known set of standard library top-level modules
var pythonStdlib = toSet(
	"abc", "argparse", "asyncio", "base64", "collections", "contextlib", "copy", "csv",
	"dataclasses", "datetime", "enum", "functools", "glob", "hashlib", "http", "io",
	"itertools", "json", "logging", "math", "os", "pathlib", "pickle", "random", "re",
	"shutil", "signal", "socket", "sqlite3", "string", "subprocess", "sys", "tempfile",
	"threading", "time", "traceback", "typing", "unittest", "urllib", "uuid", "warnings",
	"xml", "zipfile", "__future__",
)

// CodeValidator checks fenced code blocks. Syntax checks always run;
// reference checks need a snapshot and only ever produce warnings.
type CodeValidator struct {
	snapshot *snapshot.Snapshot
	seen     map[string]bool
}

// NewCodeValidator creates a validator; snap may be nil
func NewCodeValidator(snap *snapshot.Snapshot) *CodeValidator {
	return &CodeValidator{snapshot: snap}
}

// Validate checks every fenced block in the document
func (v *CodeValidator) Validate(doc *extract.Document) model.Evidence {
	var ev model.Evidence
	v.seen = make(map[string]bool)

	for _, block := range doc.Blocks {
		if block.IsEmpty() {
			continue
		}

		switch block.Language {
		case "go", "golang":
			v.checkGo(block, &ev)
		case "python", "py", "python3":
			v.checkPython(block, &ev)
		case "json":
			checkStructured(block, "JSON", validJSON, &ev)
		case "yaml", "yml":
			checkStructured(block, "YAML", validYAML, &ev)
		case "toml":
			checkStructured(block, "TOML", validTOML, &ev)
		case "bash", "sh", "shell", "zsh", "console":
			v.checkShell(block, &ev)
		}

		v.checkQuotedFiles(block, &ev)
	}

	return ev
}

func (v *CodeValidator) references() bool {
	return v.snapshot != nil
}

// warnOnce records a reference warning once per subject per document
func (v *CodeValidator) warnOnce(ev *model.Evidence, kind model.FindingKind, subject string, line int, message string) {
	key := string(kind) + ":" + subject
	if v.seen[key] {
		return
	}
	v.seen[key] = true
	ev.AddWarning(kind, line, message)
}

func (v *CodeValidator) checkGo(block extract.CodeBlock, ev *model.Evidence) {
	file, err := parseGo(block.Content)
	if err != nil {
		ev.AddError(model.KindCodeSyntax, block.Line, fmt.Sprintf("Line %d: Go syntax error: %s", block.Line, firstLine(err.Error())))
		return
	}
	if !v.references() {
		return
	}

	project := make(map[string]string) // package name -> import path
	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		first := strings.SplitN(path, "/", 2)[0]
		if !strings.Contains(first, ".") {
			continue // standard library
		}
		if !v.snapshot.HasModule(path) {
			v.warnOnce(ev, model.KindUnresolvedImport, path, block.Line,
				fmt.Sprintf("Line %d: Import %q not found in project modules", block.Line, path))
			continue
		}
		name := goPackageName(path)
		if imp.Name != nil {
			name = imp.Name.Name
		}
		if name != "_" && name != "." {
			project[name] = path
		}
	}
	if len(project) == 0 {
		return
	}

	// calls and conversions through a project package must name a
	// function or type the project defines
	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		pkg, ok := sel.X.(*ast.Ident)
		if !ok {
			return true
		}
		path, ok := project[pkg.Name]
		if !ok {
			return true
		}
		name := sel.Sel.Name
		if !v.snapshot.HasFunction(name) && !v.snapshot.HasType(name) {
			v.warnOnce(ev, model.KindUnresolvedRef, path+"."+name, block.Line,
				fmt.Sprintf("Line %d: %s.%s not defined in project %s", block.Line, pkg.Name, name, path))
		}
		return true
	})
}

// goPackageName guesses the package name from the last path element,
// skipping major version suffixes
func goPackageName(path string) string {
	parts := strings.Split(path, "/")
	name := parts[len(parts)-1]
	if len(parts) > 1 && isMajorVersion(name) {
		name = parts[len(parts)-2]
	}
	if i := strings.LastIndex(name, "."); i > 0 && isMajorVersion(name[i+1:]) {
		name = name[:i] // gopkg.in/yaml.v3
	}
	return strings.ReplaceAll(name, "-", "_")
}

func isMajorVersion(s string) bool {
	return len(s) > 1 && s[0] == 'v' && strings.Trim(s[1:], "0123456789") == ""
}

// parseGo accepts a whole file, bare declarations, or statements
func parseGo(src string) (*ast.File, error) {
	fset := token.NewFileSet()
	if goPackagePattern.MatchString(src) {
		return parser.ParseFile(fset, "", src, parser.SkipObjectResolution)
	}

	if file, err := parser.ParseFile(fset, "", "package p\n"+src, parser.SkipObjectResolution); err == nil {
		return file, nil
	}

	// statements: hoist imports out of the function body
	var imports, body []string
	for _, line := range extract.SplitLines(src) {
		if strings.HasPrefix(strings.TrimSpace(line), "import ") {
			imports = append(imports, line)
			continue
		}
		body = append(body, line)
	}
	wrapped := "package p\n" + strings.Join(imports, "\n") + "\nfunc _() {\n" + strings.Join(body, "\n") + "\n}\n"
	return parser.ParseFile(fset, "", wrapped, parser.SkipObjectResolution)
}

func (v *CodeValidator) checkPython(block extract.CodeBlock, ev *model.Evidence) {
	lines := extract.SplitLines(block.Content)

	if msg, line := pythonSyntax(lines); msg != "" {
		n := block.Line + line
		ev.AddError(model.KindCodeSyntax, n, fmt.Sprintf("Line %d: Python syntax error: %s", n, msg))
	}
	if !v.references() {
		return
	}

	for i, raw := range lines {
		line := strings.TrimPrefix(strings.TrimPrefix(raw, ">>> "), "... ")
		var names []string
		if m := pyFromPattern.FindStringSubmatch(line); m != nil {
			names = append(names, m[1])
			v.checkPythonNames(m[1], m[2], block.Line+i+1, ev)
		} else if m := pyImportPattern.FindStringSubmatch(line); m != nil {
			for _, part := range strings.Split(m[1], ",") {
				if fields := strings.Fields(part); len(fields) > 0 {
					names = append(names, fields[0])
				}
			}
		}

		for _, name := range names {
			if strings.HasPrefix(name, ".") {
				continue // relative import
			}
			top := strings.SplitN(name, ".", 2)[0]
			if pythonStdlib[top] || v.snapshot.HasModule(top) || v.snapshot.HasModule(name) {
				continue
			}
			n := block.Line + i + 1
			v.warnOnce(ev, model.KindUnresolvedImport, name, n,
				fmt.Sprintf("Line %d: Import %q not found in project modules", n, name))
		}
	}
}

// checkPythonNames warns when a name imported from a project module is not
// a function, class or submodule the project defines
func (v *CodeValidator) checkPythonNames(module, imported string, line int, ev *model.Evidence) {
	top := strings.SplitN(module, ".", 2)[0]
	if strings.HasPrefix(module, ".") || pythonStdlib[top] {
		return
	}
	if !v.snapshot.HasModule(top) && !v.snapshot.HasModule(module) {
		return
	}

	if i := strings.Index(imported, "#"); i >= 0 {
		imported = imported[:i]
	}
	imported = strings.NewReplacer("(", " ", ")", " ", "\\", " ").Replace(imported)
	for _, part := range strings.Split(imported, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 || fields[0] == "*" {
			continue
		}
		name := fields[0]
		// module-level constants are not indexed
		if strings.ToUpper(name) == name {
			continue
		}
		if v.snapshot.HasFunction(name) || v.snapshot.HasType(name) ||
			v.snapshot.HasModule(name) || v.snapshot.HasFile(name+".py") {
			continue
		}
		v.warnOnce(ev, model.KindUnresolvedRef, module+"."+name, line,
			fmt.Sprintf("Line %d: %q not defined in project module %s", line, name, module))
	}
}

// pythonSyntax applies bracket, quote and block-colon heuristics. It returns
// the first problem and its 1-based line within the block.
func pythonSyntax(lines []string) (string, int) {
	depth := 0
	inTriple := ""
	joined := false

	for i, raw := range lines {
		// a line that opens inside brackets, a triple-quoted string or after
		// a backslash continues an earlier statement
		continued := depth > 0 || inTriple != "" || joined

		line := strings.TrimPrefix(strings.TrimPrefix(raw, ">>> "), "... ")
		code, unterminated := stripPythonStrings(line, &inTriple)
		if unterminated {
			return "unterminated string literal", i + 1
		}

		for _, r := range code {
			switch r {
			case '(', '[', '{':
				depth++
			case ')', ']', '}':
				depth--
				if depth < 0 {
					return fmt.Sprintf("unmatched '%c'", r), i + 1
				}
			}
		}

		trimmed := strings.TrimSpace(code)
		joined = strings.HasSuffix(trimmed, "\\")
		if continued || inTriple != "" || depth > 0 || joined {
			continue
		}
		if pyBlockPattern.MatchString(trimmed) && !hasBlockColon(trimmed) {
			return "expected ':'", i + 1
		}
	}

	if inTriple != "" {
		return "unterminated triple-quoted string", len(lines)
	}
	if depth > 0 {
		return "unclosed bracket", len(lines)
	}
	return "", 0
}

// hasBlockColon reports whether code has a colon outside any brackets, as
// a compound statement header needs ("if x: y", "for k in d[1:]:")
func hasBlockColon(code string) bool {
	depth := 0
	for _, r := range code {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ':':
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

// stripPythonStrings removes string literals and comments from a line,
// tracking triple-quoted strings across lines.
func stripPythonStrings(line string, inTriple *string) (string, bool) {
	var out strings.Builder
	for i := 0; i < len(line); {
		if *inTriple != "" {
			end := strings.Index(line[i:], *inTriple)
			if end < 0 {
				return out.String(), false
			}
			i += end + 3
			*inTriple = ""
			continue
		}

		c := line[i]
		switch {
		case c == '#':
			return out.String(), false
		case strings.HasPrefix(line[i:], `"""`) || strings.HasPrefix(line[i:], `'''`):
			*inTriple = line[i : i+3]
			i += 3
		case c == '"' || c == '\'':
			end := closingQuote(line, i)
			if end < 0 {
				return out.String(), true
			}
			i = end + 1
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String(), false
}

func closingQuote(line string, start int) int {
	quote := line[start]
	for j := start + 1; j < len(line); j++ {
		switch line[j] {
		case '\\':
			j++
		case quote:
			return j
		}
	}
	return -1
}

func checkStructured(block extract.CodeBlock, format string, valid func(string) error, ev *model.Evidence) {
	if err := valid(block.Content); err != nil {
		ev.AddError(model.KindCodeSyntax, block.Line, fmt.Sprintf("Line %d: %s syntax error: %s", block.Line, format, firstLine(err.Error())))
	}
}

func validJSON(src string) error {
	var v interface{}
	return json.Unmarshal([]byte(src), &v)
}

func validYAML(src string) error {
	dec := yaml.NewDecoder(strings.NewReader(src))
	for {
		var v interface{}
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func validTOML(src string) error {
	var v map[string]interface{}
	_, err := toml.Decode(src, &v)
	return err
}

func (v *CodeValidator) checkShell(block extract.CodeBlock, ev *model.Evidence) {
	if !v.references() {
		return
	}

	lines := extract.SplitLines(block.Content)

	// with prompts present, unprompted lines are output
	prompted := false
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "$ ") {
			prompted = true
			break
		}
	}

	continued := false
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		wasContinued := continued
		continued = strings.HasSuffix(line, "\\")
		if wasContinued {
			continue
		}
		if prompted {
			if !strings.HasPrefix(line, "$ ") {
				continue
			}
			line = strings.TrimSpace(strings.TrimPrefix(line, "$ "))
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		for _, segment := range commandSplitter.Split(line, -1) {
			cmd := leadingCommand(segment)
			if cmd == "" || v.knownCommand(cmd) {
				continue
			}
			n := block.Line + i + 1
			v.warnOnce(ev, model.KindUnresolvedCommand, cmd, n,
				fmt.Sprintf("Line %d: Command %q not found in project or on this machine", n, cmd))
		}
	}
}

// leadingCommand returns the command a shell segment runs, or "" when it
// cannot be determined statically.
func leadingCommand(segment string) string {
	for _, tok := range strings.Fields(segment) {
		if envAssignPattern.MatchString(tok) || commandPrefixes[tok] || strings.HasPrefix(tok, "-") {
			continue
		}
		if strings.ContainsAny(tok, "$`\"'(){}<>*=") || strings.Contains(tok, "/") {
			return ""
		}
		return tok
	}
	return ""
}

func (v *CodeValidator) knownCommand(cmd string) bool {
	if shellBuiltins[cmd] || v.snapshot.HasCommand(cmd) {
		return true
	}
	_, err := lookPath(cmd)
	return err == nil
}

func (v *CodeValidator) checkQuotedFiles(block extract.CodeBlock, ev *model.Evidence) {
	if !v.references() {
		return
	}
	for i, line := range extract.SplitLines(block.Content) {
		for _, m := range quotedPathPattern.FindAllStringSubmatch(line, -1) {
			path := m[1]
			if strings.HasPrefix(path, "/") || v.snapshot.HasFile(path) {
				continue
			}
			n := block.Line + i + 1
			v.warnOnce(ev, model.KindUnresolvedFile, path, n,
				fmt.Sprintf("Line %d: Referenced file %q not found in project", n, path))
		}
	}
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func toSet(items ...string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
