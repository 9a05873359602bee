package extractor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"sql-crosscheck/internal/model"
)

// createModifiers may sit between CREATE [OR REPLACE] and the object kind.
var createModifiers = []string{
	"SECURE", "SEMANTIC", "MATERIALIZED", "TRANSIENT", "TEMPORARY", "TEMP",
	"VOLATILE", "LOCAL", "GLOBAL", "RECURSIVE", "EXTERNAL", "DYNAMIC", "HYBRID",
}

var objectKinds = map[string]model.ObjectKind{
	"TABLE":     model.ObjectTable,
	"VIEW":      model.ObjectView,
	"WAREHOUSE": model.ObjectWarehouse,
	"DATABASE":  model.ObjectDatabase,
	"SCHEMA":    model.ObjectSchema,
}

// SQLExtractor pulls definitions, allowlisted calls, USE directives and
// created objects out of SQL scripts.
type SQLExtractor struct {
	functions []string
}

// NewSQLExtractor returns an extractor that records calls to the given
// function names only.
func NewSQLExtractor(functions []string) *SQLExtractor {
	seen := make(map[string]bool)
	var names []string
	for _, fn := range functions {
		fn = strings.ToUpper(strings.TrimSpace(fn))
		if fn == "" || seen[fn] {
			continue
		}
		seen[fn] = true
		names = append(names, fn)
	}
	return &SQLExtractor{functions: names}
}

type span struct {
	start, end int
}

func (e *SQLExtractor) Extract(file *model.SourceFile) (*model.Facts, error) {
	if file == nil {
		return nil, fmt.Errorf("no file to extract from")
	}
	masked := file.Masked
	if len(masked) != len(file.Content) {
		masked = Mask(file.Content)
	}
	d := newDocument(file.Content, masked)

	facts := &model.Facts{File: file, Context: model.ContextSettings{}}
	headers := e.extractCreates(d, file.Path, facts)
	e.extractCalls(d, file.Path, headers, facts)
	e.extractContext(d, file.Path, facts)
	return facts, nil
}

// extractCreates handles every CREATE statement header. Functions become
// definitions, the other known kinds become created objects. It returns the
// name spans of function headers so they are not mistaken for calls.
func (e *SQLExtractor) extractCreates(d *document, path string, facts *model.Facts) []span {
	var headers []span
	for _, at := range d.words("CREATE") {
		c := d.cursorAt(at + len("CREATE"))
		c.keywords("OR", "REPLACE")
		for skipModifier(c) {
		}
		kind, ok := c.word()
		if !ok {
			continue
		}
		c.keywords("IF", "NOT", "EXISTS")
		nameStart, nameEnd, ok := c.ident()
		if !ok {
			continue
		}
		name := BaseName(d.raw[nameStart:nameEnd])
		loc := model.Location{FilePath: path, Line: d.line(at)}

		if kind == "FUNCTION" {
			lo, hi, ok := c.group()
			if !ok {
				continue
			}
			facts.Definitions = append(facts.Definitions, model.FunctionDefinition{
				Name:       name,
				Parameters: SplitParameters(d.raw[lo:hi]),
				Location:   loc,
				Signature:  compact(d.raw[at : hi+1]),
			})
			headers = append(headers, span{nameStart, nameEnd})
			continue
		}
		if objKind, ok := objectKinds[kind]; ok {
			facts.Objects = append(facts.Objects, model.CreatedObject{
				Kind:     objKind,
				Name:     name,
				Location: loc,
			})
		}
	}
	return headers
}

func skipModifier(c *cursor) bool {
	for _, m := range createModifiers {
		if c.keyword(m) {
			return true
		}
	}
	return false
}

// extractCalls records every allowlisted name followed by an argument list,
// in file order.
func (e *SQLExtractor) extractCalls(d *document, path string, headers []span, facts *model.Facts) {
	type hit struct {
		at   int
		name string
	}
	var hits []hit
	for _, name := range e.functions {
		for _, at := range d.words(name) {
			if inSpans(at, headers) {
				continue
			}
			hits = append(hits, hit{at: at, name: name})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].at < hits[j].at })

	for _, h := range hits {
		c := d.cursorAt(h.at + len(h.name))
		lo, hi, ok := c.group()
		if !ok {
			continue
		}
		facts.Calls = append(facts.Calls, model.FunctionCall{
			Name:      h.name,
			Arguments: SplitArguments(d.raw[lo:hi]),
			Location:  model.Location{FilePath: path, Line: d.line(h.at)},
			Text:      d.raw[h.at : hi+1],
		})
	}
}

// extractContext records USE directives. Directives are visited in file
// order so the last one per dimension wins.
func (e *SQLExtractor) extractContext(d *document, path string, facts *model.Facts) {
	for _, at := range d.words("USE") {
		c := d.cursorAt(at + len("USE"))
		for _, dim := range model.Dimensions {
			if !c.keyword(string(dim)) {
				continue
			}
			start, end, ok := c.ident()
			if !ok {
				break
			}
			value := d.raw[start:end]
			if strings.EqualFold(value, "IDENTIFIER") {
				if _, hi, ok := c.group(); ok {
					value = d.raw[start : hi+1]
				}
			}
			facts.Context[dim] = model.ContextSetting{Value: value, Line: d.line(at)}
			break
		}
	}
}

func inSpans(at int, spans []span) bool {
	for _, s := range spans {
		if at >= s.start && at < s.end {
			return true
		}
	}
	return false
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Manager selects the extractor for a file by its suffix
type Manager struct {
	root       string
	extractors map[string]model.Extractor
}

func NewManager(root string) *Manager {
	return &Manager{
		root:       root,
		extractors: make(map[string]model.Extractor),
	}
}

func (m *Manager) Register(suffix string, extr model.Extractor) {
	m.extractors[normalizeSuffix(suffix)] = extr
}

// Load reads one file. The handle is closed before Load returns.
func (m *Manager) Load(path string) (*model.SourceFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%s is not valid UTF-8", path)
	}

	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		rel = path
	}
	return NewSourceFile(path, rel, string(content)), nil
}

// NewSourceFile builds a SourceFile with its mask.
func NewSourceFile(path, relPath, content string) *model.SourceFile {
	return &model.SourceFile{
		Path:    path,
		RelPath: filepath.ToSlash(relPath),
		Content: content,
		Masked:  Mask(content),
	}
}

func (m *Manager) Extract(path string) (*model.Facts, error) {
	extr, ok := m.lookup(path)
	if !ok {
		return nil, fmt.Errorf("no extractor registered for %s", path)
	}

	file, err := m.Load(path)
	if err != nil {
		return nil, err
	}
	return extr.Extract(file)
}

// lookup picks the extractor with the longest registered suffix that ends
// path, so multi-dot suffixes such as ".udf.sql" match whole.
func (m *Manager) lookup(path string) (model.Extractor, bool) {
	name := strings.ToLower(filepath.Base(path))
	var (
		best    model.Extractor
		bestLen int
	)
	for suffix, extr := range m.extractors {
		if strings.HasSuffix(name, suffix) && len(suffix) > bestLen {
			best, bestLen = extr, len(suffix)
		}
	}
	return best, best != nil
}

func normalizeSuffix(suffix string) string {
	suffix = strings.ToLower(suffix)
	if suffix != "" && !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}
	return suffix
}
