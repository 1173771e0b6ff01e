package registry

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"entity-harmonizer/internal/common"
)

// ErrEntityNotFound is returned when an alias targets an entity block that
// does not exist in the registry file.
var ErrEntityNotFound = errors.New("entity not found in registry")

// AddAliases appends aliases to the entity blocks named by the keys of
// additions and writes the file back in place. Aliases already known for
// the entity, compared by common.FoldKey against its aliases, name and
// code, are skipped. It returns how many aliases were written.
//
// Missing entity blocks produce ErrEntityNotFound, joined per entity; the
// other entities are still updated.
func AddAliases(path string, additions map[string][]string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read registry %s: %w", path, err)
	}

	out, added, addErr := AddAliasesYAML(data, additions)
	if out == nil {
		return 0, addErr
	}

	if added > 0 {
		if err := writeAtomic(path, out); err != nil {
			return 0, errors.Join(addErr, err)
		}
	}

	return added, addErr
}

// AddAliasesYAML is AddAliases over an in-memory document. It returns nil
// output only when the document itself cannot be processed.
//
// The document is parsed only to locate the entity blocks. New aliases are
// spliced into the original text, so every other line is kept byte for byte.
func AddAliasesYAML(data []byte, additions map[string][]string) ([]byte, int, error) {
	var doc yaml.Node

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, 0, fmt.Errorf("failed to parse registry YAML: %w", err)
	}

	entitiesKey, entities, err := entitiesNode(&doc)
	if err != nil {
		return nil, 0, err
	}

	targets := make([]string, 0, len(additions))
	for name := range additions {
		targets = append(targets, name)
	}

	slices.Sort(targets)

	ed := newEditor(data)
	ed.step = ed.indentStep(entitiesKey, entities)

	var (
		errs  []error
		added int
	)

	for _, name := range targets {
		block := findEntityBlock(entities, name)
		if block == nil {
			errs = append(errs, fmt.Errorf("%w: %q", ErrEntityNotFound, name))
			continue
		}

		n, err := ed.addAliases(block, additions[name])
		if err != nil {
			errs = append(errs, fmt.Errorf("entity %q: %w", name, err))
			continue
		}

		added += n
	}

	return ed.bytes(), added, errors.Join(errs...)
}

// entitiesNode returns the "entities" key and its sequence node.
func entitiesNode(doc *yaml.Node) (*yaml.Node, *yaml.Node, error) {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil, errors.New("registry document is empty")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("line %d: registry root must be a mapping", root.Line)
	}

	key, value := mappingEntry(root, "entities")
	if value == nil {
		return nil, nil, errors.New("registry has no entities list")
	}

	if value.Kind != yaml.SequenceNode {
		return nil, nil, fmt.Errorf("line %d: entities must be a list", value.Line)
	}

	return key, value, nil
}

func findEntityBlock(entities *yaml.Node, name string) *yaml.Node {
	for _, item := range entities.Content {
		if item.Kind != yaml.MappingNode {
			continue
		}

		if _, v := mappingEntry(item, "name"); v != nil && v.Kind == yaml.ScalarNode && v.Value == name {
			return item
		}
	}

	return nil
}

func mappingEntry(m *yaml.Node, key string) (*yaml.Node, *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i], m.Content[i+1]
		}
	}

	return nil, nil
}

// editor collects line edits against the original document. Line numbers
// are 1-based, as reported by yaml.Node.
type editor struct {
	lines []string
	// cr is "\r" for documents with CRLF line endings.
	cr string
	// step is the indentation of a block sequence relative to its key.
	step  int
	edits map[int][]string
}

func newEditor(data []byte) *editor {
	ed := &editor{
		lines: strings.Split(string(data), "\n"),
		step:  2,
		edits: make(map[int][]string),
	}

	if bytes.Contains(data, []byte("\r\n")) {
		ed.cr = "\r"
	}

	return ed
}

func (ed *editor) line(n int) string {
	return strings.TrimSuffix(ed.lines[n-1], "\r")
}

// replace swaps line n for lines.
func (ed *editor) replace(n int, lines ...string) {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l + ed.cr
	}

	ed.edits[n] = out
}

// insertAfter adds lines below line n.
func (ed *editor) insertAfter(n int, lines ...string) {
	current, ok := ed.edits[n]
	if !ok {
		current = []string{ed.lines[n-1]}
	}

	for _, l := range lines {
		current = append(current, l+ed.cr)
	}

	ed.edits[n] = current
}

func (ed *editor) bytes() []byte {
	out := make([]string, 0, len(ed.lines)+len(ed.edits))

	for i, l := range ed.lines {
		if edit, ok := ed.edits[i+1]; ok {
			out = append(out, edit...)
		} else {
			out = append(out, l)
		}
	}

	return []byte(strings.Join(out, "\n"))
}

// indentStep follows the layout of the document: the offset of an existing
// aliases list below its key, else the offset of the entities list.
func (ed *editor) indentStep(entitiesKey, entities *yaml.Node) int {
	for _, block := range entities.Content {
		if block.Kind != yaml.MappingNode {
			continue
		}

		key, seq := mappingEntry(block, "aliases")
		if seq == nil || seq.Kind != yaml.SequenceNode || seq.Style&yaml.FlowStyle != 0 || len(seq.Content) == 0 {
			continue
		}

		if dash, ok := ed.dashColumn(seq.Content[0].Line); ok && dash >= key.Column-1 {
			return dash - (key.Column - 1)
		}
	}

	if len(entities.Content) > 0 && entities.Style&yaml.FlowStyle == 0 {
		if dash, ok := ed.dashColumn(entities.Content[0].Line); ok && dash > entitiesKey.Column-1 {
			return dash - (entitiesKey.Column - 1)
		}
	}

	return 2
}

// dashColumn returns the indentation of a block sequence item line.
func (ed *editor) dashColumn(n int) (int, bool) {
	text := ed.line(n)
	trimmed := strings.TrimLeft(text, " ")

	return len(text) - len(trimmed), strings.HasPrefix(trimmed, "-")
}

// addAliases splices the aliases not yet known for block into the
// document and returns how many were added.
func (ed *editor) addAliases(block *yaml.Node, aliases []string) (int, error) {
	if block.Style&yaml.FlowStyle != 0 {
		return 0, errors.New("entity written in flow style cannot be edited in place")
	}

	key, seq := mappingEntry(block, "aliases")

	known := make(map[string]bool)

	for _, k := range []string{"name", "code"} {
		if _, v := mappingEntry(block, k); v != nil && v.Kind == yaml.ScalarNode {
			known[common.FoldKey(v.Value)] = true
		}
	}

	if seq != nil {
		if seq.Kind == yaml.ScalarNode {
			known[common.FoldKey(seq.Value)] = true
		}

		for _, item := range seq.Content {
			if item.Kind == yaml.ScalarNode {
				known[common.FoldKey(item.Value)] = true
			}
		}
	}

	var fresh []string

	for _, alias := range aliases {
		k := common.FoldKey(alias)
		if alias == "" || known[k] {
			continue
		}

		known[k] = true

		fresh = append(fresh, alias)
	}

	if len(fresh) == 0 {
		return 0, nil
	}

	rendered := make([]string, len(fresh))
	for i, alias := range fresh {
		rendered[i] = scalarText(alias, false)
	}

	var err error

	switch {
	case seq == nil:
		first := block.Content[0]
		indent := strings.Repeat(" ", first.Column-1)
		ed.insertAfter(lastLine(block), append([]string{indent + "aliases:"},
			ed.items(first.Column-1, rendered)...)...)
	case seq.Kind == yaml.SequenceNode && seq.Style&yaml.FlowStyle != 0:
		err = ed.extendFlow(seq, fresh)
	case seq.Kind == yaml.SequenceNode:
		dash, _ := ed.dashColumn(seq.Content[0].Line)
		prefix := strings.Repeat(" ", dash) + "- "

		lines := make([]string, len(rendered))
		for i, v := range rendered {
			lines[i] = prefix + v
		}

		ed.insertAfter(lastLine(seq), lines...)
	case seq.Kind == yaml.ScalarNode:
		err = ed.convertScalar(key, seq, rendered)
	default:
		err = fmt.Errorf("line %d: aliases must be a string or a list", seq.Line)
	}

	if err != nil {
		return 0, err
	}

	return len(fresh), nil
}

// items renders block sequence items for a key indented by keyIndent.
func (ed *editor) items(keyIndent int, values []string) []string {
	prefix := strings.Repeat(" ", keyIndent+ed.step) + "- "

	lines := make([]string, len(values))
	for i, v := range values {
		lines[i] = prefix + v
	}

	return lines
}

// convertScalar turns "aliases: Foo # note" into a block list that keeps
// the original spelling of Foo and moves the comment onto the key line.
func (ed *editor) convertScalar(key, value *yaml.Node, rendered []string) error {
	text := ed.line(key.Line)

	start := byteOffset(text, key.Column-1)
	colon := strings.IndexByte(text[start:], ':')
	if colon < 0 {
		return fmt.Errorf("line %d: aliases key not found", key.Line)
	}

	head, rest := text[:start+colon+1], text[start+colon+1:]

	comment := ""

	for _, c := range []string{value.LineComment, key.LineComment} {
		trimmed := strings.TrimRight(rest, " \t")
		if c != "" && strings.HasSuffix(trimmed, c) {
			comment = c
			rest = strings.TrimSuffix(trimmed, c)

			break
		}
	}

	var values []string

	if value.Value != "" {
		original := strings.TrimSpace(rest)

		var decoded string
		if value.Line != key.Line || yaml.Unmarshal([]byte(original), &decoded) != nil || decoded != value.Value {
			return fmt.Errorf("line %d: multi-line aliases value cannot be edited in place", value.Line)
		}

		values = append(values, original)
	}

	values = append(values, rendered...)

	if comment != "" {
		head += " " + comment
	}

	ed.replace(key.Line, append([]string{head}, ed.items(key.Column-1, values)...)...)

	return nil
}

// extendFlow appends to a flow list such as "[a, b]" before its closing
// bracket.
func (ed *editor) extendFlow(seq *yaml.Node, fresh []string) error {
	n, pos, ok := ed.flowEnd(seq)
	if !ok {
		return fmt.Errorf("line %d: unterminated aliases list", seq.Line)
	}

	text := ed.line(n)
	before := text[:pos]
	trimmed := strings.TrimRight(before, " \t")

	if trimmed == "" {
		return fmt.Errorf("line %d: multi-line aliases list cannot be edited in place", seq.Line)
	}

	values := make([]string, len(fresh))
	for i, alias := range fresh {
		values[i] = scalarText(alias, true)
	}

	sep := ", "
	if strings.HasSuffix(trimmed, "[") {
		sep = ""
	} else if strings.HasSuffix(trimmed, ",") {
		sep = " "
	}

	ed.replace(n, trimmed+sep+strings.Join(values, ", ")+before[len(trimmed):]+text[pos:])

	return nil
}

// flowEnd finds the bracket closing the flow collection that starts at
// seq, skipping quoted scalars and comments.
func (ed *editor) flowEnd(seq *yaml.Node) (int, int, bool) {
	depth := 0

	for n := seq.Line; n <= len(ed.lines); n++ {
		text := ed.line(n)

		i := 0
		if n == seq.Line {
			i = byteOffset(text, seq.Column-1)
		}

		var quote byte

	scan:
		for ; i < len(text); i++ {
			c := text[i]

			switch {
			case quote == '\'':
				if c == '\'' {
					if i+1 < len(text) && text[i+1] == '\'' {
						i++
					} else {
						quote = 0
					}
				}
			case quote == '"':
				if c == '\\' {
					i++
				} else if c == '"' {
					quote = 0
				}
			case c == '\'' || c == '"':
				quote = c
			case c == '#' && (i == 0 || text[i-1] == ' ' || text[i-1] == '\t'):
				break scan
			case c == '[' || c == '{':
				depth++
			case c == ']' || c == '}':
				depth--
				if depth == 0 {
					return n, i, true
				}
			}
		}
	}

	return 0, 0, false
}

// lastLine returns the last line holding any part of n.
func lastLine(n *yaml.Node) int {
	last := n.Line
	for _, c := range n.Content {
		last = max(last, lastLine(c))
	}

	return last
}

// byteOffset converts a 0-based character column into a byte offset.
func byteOffset(text string, column int) int {
	for i := range text {
		if column == 0 {
			return i
		}

		column--
	}

	return len(text)
}

// scalarText renders alias as a YAML scalar, quoting it when the plain
// form would not read back as the same string.
func scalarText(alias string, flow bool) string {
	out, err := yaml.Marshal(alias)
	text := strings.TrimSuffix(string(out), "\n")

	quoted := strings.HasPrefix(text, `"`) || strings.HasPrefix(text, "'")
	if err != nil || strings.Contains(text, "\n") || (flow && !quoted && strings.ContainsAny(text, ",[]{}")) {
		return strconv.Quote(alias)
	}

	return text
}

func writeAtomic(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat registry %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace registry %s: %w", path, err)
	}

	return nil
}
