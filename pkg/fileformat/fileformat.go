package fileformat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"gopkg.in/yaml.v3"
)

// None is the column name which means "this format does not have such column".
//
// Compare with it by string equality; a FileFormat never holds an empty column name.
const None = "none"

type Kind string

const (
	Str   Kind = "str"
	Int   Kind = "int"
	Float Kind = "float"
	Enum  Kind = "enum"
)

// TypeSpec is the declared type of a column: a primitive, or an enumeration of permitted values.
type TypeSpec struct {
	Kind   Kind
	Levels []string
}

func (t TypeSpec) String() string {
	if t.Kind == Enum {
		return fmt.Sprintf("one of %v", t.Levels)
	}
	return string(t.Kind)
}

// Permits reports whether value is one of the enumerated levels.
func (t TypeSpec) Permits(value string) bool {
	return slices.Contains(t.Levels, value)
}

func (t TypeSpec) MarshalJSON() ([]byte, error) {
	if t.Kind == Enum {
		return json.Marshal(t.Levels)
	}
	return json.Marshal(string(t.Kind))
}

func (t *TypeSpec) UnmarshalJSON(b []byte) error {
	var levels []string
	if err := json.Unmarshal(b, &levels); err == nil {
		return t.fromLevels(levels)
	}
	var kind string
	if err := json.Unmarshal(b, &kind); err != nil {
		return fmt.Errorf("type should be a string or a list of strings: %s", string(b))
	}
	return t.fromKind(kind)
}

func (t *TypeSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var levels []string
		if err := node.Decode(&levels); err != nil {
			return err
		}
		return t.fromLevels(levels)
	case yaml.ScalarNode:
		return t.fromKind(node.Value)
	default:
		return fmt.Errorf("line %d: type should be a string or a list of strings", node.Line)
	}
}

func (t *TypeSpec) fromKind(kind string) error {
	switch k := Kind(strings.ToLower(strings.TrimSpace(kind))); k {
	case Str, Int, Float:
		*t = TypeSpec{Kind: k}
		return nil
	default:
		return fmt.Errorf("unknown column type: %q", kind)
	}
}

func (t *TypeSpec) fromLevels(levels []string) error {
	if len(levels) == 0 {
		return fmt.Errorf("enumerated type should have one level at least")
	}
	*t = TypeSpec{Kind: Enum, Levels: levels}
	return nil
}

type Field struct {
	Name string
	Type TypeSpec
}

// Fields is an ordered mapping from column name to its type.
type Fields []Field

func (fs Fields) Get(name string) (TypeSpec, bool) {
	for _, f := range fs {
		if f.Name == name {
			return f.Type, true
		}
	}
	return TypeSpec{}, false
}

func (fs Fields) Names() []string {
	names := make([]string, 0, len(fs))
	for _, f := range fs {
		names = append(names, f.Name)
	}
	return names
}

// MarshalJSON writes fields as a JSON object, preserving their order.
func (fs Fields) MarshalJSON() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteByte('{')
	for i, f := range fs {
		if i != 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		typ, err := json.Marshal(f.Type)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(typ)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object like
//
//	{"chr": "str", "start": "int", "strand": ["+", "-", "*"]}
//
// keeping the order of keys.
func (fs *Fields) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("fields should be a JSON object")
	}

	out := Fields{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token in fields: %v", tok)
		}
		var typ TypeSpec
		if err := dec.Decode(&typ); err != nil {
			return fmt.Errorf("column %s: %w", name, err)
		}
		if _, dup := out.Get(name); dup {
			return fmt.Errorf("column %s is declared twice", name)
		}
		out = append(out, Field{Name: name, Type: typ})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*fs = out
	return nil
}

func (fs *Fields) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: fields should be a mapping", node.Line)
	}
	out := Fields{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var typ TypeSpec
		if err := node.Content[i+1].Decode(&typ); err != nil {
			return fmt.Errorf("column %s: %w", name, err)
		}
		if _, dup := out.Get(name); dup {
			return fmt.Errorf("column %s is declared twice", name)
		}
		out = append(out, Field{Name: name, Type: typ})
	}
	*fs = out
	return nil
}

type Separator string

const (
	Tab   Separator = "\t"
	Comma Separator = ","
)

// ParseSeparator accepts the separator itself or its name ("tab", "comma").
func ParseSeparator(s string) (Separator, error) {
	switch strings.ToLower(s) {
	case "\t", "tab", `\t`:
		return Tab, nil
	case ",", "comma":
		return Comma, nil
	default:
		return "", fmt.Errorf("unsupported separator: %q", s)
	}
}

func (s Separator) Rune() rune {
	if s == Comma {
		return ','
	}
	return '\t'
}

func (s Separator) Name() string {
	if s == Comma {
		return "comma"
	}
	return "tab"
}

func (s *Separator) UnmarshalYAML(node *yaml.Node) error {
	sep, err := ParseSeparator(node.Value)
	if err != nil {
		return err
	}
	*s = sep
	return nil
}

func (s *Separator) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	sep, err := ParseSeparator(raw)
	if err != nil {
		return err
	}
	*s = sep
	return nil
}

// FileFormat is the schema of a tabular file.
type FileFormat struct {
	ID        int64     `json:"id" yaml:"id,omitempty"`
	Name      string    `json:"fileformat" yaml:"fileformat"`
	Separator Separator `json:"separator" yaml:"separator"`
	Fields    Fields    `json:"fields" yaml:"fields"`

	FeatureIdentifierCol string `json:"feature_identifier_col" yaml:"feature_identifier_col"`
	EffectCol            string `json:"effect_col" yaml:"effect_col"`
	PvalCol              string `json:"pval_col" yaml:"pval_col"`

	DefaultEffectThreshold float64 `json:"default_effect_threshold" yaml:"default_effect_threshold"`
	DefaultPvalueThreshold float64 `json:"default_pvalue_threshold" yaml:"default_pvalue_threshold"`
}

func (f FileFormat) HasFeatureIdentifier() bool { return f.FeatureIdentifierCol != None }
func (f FileFormat) HasEffect() bool            { return f.EffectCol != None }
func (f FileFormat) HasPvalue() bool            { return f.PvalCol != None }

// WithDefaults fills unset optional attributes as an admin-created format does.
func (f FileFormat) WithDefaults() FileFormat {
	if f.Separator == "" {
		f.Separator = Tab
	}
	if f.FeatureIdentifierCol == "" {
		f.FeatureIdentifierCol = None
	}
	if f.EffectCol == "" {
		f.EffectCol = None
	}
	if f.PvalCol == "" {
		f.PvalCol = None
	}
	if f.DefaultPvalueThreshold == 0 {
		f.DefaultPvalueThreshold = 1.0
	}
	return f
}

// Validate checks that f is usable to parse files.
func (f FileFormat) Validate() error {
	name := f.Name
	if name == "" {
		return xe.Schema("(unnamed)", "fileformat name is required")
	}
	if _, err := ParseSeparator(string(f.Separator)); err != nil {
		return xe.Schema(name, "%s", err)
	}
	if len(f.Fields) == 0 {
		return xe.Schema(name, "fields should not be empty")
	}
	for attr, col := range map[string]string{
		"feature_identifier_col": f.FeatureIdentifierCol,
		"effect_col":             f.EffectCol,
		"pval_col":               f.PvalCol,
	} {
		if col == "" {
			return xe.Schema(name, "%s is empty; use %q for absence", attr, None)
		}
		if col == None {
			continue
		}
		if _, ok := f.Fields.Get(col); !ok {
			return xe.Schema(name, "%s %q is not one of fields %v", attr, col, f.Fields.Names())
		}
	}
	return nil
}

// BED6 is assumed when an upload names neither a FileFormat nor a DataSource.
func BED6() FileFormat {
	return FileFormat{
		Name:      "bed6",
		Separator: Tab,
		Fields: Fields{
			{Name: "chr", Type: TypeSpec{Kind: Str}},
			{Name: "start", Type: TypeSpec{Kind: Int}},
			{Name: "end", Type: TypeSpec{Kind: Int}},
			{Name: "name", Type: TypeSpec{Kind: Str}},
			{Name: "score", Type: TypeSpec{Kind: Float}},
			{Name: "strand", Type: TypeSpec{Kind: Str}},
		},
		FeatureIdentifierCol:   None,
		EffectCol:              None,
		PvalCol:                None,
		DefaultEffectThreshold: 0,
		DefaultPvalueThreshold: 1,
	}
}
