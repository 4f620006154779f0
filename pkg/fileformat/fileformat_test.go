package fileformat_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/fileformat"
	"gopkg.in/yaml.v3"
)

func TestFields(t *testing.T) {
	t.Run("it keeps declaration order of JSON object", func(t *testing.T) {
		var fields fileformat.Fields
		if err := json.Unmarshal(
			[]byte(`{"chr": "str", "start": "int", "end": "int", "depth": "int", "strand": ["+", "-", "*"]}`),
			&fields,
		); err != nil {
			t.Fatal(err)
		}

		want := []string{"chr", "start", "end", "depth", "strand"}
		got := fields.Names()
		if len(got) != len(want) {
			t.Fatalf("names = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("names = %v, want %v", got, want)
			}
		}

		strand, ok := fields.Get("strand")
		if !ok || strand.Kind != fileformat.Enum || !strand.Permits("*") || strand.Permits(".") {
			t.Errorf("unexpected strand type: %+v", strand)
		}
	})

	t.Run("it writes JSON object in declared order", func(t *testing.T) {
		fields := fileformat.Fields{
			{Name: "name", Type: fileformat.TypeSpec{Kind: fileformat.Str}},
			{Name: "score", Type: fileformat.TypeSpec{Kind: fileformat.Float}},
			{Name: "strand", Type: fileformat.TypeSpec{Kind: fileformat.Enum, Levels: []string{"+", "-"}}},
		}
		b, err := json.Marshal(fields)
		if err != nil {
			t.Fatal(err)
		}
		if want := `{"name":"str","score":"float","strand":["+","-"]}`; string(b) != want {
			t.Errorf("json = %s, want %s", b, want)
		}
	})

	t.Run("it rejects unknown types", func(t *testing.T) {
		var fields fileformat.Fields
		if err := json.Unmarshal([]byte(`{"chr": "string"}`), &fields); err == nil {
			t.Error("expected error, but not")
		}
	})

	t.Run("it rejects duplicated columns", func(t *testing.T) {
		var fields fileformat.Fields
		if err := json.Unmarshal([]byte(`{"chr": "str", "chr": "int"}`), &fields); err == nil {
			t.Error("expected error, but not")
		}
	})

	t.Run("it reads YAML mapping in order", func(t *testing.T) {
		var ff fileformat.FileFormat
		if err := yaml.Unmarshal([]byte(`
fileformat: qbed
separator: tab
fields:
  chr: str
  start: int
  end: int
  depth: int
  strand: ["+", "-", "*"]
feature_identifier_col: none
effect_col: none
pval_col: none
`), &ff); err != nil {
			t.Fatal(err)
		}
		if ff.Separator != fileformat.Tab {
			t.Errorf("separator = %q", ff.Separator)
		}
		if names := ff.Fields.Names(); len(names) != 5 || names[3] != "depth" {
			t.Errorf("names = %v", names)
		}
		if err := ff.WithDefaults().Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	t.Run("BED6 is valid", func(t *testing.T) {
		if err := fileformat.BED6().Validate(); err != nil {
			t.Error(err)
		}
	})

	t.Run("effect column should be one of fields", func(t *testing.T) {
		ff := fileformat.BED6()
		ff.EffectCol = "log2fc"
		if err := ff.Validate(); !errors.Is(err, xe.ErrSchema) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("absence is spelled none, not empty", func(t *testing.T) {
		ff := fileformat.BED6()
		ff.PvalCol = ""
		if err := ff.Validate(); !errors.Is(err, xe.ErrSchema) {
			t.Errorf("unexpected error: %v", err)
		}
		if got := ff.WithDefaults().PvalCol; got != fileformat.None {
			t.Errorf("default pval_col = %q", got)
		}
	})
}

type mapSource map[int64]fileformat.FileFormat

func (m mapSource) Get(_ context.Context, id int64) (fileformat.FileFormat, error) {
	if ff, ok := m[id]; ok {
		return ff, nil
	}
	return fileformat.FileFormat{}, xe.NotFound("fileformat", id)
}

func (m mapSource) GetByName(_ context.Context, name string) (fileformat.FileFormat, error) {
	for _, ff := range m {
		if ff.Name == name {
			return ff, nil
		}
	}
	return fileformat.FileFormat{}, xe.NotFound("fileformat", name)
}

func TestRegistry(t *testing.T) {
	bed := fileformat.BED6()
	bed.ID = 7
	registry := fileformat.NewRegistry(mapSource{7: bed})
	ctx := context.Background()

	t.Run("it resolves by id", func(t *testing.T) {
		ff, err := registry.Lookup(ctx, "7")
		if err != nil {
			t.Fatal(err)
		}
		if ff.Name != "bed6" {
			t.Errorf("unexpected format: %s", ff.Name)
		}
	})

	t.Run("it resolves by name", func(t *testing.T) {
		ff, err := registry.Lookup(ctx, "bed6")
		if err != nil {
			t.Fatal(err)
		}
		if ff.ID != 7 {
			t.Errorf("unexpected format: %d", ff.ID)
		}
	})

	t.Run("missing format is a schema error", func(t *testing.T) {
		for _, key := range []string{"8", "qbed", ""} {
			if _, err := registry.Lookup(ctx, key); !errors.Is(err, xe.ErrSchema) {
				t.Errorf("Lookup(%q): unexpected error: %v", key, err)
			}
		}
	})

	t.Run("the none sentinel is comparable as a string", func(t *testing.T) {
		ff, _ := registry.Lookup(ctx, "bed6")
		if ff.HasEffect() || ff.EffectCol != "none" {
			t.Errorf("effect_col = %q", ff.EffectCol)
		}
	})
}
