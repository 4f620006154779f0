package table_test

import (
	"bytes"
	"compress/gzip"
	"errors"
	"strings"
	"testing"

	"github.com/opst/yeastregulatorydb/pkg/table"
)

func gz(t *testing.T, content string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := gzip.NewWriter(buf)
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReadGzip(t *testing.T) {
	t.Run("it reads gzipped tab separated values", func(t *testing.T) {
		got, err := table.ReadGzip(
			bytes.NewReader(gz(t, "chr\tstart\tend\nchr1\t1\t2\nchr2\t3\t4\n")), '\t',
		)
		if err != nil {
			t.Fatal(err)
		}
		if strings.Join(got.Header, ",") != "chr,start,end" || got.Len() != 2 {
			t.Errorf("unexpected table: %+v", got)
		}
		if got.Cell(1, "start") != "3" {
			t.Errorf("cell = %s", got.Cell(1, "start"))
		}
	})

	t.Run("when the content is empty, it is ErrEmpty", func(t *testing.T) {
		if _, err := table.ReadGzip(bytes.NewReader(nil), '\t'); !errors.Is(err, table.ErrEmpty) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("when the content is not gzip, it is ErrNotGzip", func(t *testing.T) {
		_, err := table.ReadGzip(strings.NewReader("chr\tstart\tend\n"), '\t')
		if !errors.Is(err, table.ErrNotGzip) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("when gzip holds nothing, it is ErrEmpty", func(t *testing.T) {
		if _, err := table.ReadGzip(bytes.NewReader(gz(t, "")), ','); !errors.Is(err, table.ErrEmpty) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("when rows do not fit the header, the error tells the separator", func(t *testing.T) {
		_, err := table.ReadGzip(bytes.NewReader(gz(t, "a\tb\n1\t2\t3\n")), '\t')
		var perr *table.ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("unexpected error: %v", err)
		}
		if perr.Separator != '\t' || !strings.Contains(err.Error(), `'\t'`) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestWrite(t *testing.T) {
	src := table.New("chr", "start", "end", "depth", "strand")
	src.Append("chr1", "1", "2", "3", "+")
	src.Append("chrM", "5", "6", "1", "*")

	for name, write := range map[string]func(*bytes.Buffer) error{
		"gzip": func(b *bytes.Buffer) error { return src.WriteGzip(b, '\t') },
		"bgzf": func(b *bytes.Buffer) error { return src.WriteBGZF(b, '\t') },
	} {
		t.Run("it writes "+name+" which is readable again", func(t *testing.T) {
			buf := new(bytes.Buffer)
			if err := write(buf); err != nil {
				t.Fatal(err)
			}
			got, err := table.ReadGzip(buf, '\t')
			if err != nil {
				t.Fatal(err)
			}
			if got.Len() != 2 || got.Cell(1, "strand") != "*" {
				t.Errorf("unexpected table: %+v", got)
			}
		})
	}
}

func TestSelectAndConcat(t *testing.T) {
	a := table.New("feature", "effect", "pvalue")
	a.Append("YAL001C", "1.5", "0.01")
	b := table.New("feature", "effect", "pvalue")
	b.Append("YAL002W", "-0.5", "0.2")

	all, err := table.Concat(a, b)
	if err != nil {
		t.Fatal(err)
	}
	sel, err := all.Select("pvalue", "feature")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(sel.Header, ",") != "pvalue,feature" || sel.Cell(1, "feature") != "YAL002W" {
		t.Errorf("unexpected table: %+v", sel)
	}

	if _, err := all.Select("log2fc"); err == nil {
		t.Error("missing column is selected")
	}
	if _, err := table.Concat(a, table.New("feature")); err == nil {
		t.Error("tables with other headers are concatenated")
	}
}

func TestIsNull(t *testing.T) {
	for _, cell := range []string{"", "NA", "NaN", " nan ", "None"} {
		if !table.IsNull(cell) {
			t.Errorf("IsNull(%q) = false", cell)
		}
	}
	for _, cell := range []string{"0", "none", "-", "YAL001C"} {
		if table.IsNull(cell) {
			t.Errorf("IsNull(%q) = true", cell)
		}
	}
}
