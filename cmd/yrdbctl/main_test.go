package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/opst/yeastregulatorydb/internal/testutils/fixtures"
	"github.com/opst/yeastregulatorydb/pkg/api/auth"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/urfave/cli/v2"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout := new(bytes.Buffer)
	a := app()
	a.Writer = stdout
	a.ErrWriter = io.Discard
	a.ExitErrHandler = func(*cli.Context, error) {}
	err := a.Run(append([]string{"yrdbctl"}, args...))
	return stdout.String(), err
}

func write(t *testing.T, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, content, 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

const formats = `
- fileformat: qbed
  separator: tab
  fields:
    chr: str
    start: int
    end: int
    depth: int
    strand: ["+", "-", "*"]
`

func chrmapCSV() []byte {
	rows := [][]string{{"refseq", "igenomes", "ensembl", "ucsc", "mitra", "numbered", "chr", "seqlength", "type"}}
	for _, c := range fixtures.ChrMap() {
		rows = append(rows, []string{
			c.Refseq, c.Igenomes, c.Ensembl, c.Ucsc, c.Mitra, c.Numbered, c.Chr,
			strconv.FormatInt(c.Seqlength, 10), string(c.Type),
		})
	}
	return []byte(fixtures.Lines(",", rows...))
}

var qbedHeader = []string{"chr", "start", "end", "depth", "strand"}

func TestValidate(t *testing.T) {
	t.Run("when a qbed is valid, it reports insertions per contig type", func(t *testing.T) {
		ff := write(t, "formats.yaml", []byte(formats))
		chrmap := write(t, "chrmap.csv", chrmapCSV())
		qbed := write(t, "hap4.qbed.gz", fixtures.Gzip(t, fixtures.Lines("\t",
			qbedHeader,
			[]string{"chrI", "100", "101", "1", "+"},
			[]string{"chrI", "100", "101", "2", "-"},
			[]string{"chrII", "500", "501", "1", "+"},
			[]string{"chrM", "50", "51", "1", "+"},
		)))

		for name, testcase := range map[string]struct {
			flags   []string
			genomic int64
		}{
			"deduplicated": {flags: nil, genomic: 2},
			"as is":        {flags: []string{"--no-dedup"}, genomic: 3},
		} {
			t.Run(name, func(t *testing.T) {
				args := append([]string{
					"validate", "--fileformat", ff, "--format", "qbed", "--chrmap", chrmap, "--count",
				}, testcase.flags...)
				out, err := run(t, append(args, qbed)...)
				if err != nil {
					t.Fatal(err)
				}
				rep := report{}
				if err := json.Unmarshal([]byte(out), &rep); err != nil {
					t.Fatalf("unexpected output: %s", out)
				}
				if rep.Rows != 4 || !rep.Genomic || rep.Inserts == nil {
					t.Fatalf("unexpected report: %+v", rep)
				}
				if rep.Inserts.Genomic != testcase.genomic || rep.Inserts.Mito != 1 || rep.Inserts.Plasmid != 0 {
					t.Errorf("unexpected inserts: %+v", *rep.Inserts)
				}
			})
		}
	})

	for name, testcase := range map[string]struct {
		rows   [][]string
		format string
		want   error
	}{
		"when a chr is unknown, it is a validation error": {
			rows:   [][]string{{"chrXXX", "1", "2", "1", "+"}},
			format: "qbed",
			want:   xe.ErrValidation,
		},
		"when a strand is out of levels, it is a validation error": {
			rows:   [][]string{{"chrI", "1", "2", "1", "?"}},
			format: "qbed",
			want:   xe.ErrValidation,
		},
		"when the format is not listed, it is not found": {
			rows:   [][]string{{"chrI", "1", "2", "1", "+"}},
			format: "narrowpeak",
			want:   xe.ErrNotFound,
		},
	} {
		t.Run(name, func(t *testing.T) {
			ff := write(t, "formats.yaml", []byte(formats))
			chrmap := write(t, "chrmap.csv", chrmapCSV())
			qbed := write(t, "x.qbed", []byte(fixtures.Lines("\t", append([][]string{qbedHeader}, testcase.rows...)...)))

			_, err := run(t, "validate", "--fileformat", ff, "--format", testcase.format, "--chrmap", chrmap, qbed)
			if !errors.Is(err, testcase.want) {
				t.Errorf("error: (actual, expected) = (%v, %v)", err, testcase.want)
			}
		})
	}

	t.Run("without chrmap, only columns are checked", func(t *testing.T) {
		ff := write(t, "formats.yaml", []byte(formats))
		qbed := write(t, "x.qbed", []byte(fixtures.Lines("\t", qbedHeader, []string{"chrXXX", "1", "2", "1", "+"})))

		out, err := run(t, "validate", "--fileformat", ff, "--format", "qbed", qbed)
		if err != nil {
			t.Fatal(err)
		}
		rep := report{}
		if err := json.Unmarshal([]byte(out), &rep); err != nil {
			t.Fatalf("unexpected output: %s", out)
		}
		if rep.Inserts != nil || rep.Rows != 1 {
			t.Errorf("unexpected report: %+v", rep)
		}
	})
}

func TestToken(t *testing.T) {
	t.Run("it issues a token verified by the key", func(t *testing.T) {
		out, err := run(t, "token", "--key", "secret", "--user", "alice", "--ttl", "1h")
		if err != nil {
			t.Fatal(err)
		}
		user, err := auth.Verify([]byte("secret"), string(bytes.TrimSpace([]byte(out))), time.Now())
		if err != nil {
			t.Fatal(err)
		}
		if user != "alice" {
			t.Errorf("user: %s", user)
		}
	})
}
