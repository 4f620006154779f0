package main

import (
	"encoding/json"
	"os"

	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/fileformat"
	"github.com/opst/yeastregulatorydb/pkg/genomic"
	"github.com/opst/yeastregulatorydb/pkg/table"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// report is written to stdout when the file is valid.
type report struct {
	File    string          `json:"file"`
	Format  string          `json:"fileformat"`
	Rows    int             `json:"rows"`
	Genomic bool            `json:"genomic"`
	Inserts *domain.Inserts `json:"inserts,omitempty"`
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "check a tabular file against its fileformat and the chrmap before uploading it",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name: "fileformat", Usage: "yaml file of fileformats, a list of them", Required: true,
			},
			&cli.StringFlag{
				Name: "format", Aliases: []string{"f"}, Usage: "name of the fileformat of FILE. bed6 if empty",
			},
			&cli.StringFlag{
				Name: "chrmap", Usage: "csv file of the chrmap. coordinates are not checked if empty",
			},
			&cli.StringFlag{
				Name: "chr-format", Usage: "naming convention of chr column of FILE", Value: "ucsc",
			},
			&cli.BoolFlag{
				Name: "count", Usage: "count insertions per contig type, as calling cards files are",
			},
			&cli.BoolFlag{
				Name: "no-dedup", Usage: "count insertions without collapsing duplicated coordinates",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("FILE is required", 2)
			}
			path := c.Args().First()

			ff, err := loadFormat(c.String("fileformat"), c.String("format"))
			if err != nil {
				return err
			}
			t, err := readTable(path, ff.Separator.Rune())
			if err != nil {
				return err
			}

			rep := report{File: path, Format: ff.Name, Rows: t.Len(), Genomic: genomic.IsGenomic(t)}
			chrmapPath := c.String("chrmap")
			if chrmapPath == "" || !rep.Genomic {
				if err := genomic.Validate(t, ff.Fields); err != nil {
					return err
				}
				return json.NewEncoder(c.App.Writer).Encode(rep)
			}

			chrmap, err := readChrMap(chrmapPath)
			if err != nil {
				return err
			}
			chrFormat := c.String("chr-format")
			if err := genomic.ValidateGenomic(t, chrmap, chrFormat, ff.Fields); err != nil {
				return err
			}
			if c.Bool("count") {
				inserts, err := genomic.CountHops(t, chrmap, chrFormat, !c.Bool("no-dedup"))
				if err != nil {
					return err
				}
				rep.Inserts = &inserts
			}
			return json.NewEncoder(c.App.Writer).Encode(rep)
		},
	}
}

func loadFormat(path string, name string) (fileformat.FileFormat, error) {
	if name == "" {
		name = fileformat.BED6().Name
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return fileformat.FileFormat{}, xe.Wrap(err)
	}
	formats := []fileformat.FileFormat{}
	if err := yaml.Unmarshal(buf, &formats); err != nil {
		return fileformat.FileFormat{}, xe.Invalid("fileformat", "%s: %s", path, err)
	}
	for _, ff := range formats {
		if ff.Name != name {
			continue
		}
		ff = ff.WithDefaults()
		if err := ff.Validate(); err != nil {
			return fileformat.FileFormat{}, err
		}
		return ff, nil
	}
	if name == fileformat.BED6().Name {
		return fileformat.BED6(), nil
	}
	return fileformat.FileFormat{}, xe.NotFound("fileformat", name)
}

// readTable reads a delimited file, which may be gzipped.
func readTable(path string, sep rune) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer f.Close()

	r, gz, err := table.Sniff(f)
	if err != nil {
		return nil, xe.Invalid("file", "%s: %s", path, err)
	}
	if gz {
		zr, err := table.Decompress(r)
		if err != nil {
			return nil, xe.Invalid("file", "%s: %s", path, err)
		}
		defer zr.Close()
		return table.Parse(zr, sep)
	}
	return table.Parse(r, sep)
}

// readChrMap reads a csv with a column per chr format, and columns seqlength and type.
func readChrMap(path string) (domain.ChrMap, error) {
	t, err := readTable(path, ',')
	if err != nil {
		return nil, err
	}
	required := append([]string{"seqlength", "type"}, domain.ChrFormats...)
	if !t.Has(required...) {
		return nil, xe.Invalid("chrmap", "columns %v are required; %s has %v", required, path, t.Header)
	}
	lengths, err := t.Ints("seqlength")
	if err != nil {
		return nil, xe.Invalid("chrmap", "seqlength: %s", err)
	}

	out := make(domain.ChrMap, t.Len())
	for n := range t.Rows {
		out[n] = domain.Contig{
			ID:        int64(n + 1),
			Refseq:    t.Cell(n, "refseq"),
			Igenomes:  t.Cell(n, "igenomes"),
			Ensembl:   t.Cell(n, "ensembl"),
			Ucsc:      t.Cell(n, "ucsc"),
			Mitra:     t.Cell(n, "mitra"),
			Numbered:  t.Cell(n, "numbered"),
			Chr:       t.Cell(n, "chr"),
			Seqlength: lengths[n],
			Type:      domain.ChrType(t.Cell(n, "type")),
		}
	}
	return out, nil
}
