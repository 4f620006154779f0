package domain

import (
	"fmt"
	"slices"
)

type ChrType string

const (
	Genomic ChrType = "genomic"
	Mito    ChrType = "mito"
	Plasmid ChrType = "plasmid"
)

// ChrTypes is the classification of contigs, in reporting order.
var ChrTypes = []ChrType{Genomic, Mito, Plasmid}

// naming conventions of contigs; each is a column of ChrMap.
var ChrFormats = []string{"refseq", "igenomes", "ensembl", "ucsc", "mitra", "numbered", "chr"}

func IsChrFormat(format string) bool {
	return slices.Contains(ChrFormats, format)
}

// Contig is a row of ChrMap.
type Contig struct {
	ID        int64   `json:"id"`
	Refseq    string  `json:"refseq"`
	Igenomes  string  `json:"igenomes"`
	Ensembl   string  `json:"ensembl"`
	Ucsc      string  `json:"ucsc"`
	Mitra     string  `json:"mitra"`
	Numbered  string  `json:"numbered"`
	Chr       string  `json:"chr"`
	Seqlength int64   `json:"seqlength"`
	Type      ChrType `json:"type"`
}

// Name returns the name of the contig in the naming convention format.
func (c Contig) Name(format string) (string, error) {
	switch format {
	case "refseq":
		return c.Refseq, nil
	case "igenomes":
		return c.Igenomes, nil
	case "ensembl":
		return c.Ensembl, nil
	case "ucsc":
		return c.Ucsc, nil
	case "mitra":
		return c.Mitra, nil
	case "numbered":
		return c.Numbered, nil
	case "chr":
		return c.Chr, nil
	default:
		return "", fmt.Errorf("unknown chr format: %s", format)
	}
}

// ChrMap is the contig table.
type ChrMap []Contig

// Index maps contig names in format to contigs.
func (m ChrMap) Index(format string) (map[string]Contig, error) {
	idx := make(map[string]Contig, len(m))
	for _, c := range m {
		name, err := c.Name(format)
		if err != nil {
			return nil, err
		}
		idx[name] = c
	}
	return idx, nil
}
