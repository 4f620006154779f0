package domain

import "time"

// Stamp records who created and last modified a record.
type Stamp struct {
	Uploader     string    `json:"uploader"`
	UploadDate   time.Time `json:"upload_date"`
	Modifier     string    `json:"modifier"`
	ModifiedDate time.Time `json:"modified_date"`
}

// NewStamp is a Stamp of a record created now by user.
func NewStamp(user string, now time.Time) Stamp {
	return Stamp{Uploader: user, UploadDate: now, Modifier: user, ModifiedDate: now}
}

// Touch updates the modifier of s.
func (s Stamp) Touch(user string, now time.Time) Stamp {
	s.Modifier = user
	s.ModifiedDate = now
	return s
}

// DataSource is a lab/assay/workflow producing files of one FileFormat.
//
// (Lab, Assay, Workflow) is unique.
type DataSource struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Lab          string `json:"lab"`
	Assay        string `json:"assay"`
	Workflow     string `json:"workflow"`
	FileFormatID int64  `json:"fileformat"`
	Description  string `json:"description"`
	Citation     string `json:"citation"`
	Stamp
}

type GenomicFeature struct {
	ID       int64  `json:"id"`
	Chr      string `json:"chr"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	Strand   string `json:"strand"`
	Type     string `json:"type"`
	Biotype  string `json:"biotype"`
	LocusTag string `json:"locus_tag"`
	Symbol   string `json:"symbol"`
	Source   string `json:"source"`
	Alias    string `json:"alias"`
	Note     string `json:"note"`
}

// Regulator is a GenomicFeature studied as a transcription factor.
type Regulator struct {
	ID               int64  `json:"id"`
	GenomicFeatureID int64  `json:"genomicfeature"`
	UnderDevelopment bool   `json:"under_development"`
	Notes            string `json:"notes"`
	Stamp
}
