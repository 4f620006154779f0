package domain

import (
	"errors"
	"fmt"
)

var ErrUnknownLabel = errors.New("unknown label")

// QCLabel is a verdict of manual QC.
type QCLabel string

const (
	Pass       QCLabel = "pass"
	Fail       QCLabel = "fail"
	Unreviewed QCLabel = "unreviewed"
	Note       QCLabel = "note"
)

func (l QCLabel) String() string {
	return string(l)
}

func AsQCLabel(s string) (QCLabel, error) {
	switch l := QCLabel(s); l {
	case Pass, Fail, Unreviewed, Note:
		return l, nil
	case "":
		return Unreviewed, nil
	default:
		return QCLabel(s), fmt.Errorf("%w: %s", ErrUnknownLabel, s)
	}
}

// Inserts is a tally of insertions per contig type.
type Inserts struct {
	Genomic int64 `json:"genomic_inserts"`
	Mito    int64 `json:"mito_inserts"`
	Plasmid int64 `json:"plasmid_inserts"`
}

// Binding is a file of one binding experiment of a regulator.
//
// (RegulatorID, Batch, Replicate, SourceID) is unique.
type Binding struct {
	ID           int64  `json:"id"`
	RegulatorID  int64  `json:"regulator"`
	Batch        string `json:"batch"`
	Replicate    int64  `json:"replicate"`
	SourceID     int64  `json:"source"`
	SourceOrigID string `json:"source_orig_id"`
	Strain       string `json:"strain"`
	Notes        string `json:"notes"`

	// FileKey is the blob key of the file.
	//
	// Bindings of a data source listed as file-less have empty FileKey.
	FileKey string `json:"file"`

	Inserts
	Stamp
}

// CombinedBatch is the batch of Bindings combining passing replicates.
const CombinedBatch = "cc_combined"

type BindingManualQC struct {
	ID               int64   `json:"id"`
	BindingID        int64   `json:"binding"`
	DataUsable       QCLabel `json:"data_usable"`
	PassingReplicate QCLabel `json:"passing_replicate"`
	BestDatatype     QCLabel `json:"best_datatype"`
	RankRecall       QCLabel `json:"rank_recall"`
	Notes            string  `json:"notes"`
	Stamp
}

// NewBindingManualQC is the QC record of a new Binding: all labels are unreviewed.
func NewBindingManualQC(bindingID int64, stamp Stamp) BindingManualQC {
	return BindingManualQC{
		BindingID:        bindingID,
		DataUsable:       Unreviewed,
		PassingReplicate: Unreviewed,
		BestDatatype:     Unreviewed,
		RankRecall:       Unreviewed,
		Stamp:            stamp,
	}
}

type ExpressionControl string

const (
	ControlUndefined ExpressionControl = "undefined"
	ControlWT        ExpressionControl = "wt"
	ControlWTMatA    ExpressionControl = "wt_mata"
)

type ExpressionMechanism string

const (
	MechanismGEV  ExpressionMechanism = "gev"
	MechanismZEV  ExpressionMechanism = "zev"
	MechanismTFKO ExpressionMechanism = "tfko"
)

// Expression is a file of one expression experiment perturbing a regulator.
//
// (RegulatorID, Batch, Strain, Replicate, Control, Mechanism, Restriction, Time, SourceID) is unique.
type Expression struct {
	ID          int64               `json:"id"`
	RegulatorID int64               `json:"regulator"`
	Batch       string              `json:"batch"`
	Replicate   int64               `json:"replicate"`
	Control     ExpressionControl   `json:"control"`
	Mechanism   ExpressionMechanism `json:"mechanism"`
	Restriction string              `json:"restriction"`
	Time        float64             `json:"time"`
	Strain      string              `json:"strain"`
	SourceID    int64               `json:"source"`
	Notes       string              `json:"notes"`
	FileKey     string              `json:"file"`
	Stamp
}

// Validate checks enumerated attributes of e.
func (e Expression) Validate() error {
	switch e.Control {
	case ControlUndefined, ControlWT, ControlWTMatA:
	default:
		return fmt.Errorf("control should be one of undefined, wt, wt_mata: %q", e.Control)
	}
	switch e.Mechanism {
	case MechanismGEV, MechanismZEV, MechanismTFKO:
	default:
		return fmt.Errorf("mechanism should be one of gev, zev, tfko: %q", e.Mechanism)
	}
	switch e.Restriction {
	case "undefined", "P", "M", "N":
	default:
		return fmt.Errorf("restriction should be one of undefined, P, M, N: %q", e.Restriction)
	}
	if e.Time < 0 {
		return fmt.Errorf("time should not be negative: %v", e.Time)
	}
	return nil
}

type ExpressionManualQC struct {
	ID             int64   `json:"id"`
	ExpressionID   int64   `json:"expression"`
	StrainVerified QCLabel `json:"strain_verified"`
	Notes          string  `json:"notes"`
	Stamp
}
