// Package records declares request and response bodies of the api.
package records

import "github.com/opst/yeastregulatorydb/pkg/domain"

// Created is the response of an upload.
type Created[T any] struct {
	Record T `json:"record"`

	// PromoterSetSig is the significance file saved with a Binding of a null-file source.
	PromoterSetSig *domain.PromoterSetSig `json:"promotersetsig,omitempty"`

	// Tasks are ids of tasks submitted for the record.
	Tasks []int64 `json:"tasks"`

	// ChainError tells why tasks could not be submitted. The record is saved anyway.
	ChainError string `json:"chain_error,omitempty"`
}

// Submitted is the response of trigger endpoints.
type Submitted struct {
	Tasks []int64 `json:"tasks"`
}

// PromoterSetSigTrigger is the body of POST /api/promotersetsig/ in json.
type PromoterSetSigTrigger struct {
	Binding      int64  `json:"binding"`
	OutputFormat string `json:"output_format"`
	PromoterSet  int64  `json:"promoterset,omitempty"`
	Background   int64  `json:"background,omitempty"`
}

// RankResponseTrigger is the body of POST /api/rankresponse/ .
type RankResponseTrigger struct {
	PromoterSetSig            int64    `json:"promotersetsig"`
	Expression                int64    `json:"expression,omitempty"`
	ExpressionEffectThreshold *float64 `json:"expression_effect_threshold,omitempty"`
	ExpressionPvalueThreshold *float64 `json:"expression_pvalue_threshold,omitempty"`
	Normalize                 bool     `json:"normalize,omitempty"`
}

// QCChange is the body of PUT /api/binding/:id/qc/ . Missing labels are kept.
type QCChange struct {
	DataUsable       *string `json:"data_usable,omitempty"`
	PassingReplicate *string `json:"passing_replicate,omitempty"`
	BestDatatype     *string `json:"best_datatype,omitempty"`
	RankRecall       *string `json:"rank_recall,omitempty"`
	Notes            *string `json:"notes,omitempty"`
}

// DataSource is the body of POST /api/datasource/ .
type DataSource struct {
	Name     string `json:"name"`
	Lab      string `json:"lab"`
	Assay    string `json:"assay"`
	Workflow string `json:"workflow"`

	// FileFormat is the name or id of the format of files of the source.
	FileFormat  string `json:"fileformat"`
	Description string `json:"description"`
	Citation    string `json:"citation"`
}
