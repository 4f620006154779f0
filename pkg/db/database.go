// Package db declares the persistence ports of records.
//
// Implementations are in pkg/db/memory and pkg/db/postgres.
package db

import (
	"context"

	"github.com/opst/yeastregulatorydb/pkg/domain"
	"github.com/opst/yeastregulatorydb/pkg/fileformat"
)

type Database interface {
	FileFormats() FileFormatInterface
	References() ReferenceInterface
	Bindings() BindingInterface
	Expressions() ExpressionInterface
	Backgrounds() BackgroundInterface
	PromoterSets() PromoterSetInterface
	PromoterSetSigs() PromoterSetSigInterface
	RankResponses() RankResponseInterface
	Garbage() GarbageInterface
	Renames() RenameInterface

	// Atomic runs fn in one transaction.
	//
	// fn should access records only through the Database passed to it.
	// When fn returns an error, all changes made in fn are discarded.
	// Atomic in Atomic joins the outer transaction.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Database) error) error

	Close() error
}

type FileFormatInterface interface {
	fileformat.Source

	// Create registers ff and returns it with its new id.
	//
	// If the name is taken, returns an error wrapping errors.ErrConflict.
	Create(ctx context.Context, ff fileformat.FileFormat) (fileformat.FileFormat, error)

	// List returns all FileFormats ordered by id.
	List(ctx context.Context) ([]fileformat.FileFormat, error)
}

type ReferenceInterface interface {
	// PutChrMap replaces the whole contig table.
	PutChrMap(ctx context.Context, chrmap domain.ChrMap) error

	ChrMap(ctx context.Context) (domain.ChrMap, error)

	CreateDataSource(ctx context.Context, ds domain.DataSource) (domain.DataSource, error)
	GetDataSource(ctx context.Context, id int64) (domain.DataSource, error)
	GetDataSourceByName(ctx context.Context, name string) (domain.DataSource, error)

	CreateGenomicFeature(ctx context.Context, gf domain.GenomicFeature) (domain.GenomicFeature, error)

	// GetGenomicFeatures returns features of ids, keyed by id. Missing ids are not in the result.
	GetGenomicFeatures(ctx context.Context, ids []int64) (map[int64]domain.GenomicFeature, error)

	// FindGenomicFeature finds a feature by locus tag, or by symbol when locusTag is empty.
	FindGenomicFeature(ctx context.Context, locusTag string, symbol string) (domain.GenomicFeature, error)

	GetRegulator(ctx context.Context, id int64) (domain.Regulator, error)

	// GetOrCreateRegulator returns the Regulator of the feature, creating it with stamp if missing.
	GetOrCreateRegulator(ctx context.Context, featureID int64, stamp domain.Stamp) (domain.Regulator, error)
}

// BindingQuery filters Bindings. Zero values match anything.
type BindingQuery struct {
	RegulatorID int64
	SourceID    int64

	// Assay of the DataSource.
	Assay string

	// DataUsable label of BindingManualQC.
	DataUsable domain.QCLabel

	Batch string
}

type BindingInterface interface {
	// Create inserts b with its BindingManualQC where all labels are unreviewed.
	//
	// # Returns
	//
	// - domain.Binding: b with its id.
	//
	// - error: wrapping errors.ErrConflict when (regulator, batch, replicate, source) is taken.
	Create(ctx context.Context, b domain.Binding) (domain.Binding, error)

	Get(ctx context.Context, id int64) (domain.Binding, error)

	// Find returns Bindings matching q, ordered by id.
	Find(ctx context.Context, q BindingQuery) ([]domain.Binding, error)

	// Update overwrites attributes of the Binding with b.ID, except Uploader and UploadDate.
	Update(ctx context.Context, b domain.Binding) error

	SetFile(ctx context.Context, id int64, key string) error

	GetQC(ctx context.Context, bindingID int64) (domain.BindingManualQC, error)

	// UpdateQC overwrites labels of the QC record of qc.BindingID.
	//
	// It returns the QC record before the update.
	UpdateQC(ctx context.Context, qc domain.BindingManualQC) (domain.BindingManualQC, error)

	// Delete removes the Binding and its derived records.
	//
	// It returns blob keys owned by the removed records.
	Delete(ctx context.Context, id int64) ([]string, error)
}

// ExpressionQuery filters Expressions. Zero values match anything.
type ExpressionQuery struct {
	RegulatorID int64
	SourceID    int64
}

type ExpressionInterface interface {
	// Create inserts e with its ExpressionManualQC.
	//
	// If its natural key is taken, returns an error wrapping errors.ErrConflict.
	Create(ctx context.Context, e domain.Expression) (domain.Expression, error)
	Get(ctx context.Context, id int64) (domain.Expression, error)
	Find(ctx context.Context, q ExpressionQuery) ([]domain.Expression, error)
	SetFile(ctx context.Context, id int64, key string) error
	Delete(ctx context.Context, id int64) ([]string, error)
}

type BackgroundInterface interface {
	Create(ctx context.Context, b domain.CallingCardsBackground) (domain.CallingCardsBackground, error)
	Get(ctx context.Context, id int64) (domain.CallingCardsBackground, error)
	List(ctx context.Context) ([]domain.CallingCardsBackground, error)
	SetFile(ctx context.Context, id int64, key string) error
	Delete(ctx context.Context, id int64) ([]string, error)
}

type PromoterSetInterface interface {
	Create(ctx context.Context, p domain.PromoterSet) (domain.PromoterSet, error)
	Get(ctx context.Context, id int64) (domain.PromoterSet, error)
	List(ctx context.Context) ([]domain.PromoterSet, error)
	SetFile(ctx context.Context, id int64, key string) error
	Delete(ctx context.Context, id int64) ([]string, error)
}

// PromoterSetSigQuery filters PromoterSetSigs. Zero values match anything.
type PromoterSetSigQuery struct {
	BindingID    int64
	PromoterID   int64
	BackgroundID int64
	RegulatorID  int64
}

type PromoterSetSigInterface interface {
	// Create inserts s.
	//
	// If (binding, promoter, background) is taken, returns an error wrapping errors.ErrConflict.
	Create(ctx context.Context, s domain.PromoterSetSig) (domain.PromoterSetSig, error)
	Get(ctx context.Context, id int64) (domain.PromoterSetSig, error)
	Find(ctx context.Context, q PromoterSetSigQuery) ([]domain.PromoterSetSig, error)

	// Lookup finds the PromoterSetSig of exactly (binding, promoter, background).
	// backgroundID 0 means "without background".
	Lookup(ctx context.Context, bindingID, promoterID, backgroundID int64) (domain.PromoterSetSig, error)

	SetFile(ctx context.Context, id int64, key string) error
	Delete(ctx context.Context, id int64) ([]string, error)
}

// RankResponseQuery filters RankResponses. Zero values match anything.
type RankResponseQuery struct {
	PromoterSetSigID int64
	ExpressionID     int64
}

type RankResponseInterface interface {
	// Create inserts r.
	//
	// If (promotersetsig, expression) is taken, returns an error wrapping errors.ErrConflict.
	Create(ctx context.Context, r domain.RankResponse) (domain.RankResponse, error)
	Get(ctx context.Context, id int64) (domain.RankResponse, error)
	Find(ctx context.Context, q RankResponseQuery) ([]domain.RankResponse, error)
	Lookup(ctx context.Context, promoterSetSigID, expressionID int64) (domain.RankResponse, error)
	SetFile(ctx context.Context, id int64, key string) error
	Delete(ctx context.Context, id int64) ([]string, error)
}

// GarbageInterface is a pile of blob keys whose records are gone but whose files could not be deleted.
type GarbageInterface interface {
	// Put records keys. Keys already recorded are ignored.
	Put(ctx context.Context, keys ...string) error

	// Pop takes a key and passes it to callback.
	//
	// The key is removed only when callback returns nil.
	// Concurrent Pops take different keys.
	//
	// # Returns
	//
	// - bool: true if a key is popped.
	//
	// - error: error from callback or the database.
	Pop(ctx context.Context, callback func(key string) error) (bool, error)
}

// RenameInterface is a pile of files which committed records refer under temporary keys.
type RenameInterface interface {
	// Put records renames. Renames already recorded are ignored.
	Put(ctx context.Context, renames ...domain.Rename) error

	// Pop takes a rename and passes it to callback.
	//
	// The rename is removed only when callback returns nil.
	// Concurrent Pops take different renames.
	Pop(ctx context.Context, callback func(domain.Rename) error) (bool, error)
}
