package domain

// domain package contains the Domain Models of yeastregulatorydb.
//
// `domain/ENTITY.go` has entities and functions on them.
// Persistence is in `pkg/db` (interfaces) and its implementations, `pkg/db/memory` and `pkg/db/postgres`.
//
// # Entities
//
// Reference data, created by administrators ahead of uploads:
//
// - `FileFormat` (in `pkg/fileformat`): schema of tabular files.
//
// - `ChrMap`: contigs of the yeast genome and its plasmids, with their names in several conventions,
// lengths and classification (genomic, mito or plasmid).
//
// - `DataSource`: the lab, assay and workflow producing files. It references a FileFormat.
//
// - `GenomicFeature` and `Regulator`: genes, and genes which are studied as transcription factors.
//
// Uploaded data, created by researchers:
//
// - `Binding`, `Expression`: a file of a regulator's binding (or expression) experiment.
// Each has a manual QC record created with it.
//
// - `CallingCardsBackground`, `PromoterSet`: files used to score bindings.
//
// Derived data, created only by background tasks:
//
// - `PromoterSetSig`: significance of a Binding on each promoter of a PromoterSet.
//
// - `RankResponse`: comparison of a PromoterSetSig against an Expression.
//
// Every file-owning entity stores its file in the blob store under a key derived from its id.
// See `FileKey`.
