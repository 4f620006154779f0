package fileformat

import (
	"context"
	"errors"
	"strconv"
	"strings"

	xe "github.com/opst/yeastregulatorydb/pkg/errors"
)

// Source is where FileFormats are stored.
type Source interface {
	// Get returns the FileFormat with id.
	//
	// If it is missing, returns an error wrapping errors.ErrNotFound.
	Get(ctx context.Context, id int64) (FileFormat, error)

	// GetByName returns the FileFormat with name.
	//
	// If it is missing, returns an error wrapping errors.ErrNotFound.
	GetByName(ctx context.Context, name string) (FileFormat, error)
}

// Registry resolves FileFormats by name or id.
type Registry struct {
	source Source
}

func NewRegistry(source Source) *Registry {
	return &Registry{source: source}
}

// Lookup resolves nameOrID.
//
// A string consisting of digits is taken as an id, otherwise as a name.
// A missing format is reported as a SchemaError.
func (r *Registry) Lookup(ctx context.Context, nameOrID string) (FileFormat, error) {
	nameOrID = strings.TrimSpace(nameOrID)
	if nameOrID == "" {
		return FileFormat{}, xe.Schema("(empty)", "fileformat name or id is required")
	}

	var ff FileFormat
	var err error
	if id, perr := strconv.ParseInt(nameOrID, 10, 64); perr == nil {
		ff, err = r.source.Get(ctx, id)
	} else {
		ff, err = r.source.GetByName(ctx, nameOrID)
	}
	if errors.Is(err, xe.ErrNotFound) {
		return FileFormat{}, xe.Schema(nameOrID, "fileformat is not registered")
	}
	if err != nil {
		return FileFormat{}, err
	}
	return ff, nil
}

// ByID resolves a FileFormat by its id.
func (r *Registry) ByID(ctx context.Context, id int64) (FileFormat, error) {
	return r.Lookup(ctx, strconv.FormatInt(id, 10))
}
