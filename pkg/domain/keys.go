package domain

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Category is the top level directory of blob keys of an entity.
type Category string

const (
	CategoryBinding        Category = "binding"
	CategoryExpression     Category = "expression"
	CategoryBackground     Category = "callingcardsbackground"
	CategoryPromoterSet    Category = "promoterset"
	CategoryPromoterSetSig Category = "promotersetsig"
	CategoryRankResponse   Category = "rankresponse"
)

const tempPrefix = "tmp-"

// Ext extracts the extension of basename, like "tsv.gz" from "hap4_rep1.tsv.gz".
//
// When basename has no extension, it is "txt.gz".
func Ext(basename string) string {
	parts := strings.Split(path.Base(basename), ".")
	switch {
	case len(parts) >= 3:
		return strings.Join(parts[len(parts)-2:], ".")
	case len(parts) == 2 && parts[1] != "":
		return parts[1]
	default:
		return "txt.gz"
	}
}

// FileKey is the canonical blob key of a file owned by the record with id.
//
// It is "{category}/{identifier}/{id}.{ext}", or "{category}/{id}.{ext}" if identifier is empty.
func FileKey(category Category, identifier string, id int64, basename string) string {
	name := fmt.Sprintf("%d.%s", id, Ext(basename))
	if identifier == "" {
		return path.Join(string(category), name)
	}
	return path.Join(string(category), identifier, name)
}

// TempKey is a blob key for a file whose owner does not have an id yet.
func TempKey(category Category, identifier string, basename string) string {
	name := tempPrefix + uuid.NewString() + "." + Ext(basename)
	if identifier == "" {
		return path.Join(string(category), name)
	}
	return path.Join(string(category), identifier, name)
}

// IsTempKey reports whether key is made by TempKey.
func IsTempKey(key string) bool {
	return strings.HasPrefix(path.Base(key), tempPrefix)
}

// Rename is a file left under a temporary key by a committed record.
type Rename struct {
	// OwnerID is the id of the record referring TempKey.
	OwnerID int64
	TempKey string
}

// Category is the category of the owner, taken from TempKey.
func (r Rename) Category() Category {
	c, _, _ := strings.Cut(r.TempKey, "/")
	return Category(c)
}

// Key is the canonical key of the file. It is the same as FileKey for the owner.
func (r Rename) Key() string {
	_, ext, _ := strings.Cut(path.Base(r.TempKey), ".")
	return path.Join(path.Dir(r.TempKey), fmt.Sprintf("%d.%s", r.OwnerID, ext))
}
