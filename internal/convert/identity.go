package convert

import (
	"crypto/md5"
	"encoding/hex"
	"time"

	"ical2org/internal/model"
)

// hashLayout renders instants at minute granularity in the run timezone.
// Occurrences whose times differ only in seconds collide on purpose; the
// dedup behavior existing org files were produced with depends on it.
const hashLayout = "2006-01-02 15:04"

// OccurrenceID fingerprints an occurrence as md5 over the formatted start,
// formatted end and original component id. Identical (start, end, id)
// triples map to the same id no matter which variant produced them.
func OccurrenceID(occ model.Occurrence, ev *model.Event, loc *time.Location) string {
	s := occ.Start.In(loc).Format(hashLayout) +
		occ.End.In(loc).Format(hashLayout) +
		ev.Identity()
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Registry is the run-scoped set of already-emitted occurrence ids. It
// belongs to exactly one Convertor; independent runs never share one.
type Registry struct {
	seen map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{seen: make(map[string]struct{})}
}

// Add records id and reports whether it was new.
func (r *Registry) Add(id string) bool {
	if _, ok := r.seen[id]; ok {
		return false
	}
	r.seen[id] = struct{}{}
	return true
}

// Len reports how many distinct occurrences have been emitted.
func (r *Registry) Len() int {
	return len(r.seen)
}
