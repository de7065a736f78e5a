// Package store holds AIS observations in memory and answers indexed lookups.
//
// A Store is built once by Load and is read-only afterwards, so any number of
// goroutines may query it without locking.
package store

import (
	"sort"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/ppiankov/vesselinfo/internal/model"
)

// Store is the loaded, deduplicated set of observations.
type Store struct {
	records []model.VesselRecord // load order
	byMMSI  map[int64][]uint32   // record indices, ascending by timestamp
	order   []int64              // MMSIs in first-seen order
	names   map[int64][]string   // distinct lower-cased names per vessel

	vesselTypes map[int]*roaring.Bitmap
	cargo       map[int]*roaring.Bitmap
	statuses    map[model.NavStatus]*roaring.Bitmap
	classes     map[string]*roaring.Bitmap

	stats Stats
}

// Stats summarizes a loaded store.
type Stats struct {
	Records           int           `json:"records" yaml:"records"`
	Vessels           int           `json:"vessels" yaml:"vessels"`
	Duplicates        int           `json:"duplicates" yaml:"duplicates"`
	MalformedOptional int           `json:"malformedOptional" yaml:"malformed_optional"`
	Earliest          time.Time     `json:"earliest" yaml:"earliest"`
	Latest            time.Time     `json:"latest" yaml:"latest"`
	Sources           []SourceStats `json:"sources" yaml:"sources"`
}

// SourceStats counts the rows read from one source.
type SourceStats struct {
	Name string `json:"name" yaml:"name"`
	Rows int    `json:"rows" yaml:"rows"`
}

// Filter narrows Scan to records carrying one of the listed codes per field.
// Empty fields do not filter.
type Filter struct {
	VesselTypes        []int
	Cargo              []int
	Statuses           []model.NavStatus
	TransceiverClasses []string
}

func (f Filter) empty() bool {
	return len(f.VesselTypes) == 0 && len(f.Cargo) == 0 && len(f.Statuses) == 0 && len(f.TransceiverClasses) == 0
}

type obsKey struct {
	mmsi int64
	ts   int64
}

// New builds a store from records in the given order. Records sharing an
// MMSI and timestamp are collapsed to the first one seen.
func New(records []model.VesselRecord) *Store {
	s := &Store{
		records:     make([]model.VesselRecord, 0, len(records)),
		byMMSI:      make(map[int64][]uint32),
		names:       make(map[int64][]string),
		vesselTypes: make(map[int]*roaring.Bitmap),
		cargo:       make(map[int]*roaring.Bitmap),
		statuses:    make(map[model.NavStatus]*roaring.Bitmap),
		classes:     make(map[string]*roaring.Bitmap),
	}

	seen := make(map[obsKey]struct{}, len(records))
	for _, rec := range records {
		key := obsKey{mmsi: rec.MMSI, ts: rec.Timestamp.UnixNano()}
		if _, dup := seen[key]; dup {
			s.stats.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		s.add(rec)
	}

	for _, idx := range s.byMMSI {
		sort.SliceStable(idx, func(i, j int) bool {
			return s.records[idx[i]].Timestamp.Before(s.records[idx[j]].Timestamp)
		})
	}

	optimize(s.vesselTypes)
	optimize(s.cargo)
	optimize(s.statuses)
	optimize(s.classes)

	s.stats.Records = len(s.records)
	s.stats.Vessels = len(s.order)
	return s
}

func (s *Store) add(rec model.VesselRecord) {
	i := uint32(len(s.records))
	s.records = append(s.records, rec)

	if _, ok := s.byMMSI[rec.MMSI]; !ok {
		s.order = append(s.order, rec.MMSI)
	}
	s.byMMSI[rec.MMSI] = append(s.byMMSI[rec.MMSI], i)

	if name := strings.ToLower(strings.TrimSpace(rec.Name())); name != "" {
		known := s.names[rec.MMSI]
		found := false
		for _, n := range known {
			if n == name {
				found = true
				break
			}
		}
		if !found {
			s.names[rec.MMSI] = append(known, name)
		}
	}

	bitmapFor(s.vesselTypes, rec.Classification.VesselType).Add(i)
	bitmapFor(s.cargo, rec.Classification.Cargo).Add(i)
	bitmapFor(s.statuses, rec.Status).Add(i)
	bitmapFor(s.classes, rec.Classification.TransceiverClass).Add(i)

	if s.stats.Earliest.IsZero() || rec.Timestamp.Before(s.stats.Earliest) {
		s.stats.Earliest = rec.Timestamp
	}
	if rec.Timestamp.After(s.stats.Latest) {
		s.stats.Latest = rec.Timestamp
	}
}

func bitmapFor[K comparable](m map[K]*roaring.Bitmap, key K) *roaring.Bitmap {
	bm, ok := m[key]
	if !ok {
		bm = roaring.New()
		m[key] = bm
	}
	return bm
}

func optimize[K comparable](m map[K]*roaring.Bitmap) {
	for _, bm := range m {
		bm.RunOptimize()
	}
}

// Len returns the number of stored observations.
func (s *Store) Len() int { return len(s.records) }

// Vessels returns the number of distinct MMSIs.
func (s *Store) Vessels() int { return len(s.order) }

// Stats returns load statistics.
func (s *Store) Stats() Stats {
	st := s.stats
	st.Sources = append([]SourceStats(nil), s.stats.Sources...)
	return st
}

// FindByMMSI returns every observation of mmsi in ascending timestamp order,
// or nil when the vessel is unknown.
func (s *Store) FindByMMSI(mmsi int64) []model.VesselRecord {
	idx, ok := s.byMMSI[mmsi]
	if !ok {
		return nil
	}
	out := make([]model.VesselRecord, len(idx))
	for i, j := range idx {
		out[i] = s.records[j]
	}
	return out
}

// Identities returns the distinct identities mmsi has reported, most recent
// first.
func (s *Store) Identities(mmsi int64) []model.Identity {
	idx := s.byMMSI[mmsi]
	var out []model.Identity
	for i := len(idx) - 1; i >= 0; i-- {
		id := s.records[idx[i]].Identity
		if id == nil {
			continue
		}
		known := false
		for _, k := range out {
			if k == *id {
				known = true
				break
			}
		}
		if !known {
			out = append(out, *id)
		}
	}
	return out
}

// FindByArea returns observations inside bbox (nil means anywhere) and
// within tr, in load order. It is a linear scan; a spatial index would be
// needed for extracts much larger than a few days of national coverage.
func (s *Store) FindByArea(bbox *model.BBox, tr model.TimeRange) []model.VesselRecord {
	var out []model.VesselRecord
	for i := range s.records {
		rec := &s.records[i]
		if bbox != nil && !bbox.Contains(rec.Position) {
			continue
		}
		if !tr.Contains(rec.Timestamp) {
			continue
		}
		out = append(out, *rec)
	}
	return out
}

// FindByName returns the latest observation of every vessel that has ever
// reported a name containing fragment (case-insensitive), in first-seen
// order. When the latest observation carries no identity, the most recent
// reported identity is attached to the returned copy.
func (s *Store) FindByName(fragment string) []model.VesselRecord {
	needle := strings.ToLower(strings.TrimSpace(fragment))
	if needle == "" {
		return nil
	}

	var out []model.VesselRecord
	for _, mmsi := range s.order {
		matched := false
		for _, name := range s.names[mmsi] {
			if strings.Contains(name, needle) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		out = append(out, s.latestWithIdentity(mmsi))
	}
	return out
}

func (s *Store) latestWithIdentity(mmsi int64) model.VesselRecord {
	idx := s.byMMSI[mmsi]
	latest := s.records[idx[len(idx)-1]]
	if latest.Identity != nil {
		return latest
	}
	for i := len(idx) - 2; i >= 0; i-- {
		if id := s.records[idx[i]].Identity; id != nil {
			identity := *id
			latest.Identity = &identity
			break
		}
	}
	return latest
}

// Scan calls fn for each record matching f in load order until fn returns
// false. Categorical filters are answered from bitmap indexes.
func (s *Store) Scan(f Filter, fn func(model.VesselRecord) bool) {
	if f.empty() {
		for i := range s.records {
			if !fn(s.records[i]) {
				return
			}
		}
		return
	}

	candidates := s.candidates(f)
	it := candidates.Iterator()
	for it.HasNext() {
		if !fn(s.records[it.Next()]) {
			return
		}
	}
}

func (s *Store) candidates(f Filter) *roaring.Bitmap {
	var sets []*roaring.Bitmap
	if len(f.VesselTypes) > 0 {
		sets = append(sets, union(s.vesselTypes, f.VesselTypes))
	}
	if len(f.Cargo) > 0 {
		sets = append(sets, union(s.cargo, f.Cargo))
	}
	if len(f.Statuses) > 0 {
		sets = append(sets, union(s.statuses, f.Statuses))
	}
	if len(f.TransceiverClasses) > 0 {
		sets = append(sets, union(s.classes, f.TransceiverClasses))
	}
	return roaring.FastAnd(sets...)
}

func union[K comparable](m map[K]*roaring.Bitmap, keys []K) *roaring.Bitmap {
	var sets []*roaring.Bitmap
	for _, k := range keys {
		if bm, ok := m[k]; ok {
			sets = append(sets, bm)
		}
	}
	if len(sets) == 0 {
		return roaring.New()
	}
	return roaring.FastOr(sets...)
}

// Count returns how many records match f without materializing them.
func (s *Store) Count(f Filter) int {
	if f.empty() {
		return len(s.records)
	}
	return int(s.candidates(f).GetCardinality())
}

// StatusCounts returns the number of records per navigational status present
// in the store.
func (s *Store) StatusCounts() map[model.NavStatus]int {
	out := make(map[model.NavStatus]int, len(s.statuses))
	for status := range s.statuses {
		out[status] = s.Count(Filter{Statuses: []model.NavStatus{status}})
	}
	return out
}
