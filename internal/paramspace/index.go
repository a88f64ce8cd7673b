package paramspace

import (
	"errors"
	"fmt"

	"github.com/banshee-data/sweepview/internal/monitoring"
	"github.com/banshee-data/sweepview/internal/record"
)

// ErrNotIndexed is returned by Lookup for coordinates with no recorded series.
var ErrNotIndexed = errors.New("no data found for key")

// Index maps full coordinates to time series and coordinate prefixes to the
// time axis of the record they came from.
type Index struct {
	series   map[string][]float64
	times    map[string][]float64
	prefixes []Coord
	// owned lists the series keys inserted under each prefix key.
	owned map[string][]string
}

func newIndex() *Index {
	return &Index{
		series: make(map[string][]float64),
		times:  make(map[string][]float64),
		owned:  make(map[string][]string),
	}
}

// Build scans records into a Space and an Index. Any inconsistency between
// records is fatal: nothing is returned and the caller must not plot from a
// partial batch.
func Build(records []*record.Record) (*Space, *Index, error) {
	if len(records) == 0 {
		return nil, nil, ErrEmptyBatch
	}

	b := NewBuilder(records[0])
	ix := newIndex()
	for _, rec := range records {
		prefix, err := b.Add(rec)
		if err != nil {
			return nil, nil, err
		}
		if err := ix.insert(prefix, rec); err != nil {
			return nil, nil, err
		}
	}

	space := b.Space()
	monitoring.Logf("indexed %d records: %d axes, %d series", len(records), len(space.Axes), ix.Len())
	return space, ix, nil
}

// insert adds every (quantity, measuring point, dimension) series of rec.
// Extents come from each array's shape, so a record may carry fewer
// measuring points or dimensions than it has labels, but never more.
// A record repeating an earlier prefix replaces that record entirely: its
// time axis and every series stored under the prefix.
func (ix *Index) insert(prefix Coord, rec *record.Record) error {
	for _, q := range rec.OutputValues {
		steps, points, dims := q.Values.Shape[0], q.Values.Shape[1], q.Values.Shape[2]
		if steps != len(rec.Time) {
			return fmt.Errorf("%w: %s quantity %q has %d time steps, time axis has %d",
				ErrMalformedRecord, rec, q.Name, steps, len(rec.Time))
		}
		if points > len(rec.MsPoints) {
			return fmt.Errorf("%w: %s quantity %q has %d measuring points, %d labels",
				ErrShapeOutOfRange, rec, q.Name, points, len(rec.MsPoints))
		}
		if dims > len(rec.Dimensions) {
			return fmt.Errorf("%w: %s quantity %q has %d dimensions, %d labels",
				ErrShapeOutOfRange, rec, q.Name, dims, len(rec.Dimensions))
		}
	}

	key := prefix.Key()
	if _, dup := ix.times[key]; dup {
		monitoring.Logf("duplicate parameter combination %v in %s replaces an earlier record", prefix, rec)
		for _, k := range ix.owned[key] {
			delete(ix.series, k)
		}
	} else {
		ix.prefixes = append(ix.prefixes, append(Coord(nil), prefix...))
	}

	var keys []string
	for _, q := range rec.OutputValues {
		for m := 0; m < q.Values.Shape[1]; m++ {
			for d := 0; d < q.Values.Shape[2]; d++ {
				k := prefix.With(q.Name, rec.MsPoints[m], rec.Dimensions[d]).Key()
				ix.series[k] = q.Values.Series(m, d)
				keys = append(keys, k)
			}
		}
	}
	ix.owned[key] = keys
	ix.times[key] = rec.Time
	return nil
}

// Series returns the time series stored under a full coordinate.
func (ix *Index) Series(c Coord) ([]float64, bool) {
	v, ok := ix.series[c.Key()]
	return v, ok
}

// Time returns the time axis stored under an input-parameter prefix.
func (ix *Index) Time(prefix Coord) ([]float64, bool) {
	v, ok := ix.times[prefix.Key()]
	return v, ok
}

// Lookup returns the time axis and values for a full coordinate.
func (ix *Index) Lookup(c Coord) (time, values []float64, err error) {
	values, ok := ix.Series(c)
	if !ok {
		return nil, nil, fmt.Errorf("%w %v", ErrNotIndexed, c)
	}
	time, ok = ix.Time(c.Prefix())
	if !ok {
		return nil, nil, fmt.Errorf("%w %v (no time axis)", ErrNotIndexed, c)
	}
	return time, values, nil
}

// Len is the number of indexed time series.
func (ix *Index) Len() int {
	return len(ix.series)
}

// Prefixes returns the distinct input-parameter prefixes in record order.
func (ix *Index) Prefixes() []Coord {
	out := make([]Coord, len(ix.prefixes))
	copy(out, ix.prefixes)
	return out
}
