// Package catalog scans TensorBoard log trees and holds the resulting runs
// as an ordered, index-addressable snapshot.
package catalog

import (
	"sort"
	"time"
)

// Record describes one run directory at scan time.
type Record struct {
	Path       string
	Dataset    string
	RunName    string
	SizeBytes  int64
	EventCount int
	ModifiedAt time.Time
}

// DisplayName returns "dataset/run".
func (r Record) DisplayName() string {
	return r.Dataset + "/" + r.RunName
}

// Catalog is an immutable snapshot of runs ordered oldest first.
// A record's position is its selection index for the life of the catalog.
type Catalog struct {
	records []Record
}

// New copies records and sorts them ascending by ModifiedAt.
// Ties are broken by path so the order never depends on traversal order.
func New(records []Record) *Catalog {
	sorted := make([]Record, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].ModifiedAt.Equal(sorted[j].ModifiedAt) {
			return sorted[i].ModifiedAt.Before(sorted[j].ModifiedAt)
		}
		return sorted[i].Path < sorted[j].Path
	})

	return &Catalog{records: sorted}
}

// Len returns the number of runs.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// At returns the record at index i. It panics when i is out of range.
func (c *Catalog) At(i int) Record {
	return c.records[i]
}

// Records returns a copy of all records in catalog order.
func (c *Catalog) Records() []Record {
	if c == nil {
		return nil
	}
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Select returns the records at the given indices, in the order given.
// Indices outside the catalog are ignored.
func (c *Catalog) Select(indices []int) []Record {
	out := make([]Record, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < c.Len() {
			out = append(out, c.records[i])
		}
	}
	return out
}

// OlderThan returns the indices of runs last modified strictly before cutoff.
func (c *Catalog) OlderThan(cutoff time.Time) []int {
	var indices []int
	for i := 0; i < c.Len(); i++ {
		if c.records[i].ModifiedAt.Before(cutoff) {
			indices = append(indices, i)
		}
	}
	return indices
}

// TotalBytes sums SizeBytes over all runs.
func (c *Catalog) TotalBytes() int64 {
	if c == nil {
		return 0
	}
	return SumBytes(c.records)
}

// SumBytes sums SizeBytes over records.
func SumBytes(records []Record) int64 {
	var total int64
	for _, r := range records {
		total += r.SizeBytes
	}
	return total
}
