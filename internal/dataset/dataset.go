package dataset

import (
	"fmt"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
)

// Dataset is a parsed results sheet.
type Dataset struct {
	Header  []string
	Records []domain.Record
	Schema  Schema

	order []string
	index map[string][]int
}

// New builds a Dataset over records already in file order.
func New(header []string, records []domain.Record) *Dataset {
	d := &Dataset{
		Header:  header,
		Records: records,
		Schema:  DefaultSchema,
		index:   make(map[string][]int),
	}
	for i, r := range records {
		if _, seen := d.index[r.StudentID]; !seen {
			d.order = append(d.order, r.StudentID)
		}
		d.index[r.StudentID] = append(d.index[r.StudentID], i)
	}
	return d
}

// StudentIDs returns each student once, in order of first appearance.
func (d *Dataset) StudentIDs() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// ForStudent returns the rows of one student in file order.
func (d *Dataset) ForStudent(id string) ([]domain.Record, error) {
	idx, ok := d.index[id]
	if !ok {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeNotFound, domain.ErrStudentNotFound.Message, fmt.Errorf("student %q", id))
	}
	out := make([]domain.Record, len(idx))
	for i, j := range idx {
		out[i] = d.Records[j]
	}
	return out, nil
}

// ForStudents returns the rows of the requested students grouped by student
// in request order. Duplicate and unknown ids are dropped; found lists the
// ids that matched.
func (d *Dataset) ForStudents(ids []string) (records []domain.Record, found []string) {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		rows, err := d.ForStudent(id)
		if err != nil {
			continue
		}
		records = append(records, rows...)
		found = append(found, id)
	}
	return records, found
}

// Units splits records into the indivisible pieces the pipeline batches.
func Units(records []domain.Record, unit domain.ChunkUnit) [][]domain.Record {
	if len(records) == 0 {
		return nil
	}
	if unit == domain.ChunkUnitRow {
		units := make([][]domain.Record, len(records))
		for i := range records {
			units[i] = records[i : i+1 : i+1]
		}
		return units
	}

	var order []string
	byStudent := make(map[string][]domain.Record)
	for _, r := range records {
		if _, ok := byStudent[r.StudentID]; !ok {
			order = append(order, r.StudentID)
		}
		byStudent[r.StudentID] = append(byStudent[r.StudentID], r)
	}
	units := make([][]domain.Record, 0, len(order))
	for _, id := range order {
		units = append(units, byStudent[id])
	}
	return units
}
