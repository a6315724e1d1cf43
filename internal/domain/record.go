package domain

import "fmt"

// Subject is one of the JEE sections present in the results dataset.
type Subject string

const (
	SubjectPhysics     Subject = "Physics"
	SubjectChemistry   Subject = "Chemistry"
	SubjectMathematics Subject = "Mathematics"
)

// Subjects lists the sections in report order.
var Subjects = []Subject{SubjectPhysics, SubjectChemistry, SubjectMathematics}

// MaxMarksPerQuestion is the score awarded for a fully correct answer.
const MaxMarksPerQuestion = 4.0

// Field is a single named cell of a result row.
type Field struct {
	Name  string
	Value string
}

// Record is one row of the results dataset. Fields keep the header order of
// the source file so serialization stays deterministic.
type Record struct {
	StudentID string
	Row       int // 1-based data row in the source file
	Fields    []Field
}

// Value returns the value of the named field.
func (r Record) Value(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Names returns the field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}

// ChunkUnit selects what a single splittable unit is when batching records.
type ChunkUnit string

const (
	// ChunkUnitStudent keeps every row of a student together.
	ChunkUnitStudent ChunkUnit = "student"
	// ChunkUnitRow treats each question row independently.
	ChunkUnitRow ChunkUnit = "row"
)

// ParseChunkUnit validates a chunk unit name.
func ParseChunkUnit(s string) (ChunkUnit, error) {
	switch ChunkUnit(s) {
	case ChunkUnitStudent, ChunkUnitRow:
		return ChunkUnit(s), nil
	case "":
		return ChunkUnitStudent, nil
	}
	return "", NewDomainErrorWithCause(ErrCodeValidation, ErrInvalidChunkUnit.Message, fmt.Errorf("unknown value %q", s))
}
