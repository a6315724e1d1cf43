package dataset

import (
	"strconv"
	"strings"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
)

// ColumnStudentID identifies the student a row belongs to.
const ColumnStudentID = "user_id"

// Schema names the columns of the results sheet. Columns it does not name
// are carried as opaque fields.
type Schema struct {
	StudentID string
	Subjects  []domain.Subject
}

// DefaultSchema matches the published mock-test sheet.
var DefaultSchema = Schema{
	StudentID: ColumnStudentID,
	Subjects:  domain.Subjects,
}

func (s Schema) Chapters(subject domain.Subject) string {
	return string(subject) + " Chapters"
}

func (s Schema) Marks(subject domain.Subject) string {
	return "Marks in " + string(subject)
}

func (s Schema) Strength(subject domain.Subject) string {
	return "Strength in " + string(subject)
}

// ParseMarks parses a marks cell. Blank and NaN-like cells are missing.
func ParseMarks(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "", "nan", "na", "n/a":
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseStrength reports whether a strength cell says yes.
func ParseStrength(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "yes")
}
