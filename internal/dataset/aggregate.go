package dataset

import (
	"strings"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
)

// Tally accumulates marks for a subject or chapter.
type Tally struct {
	Total       float64 `json:"total"`
	Answered    int     `json:"answered"`
	Missing     int     `json:"missing"`
	MaxPossible float64 `json:"max_possible"`
	Percentage  float64 `json:"percentage"`
	Average     float64 `json:"average"`
}

func (t *Tally) add(marks float64, ok bool) {
	if !ok {
		t.Missing++
		return
	}
	t.Total += marks
	t.Answered++
}

func (t *Tally) finish() {
	t.MaxPossible = float64(t.Answered) * domain.MaxMarksPerQuestion
	if t.Answered > 0 {
		t.Average = t.Total / float64(t.Answered)
	}
	if t.MaxPossible > 0 {
		t.Percentage = t.Total / t.MaxPossible * 100
	}
}

// SubjectScore aggregates one subject.
type SubjectScore struct {
	Subject domain.Subject `json:"subject"`
	Tally
	Strong int `json:"strong"`
}

// ChapterScore aggregates one chapter of a subject.
type ChapterScore struct {
	Subject domain.Subject `json:"subject"`
	Chapter string         `json:"chapter"`
	Tally
}

// ScoreReport is the aggregate over a set of rows.
type ScoreReport struct {
	Students int            `json:"students"`
	Rows     int            `json:"rows"`
	Subjects []SubjectScore `json:"subjects"`
	Chapters []ChapterScore `json:"chapters"`
}

// Aggregate computes subject and chapter scores. Subjects whose marks column
// is absent are skipped. Chapters are ordered by subject, then by first
// appearance.
func (s Schema) Aggregate(records []domain.Record) ScoreReport {
	report := ScoreReport{Rows: len(records)}

	students := make(map[string]bool)
	for _, r := range records {
		students[r.StudentID] = true
	}
	report.Students = len(students)

	for _, subject := range s.Subjects {
		score := SubjectScore{Subject: subject}
		var chapters []*ChapterScore
		byName := make(map[string]*ChapterScore)
		present := false

		for _, r := range records {
			raw, ok := r.Value(s.Marks(subject))
			if !ok {
				continue
			}
			present = true
			marks, answered := ParseMarks(raw)
			score.add(marks, answered)

			if v, ok := r.Value(s.Strength(subject)); ok && ParseStrength(v) {
				score.Strong++
			}

			name, _ := r.Value(s.Chapters(subject))
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			ch, ok := byName[name]
			if !ok {
				ch = &ChapterScore{Subject: subject, Chapter: name}
				byName[name] = ch
				chapters = append(chapters, ch)
			}
			ch.add(marks, answered)
		}

		if !present {
			continue
		}
		score.finish()
		report.Subjects = append(report.Subjects, score)
		for _, ch := range chapters {
			ch.finish()
			report.Chapters = append(report.Chapters, *ch)
		}
	}

	return report
}

// Aggregate uses DefaultSchema.
func Aggregate(records []domain.Record) ScoreReport {
	return DefaultSchema.Aggregate(records)
}
