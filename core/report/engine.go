// Package report is the aggregation engine: pure, stateless computations
// deriving rollups, rankings and achievement counters from flat student,
// test and mark snapshots. It performs no I/O and holds no state; callers
// fetch the records once and pass the same Snapshot into every computation
// of a request cycle.
package report

import (
	"math"
	"sort"

	"github.com/trezcool/shule/core/exam"
	"github.com/trezcool/shule/core/student"
)

// DefaultTopLimit bounds TopPerformers when the caller passes no limit.
const DefaultTopLimit = 10

type (
	// Snapshot is a read-only view of the record sets a computation runs on.
	// Marks referencing a student or test absent from the reference sets are
	// skipped: referential integrity is the record owner's concern, not ours.
	Snapshot struct {
		Students []student.Student
		Tests    []exam.Test
		Marks    []exam.Mark
	}

	// Rollup aggregates one student's marks within one test.
	Rollup struct {
		StudentID     string  `json:"student_id"`
		TestID        string  `json:"test_id"`
		TotalObtained int     `json:"total_obtained"`
		TotalMax      int     `json:"total_max"`
		Percentage    float64 `json:"percentage"`
	}

	// Topper is a student entry in a percentage-ranked list.
	Topper struct {
		Student    student.Student `json:"student"`
		TotalMarks int             `json:"total_marks"`
		Percentage float64         `json:"percentage"`
		Subject    string          `json:"subject,omitempty"`
	}

	// Achievements holds the three derived counters.
	Achievements struct {
		PerfectScores        int     `json:"perfect_scores"`
		ConsistentPerformers int     `json:"consistent_performers"`
		MostImprovedDelta    float64 `json:"most_improved_delta"`
	}
)

// Percentage is 100*obtained/max when max is positive, 0 otherwise. Defining
// the zero-max case as 0 rather than an error keeps ranking total-order-safe.
func Percentage(obtained, max int) float64 {
	if max > 0 {
		return 100 * float64(obtained) / float64(max)
	}
	return 0
}

// Grade maps a percentage to its display grade. Boundary values belong to the
// higher bucket.
func Grade(pct float64) string {
	switch {
	case pct >= 90:
		return "A+"
	case pct >= 80:
		return "A"
	case pct >= 70:
		return "B"
	case pct >= 60:
		return "C"
	default:
		return "F"
	}
}

// Rollups groups marks by (student, test) and totals them. Pairs appear in
// first-encounter order; a student with no marks for a test is simply absent.
func Rollups(marks []exam.Mark) []Rollup {
	type key struct{ studentID, testID string }

	index := make(map[key]int, len(marks))
	rollups := make([]Rollup, 0, len(marks))
	for _, mrk := range marks {
		k := key{mrk.StudentID, mrk.TestID}
		i, ok := index[k]
		if !ok {
			i = len(rollups)
			index[k] = i
			rollups = append(rollups, Rollup{StudentID: mrk.StudentID, TestID: mrk.TestID})
		}
		rollups[i].TotalObtained += mrk.MarksObtained
		rollups[i].TotalMax += mrk.MaxMarks
	}
	for i := range rollups {
		rollups[i].Percentage = Percentage(rollups[i].TotalObtained, rollups[i].TotalMax)
	}
	return rollups
}

// TestToppers ranks the students of one test by percentage, descending.
// The sort is stable: equal percentages keep their first-encounter order.
// Truncation (top-3 highlight, top-5 list) is the caller's business.
func (snap Snapshot) TestToppers(testID string) []Topper {
	students := snap.studentIndex()

	testMarks := make([]exam.Mark, 0, len(snap.Marks))
	for _, mrk := range snap.Marks {
		if mrk.TestID != testID {
			continue
		}
		if _, ok := students[mrk.StudentID]; !ok {
			continue // dangling reference
		}
		testMarks = append(testMarks, mrk)
	}

	toppers := make([]Topper, 0)
	for _, ru := range Rollups(testMarks) {
		toppers = append(toppers, Topper{
			Student:    students[ru.StudentID],
			TotalMarks: ru.TotalObtained,
			Percentage: ru.Percentage,
		})
	}
	sort.SliceStable(toppers, func(i, j int) bool {
		return toppers[i].Percentage > toppers[j].Percentage
	})
	roundPercentages(toppers)
	return toppers
}

// TopPerformers ranks students by their overall percentage across every mark
// they have, optionally restricted to one class, and returns the top `limit`
// entries. A student with marks in a single test is ranked on that test alone;
// there is no normalization for the number of tests taken.
func (snap Snapshot) TopPerformers(className string, limit int) []Topper {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	students := snap.studentIndex()
	tests := snap.testIndex()

	type total struct {
		studentID     string
		obtained, max int
	}
	index := make(map[string]int, len(students))
	totals := make([]total, 0, len(students))
	for _, mrk := range snap.Marks {
		std, ok := students[mrk.StudentID]
		if !ok {
			continue
		}
		if _, ok := tests[mrk.TestID]; !ok {
			continue
		}
		if className != "" && std.ClassName != className {
			continue
		}
		i, ok := index[mrk.StudentID]
		if !ok {
			i = len(totals)
			index[mrk.StudentID] = i
			totals = append(totals, total{studentID: mrk.StudentID})
		}
		totals[i].obtained += mrk.MarksObtained
		totals[i].max += mrk.MaxMarks
	}

	performers := make([]Topper, 0, len(totals))
	for _, tot := range totals {
		performers = append(performers, Topper{
			Student:    students[tot.studentID],
			TotalMarks: tot.obtained,
			Percentage: Percentage(tot.obtained, tot.max),
		})
	}
	sort.SliceStable(performers, func(i, j int) bool {
		if performers[i].Percentage != performers[j].Percentage {
			return performers[i].Percentage > performers[j].Percentage
		}
		return performers[i].TotalMarks > performers[j].TotalMarks
	})
	if len(performers) > limit {
		performers = performers[:limit]
	}
	roundPercentages(performers)
	return performers
}

// Achievements derives the perfect-score, consistent-performer and
// most-improved counters from the snapshot.
func (snap Snapshot) Achievements() Achievements {
	marks := snap.validMarks()

	return Achievements{
		PerfectScores:        perfectScores(marks),
		ConsistentPerformers: consistentPerformers(marks),
		MostImprovedDelta:    snap.mostImprovedDelta(marks),
	}
}

// perfectScores counts distinct students having at least one full-score mark.
func perfectScores(marks []exam.Mark) int {
	seen := make(map[string]struct{})
	for _, mrk := range marks {
		if mrk.MaxMarks > 0 && mrk.MarksObtained == mrk.MaxMarks {
			seen[mrk.StudentID] = struct{}{}
		}
	}
	return len(seen)
}

// consistentPerformers counts distinct students whose aggregate percentage
// across all their marks is >= 80 and who have at least 3 mark rows.
// Rows are subject x test combinations, not distinct tests.
func consistentPerformers(marks []exam.Mark) int {
	type total struct{ obtained, max, rows int }

	totals := make(map[string]*total)
	for _, mrk := range marks {
		tot, ok := totals[mrk.StudentID]
		if !ok {
			tot = &total{}
			totals[mrk.StudentID] = tot
		}
		tot.obtained += mrk.MarksObtained
		tot.max += mrk.MaxMarks
		tot.rows++
	}

	var count int
	for _, tot := range totals {
		if tot.rows >= 3 && Percentage(tot.obtained, tot.max) >= 80 {
			count++
		}
	}
	return count
}

// mostImprovedDelta is the largest percentage gain between the two most
// recent tests, across students present in both. It is never negative and is
// 0 when fewer than 2 tests exist.
func (snap Snapshot) mostImprovedDelta(marks []exam.Mark) float64 {
	if len(snap.Tests) < 2 {
		return 0
	}

	byDate := make([]exam.Test, len(snap.Tests))
	copy(byDate, snap.Tests)
	sort.SliceStable(byDate, func(i, j int) bool {
		return byDate[i].Date.After(byDate[j].Date.Time)
	})
	latest, previous := byDate[0].ID, byDate[1].ID

	latestPct := rollupPercentages(marks, latest)
	previousPct := rollupPercentages(marks, previous)

	var best float64
	for studentID, lp := range latestPct {
		pp, ok := previousPct[studentID]
		if !ok {
			continue // must be present in both tests
		}
		if delta := lp - pp; delta > best {
			best = delta
		}
	}
	return round2(best)
}

// rollupPercentages maps student id to their rollup percentage within one test.
func rollupPercentages(marks []exam.Mark, testID string) map[string]float64 {
	pcts := make(map[string]float64)
	for _, ru := range Rollups(marksOfTest(marks, testID)) {
		pcts[ru.StudentID] = ru.Percentage
	}
	return pcts
}

func marksOfTest(marks []exam.Mark, testID string) []exam.Mark {
	out := make([]exam.Mark, 0, len(marks))
	for _, mrk := range marks {
		if mrk.TestID == testID {
			out = append(out, mrk)
		}
	}
	return out
}

// validMarks drops marks whose student or test is missing from the snapshot.
func (snap Snapshot) validMarks() []exam.Mark {
	students := snap.studentIndex()
	tests := snap.testIndex()

	marks := make([]exam.Mark, 0, len(snap.Marks))
	for _, mrk := range snap.Marks {
		if _, ok := students[mrk.StudentID]; !ok {
			continue
		}
		if _, ok := tests[mrk.TestID]; !ok {
			continue
		}
		marks = append(marks, mrk)
	}
	return marks
}

func (snap Snapshot) studentIndex() map[string]student.Student {
	index := make(map[string]student.Student, len(snap.Students))
	for _, std := range snap.Students {
		index[std.ID] = std
	}
	return index
}

func (snap Snapshot) testIndex() map[string]exam.Test {
	index := make(map[string]exam.Test, len(snap.Tests))
	for _, tst := range snap.Tests {
		index[tst.ID] = tst
	}
	return index
}

// roundPercentages rounds displayed percentages to 2 decimals, after sorting,
// so that ranking compares unrounded values.
func roundPercentages(toppers []Topper) {
	for i := range toppers {
		toppers[i].Percentage = round2(toppers[i].Percentage)
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
