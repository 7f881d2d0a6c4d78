package parser

import (
	"maps"
	"slices"
	"time"
)

// Column names a field of the record set. Values match the persisted column names.
type Column string

const (
	ColUserID           Column = "user_id"
	ColDate             Column = "date"
	ColCalories         Column = "calories"
	ColCarbs            Column = "carbs"
	ColFat              Column = "fat"
	ColProtein          Column = "protein"
	ColSodium           Column = "sodium"
	ColSugar            Column = "sugar"
	ColExerciseCalories Column = "exercise_calories"
	ColSteps            Column = "steps"
	ColCarbsCalories    Column = "carbs_calories"
	ColFatCalories      Column = "fat_calories"
	ColProteinCalories  Column = "protein_calories"
	ColNetCalories      Column = "net_calories"
)

// ExtractedColumns is the column set every parsed batch carries.
var ExtractedColumns = []Column{
	ColUserID, ColDate, ColCalories, ColCarbs, ColFat, ColProtein, ColSodium, ColSugar,
}

// ColumnSet records which columns exist in a batch, independent of whether
// any individual record has a value for them.
type ColumnSet map[Column]struct{}

// NewColumnSet returns a set holding cols.
func NewColumnSet(cols ...Column) ColumnSet {
	cs := make(ColumnSet, len(cols))
	cs.Add(cols...)
	return cs
}

// Add inserts cols into the set.
func (cs ColumnSet) Add(cols ...Column) {
	for _, c := range cols {
		cs[c] = struct{}{}
	}
}

// Has reports whether every one of cols is present.
func (cs ColumnSet) Has(cols ...Column) bool {
	for _, c := range cols {
		if _, ok := cs[c]; !ok {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (cs ColumnSet) Clone() ColumnSet {
	return maps.Clone(cs)
}

// Sorted returns the column names in lexical order.
func (cs ColumnSet) Sorted() []Column {
	return slices.Sorted(maps.Keys(cs))
}

// Record is one user's nutrition for one calendar day. Nil pointers mean the
// value is absent; absent values are never replaced with guesses.
type Record struct {
	UserID int64
	Date   time.Time // midnight UTC

	Calories *float64
	Carbs    *float64
	Fat      *float64
	Protein  *float64
	Sodium   *float64
	Sugar    *float64

	ExerciseCalories *float64
	Steps            *int64

	CarbsCalories   *float64
	FatCalories     *float64
	ProteinCalories *float64
	NetCalories     *float64
}

// Clone returns a copy whose pointer fields do not alias r's.
func (r *Record) Clone() Record {
	return Record{
		UserID:           r.UserID,
		Date:             r.Date,
		Calories:         clonePtr(r.Calories),
		Carbs:            clonePtr(r.Carbs),
		Fat:              clonePtr(r.Fat),
		Protein:          clonePtr(r.Protein),
		Sodium:           clonePtr(r.Sodium),
		Sugar:            clonePtr(r.Sugar),
		ExerciseCalories: clonePtr(r.ExerciseCalories),
		Steps:            clonePtr(r.Steps),
		CarbsCalories:    clonePtr(r.CarbsCalories),
		FatCalories:      clonePtr(r.FatCalories),
		ProteinCalories:  clonePtr(r.ProteinCalories),
		NetCalories:      clonePtr(r.NetCalories),
	}
}

func (r *Record) setNutrients(n Nutrients) {
	r.Calories = n[Calories]
	r.Carbs = n[Carbs]
	r.Fat = n[Fat]
	r.Protein = n[Protein]
	r.Sodium = n[Sodium]
	r.Sugar = n[Sugar]
}

// Batch is the output of one extraction: records in input row order plus
// the columns the record set carries.
type Batch struct {
	Records []Record
	Columns ColumnSet
	// Degraded counts rows whose nutrients were dropped after an extraction failure
	Degraded int
}

// UserIDs returns the distinct user identifiers in first-seen order.
func (b *Batch) UserIDs() []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for i := range b.Records {
		id := b.Records[i].UserID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
