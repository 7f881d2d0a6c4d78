// Package transform computes derived nutrition metrics for a parsed batch.
package transform

import (
	"github.com/nutrilog/nutrilog/internal/parser"
)

// Energy per gram of macronutrient, in kcal.
const (
	KcalPerGramCarbs   = 4
	KcalPerGramFat     = 9
	KcalPerGramProtein = 4
)

// Options selects how absent inputs are handled.
type Options struct {
	// PropagateMissing leaves a derived value absent when any of its inputs is
	// absent. The default treats absent inputs as 0.
	PropagateMissing bool
}

// Derive returns a copy of b with derived metrics computed using default Options.
func Derive(b *parser.Batch) *parser.Batch {
	return DeriveWith(b, Options{})
}

// DeriveWith returns a copy of b with derived metrics. Gates are batch-level:
// macro calories are computed for every record when the batch carries the
// carbs, fat and protein columns, net calories when it carries calories and
// exercise_calories. b is not modified.
func DeriveWith(b *parser.Batch, opts Options) *parser.Batch {
	out := &parser.Batch{
		Records:  make([]parser.Record, len(b.Records)),
		Columns:  b.Columns.Clone(),
		Degraded: b.Degraded,
	}
	if out.Columns == nil {
		out.Columns = parser.NewColumnSet()
	}

	macros := b.Columns.Has(parser.ColCarbs, parser.ColFat, parser.ColProtein)
	net := b.Columns.Has(parser.ColCalories, parser.ColExerciseCalories)

	for i := range b.Records {
		rec := b.Records[i].Clone()
		if macros {
			rec.CarbsCalories = scale(rec.Carbs, KcalPerGramCarbs, opts)
			rec.FatCalories = scale(rec.Fat, KcalPerGramFat, opts)
			rec.ProteinCalories = scale(rec.Protein, KcalPerGramProtein, opts)
		}
		if net {
			rec.NetCalories = subtract(rec.Calories, rec.ExerciseCalories, opts)
		}
		out.Records[i] = rec
	}

	if macros {
		out.Columns.Add(parser.ColCarbsCalories, parser.ColFatCalories, parser.ColProteinCalories)
	}
	if net {
		out.Columns.Add(parser.ColNetCalories)
	}
	return out
}

func scale(v *float64, factor float64, opts Options) *float64 {
	if v == nil && opts.PropagateMissing {
		return nil
	}
	return parser.Float64(valueOrZero(v) * factor)
}

func subtract(a, b *float64, opts Options) *float64 {
	if (a == nil || b == nil) && opts.PropagateMissing {
		return nil
	}
	return parser.Float64(valueOrZero(a) - valueOrZero(b))
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
