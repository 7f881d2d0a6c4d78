package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nutrilog/nutrilog/internal/errors"
)

// Nutrient indexes the six extracted nutrition values.
type Nutrient int

const (
	Calories Nutrient = iota
	Carbs
	Fat
	Protein
	Sodium
	Sugar
	nutrientCount
)

var nutrientNames = [nutrientCount]string{"Calories", "Carbs", "Fat", "Protein", "Sodium", "Sugar"}

var nutrientColumns = [nutrientCount]Column{ColCalories, ColCarbs, ColFat, ColProtein, ColSodium, ColSugar}

func (n Nutrient) String() string { return nutrientNames[n] }

// Column returns the record column holding n.
func (n Nutrient) Column() Column { return nutrientColumns[n] }

// Nutrients holds one value per Nutrient; nil means not found.
type Nutrients [nutrientCount]*float64

// Attempt is the outcome of one strategy for one nutrient. Matched with a
// nil Value means the text was found but held no usable number.
type Attempt struct {
	Matched bool
	Value   *float64
}

// Attempts holds one Attempt per Nutrient.
type Attempts [nutrientCount]Attempt

// Strategy is one link of the extraction fallback chain.
type Strategy interface {
	Name() string
	// Applies reports whether the strategy runs given what earlier strategies found.
	Applies(found *Nutrients) bool
	Extract(blob string) (Attempts, error)
}

// errNotStructured marks a blob the structured strategy cannot decode. The
// chain ignores it and keeps earlier results.
var errNotStructured = errors.NewStd("blob is not structured nutrition data")

// Chain runs strategies in order, letting later matches overwrite earlier ones.
type Chain []Strategy

// DefaultChain is pattern matching first, then the structured decoder when
// neither calories nor carbs were found.
func DefaultChain() Chain {
	return Chain{patternStrategy{}, structuredStrategy{}}
}

// Run extracts nutrients from blob. A non-nil error means the row must be
// degraded to all-absent values.
func (c Chain) Run(blob string) (Nutrients, error) {
	var found Nutrients
	for _, s := range c {
		if !s.Applies(&found) {
			continue
		}
		attempts, err := s.Extract(blob)
		if err != nil {
			if errors.Is(err, errNotStructured) {
				continue
			}
			return Nutrients{}, errors.New(err).
				Component("parser").
				Category(errors.CategoryFileParsing).
				Context("strategy", s.Name()).
				Build()
		}
		for i, a := range attempts {
			if a.Matched {
				found[i] = a.Value
			}
		}
	}
	return found, nil
}

// patternStrategy finds values with three textual shapes, tried in order:
//
//	"name": "Calories", "value": "650"
//	"name":"Calories","value":650
//	"Calories": 650
type patternStrategy struct{}

var nutrientPatterns = compileNutrientPatterns()

func compileNutrientPatterns() [nutrientCount][]*regexp.Regexp {
	var out [nutrientCount][]*regexp.Regexp
	for n := range nutrientCount {
		name := regexp.QuoteMeta(n.String())
		out[n] = []*regexp.Regexp{
			regexp.MustCompile(`(?i)"name"\s*:\s*"` + name + `"\s*,\s*"value"\s*:\s*"([^"]*)"`),
			regexp.MustCompile(`(?i)"name"\s*:\s*"` + name + `"\s*,\s*"value"\s*:\s*([0-9.]+)`),
			regexp.MustCompile(`(?i)"` + name + `"\s*:\s*([0-9.]+)`),
		}
	}
	return out
}

func (patternStrategy) Name() string { return "pattern" }

func (patternStrategy) Applies(*Nutrients) bool { return true }

func (patternStrategy) Extract(blob string) (Attempts, error) {
	var out Attempts
	for n := range nutrientCount {
		for _, re := range nutrientPatterns[n] {
			m := re.FindStringSubmatch(blob)
			if m == nil {
				continue
			}
			out[n] = Attempt{Matched: true, Value: parseLooseNumber(m[1])}
			break
		}
	}
	return out, nil
}

var nonNumeric = regexp.MustCompile(`[^\d.]`)

// parseLooseNumber parses s as a float, retrying with everything except
// digits and dots removed. Unusable input yields nil.
func parseLooseNumber(s string) *float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return &v
	}
	cleaned := nonNumeric.ReplaceAllString(s, "")
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}
