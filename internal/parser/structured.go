package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/antonholmquist/jason"
)

// structuredStrategy decodes a meal document:
//
//	{"meal": ..., "dishes": [{"nutrition": [{"name": "Total Calories", "value": 650}]}]}
//
// It only runs when the pattern strategy found neither calories nor carbs.
// Names match by case-insensitive containment, tested in nutrient order, and
// the last matching entry wins. Falsy values (null, 0, "", false) count as 0.
type structuredStrategy struct{}

func (structuredStrategy) Name() string { return "structured" }

func (structuredStrategy) Applies(found *Nutrients) bool {
	return found[Calories] == nil && found[Carbs] == nil
}

func (structuredStrategy) Extract(blob string) (Attempts, error) {
	var out Attempts

	// jason stops after the first value, so trailing data is checked here
	if !json.Valid([]byte(blob)) {
		return out, errNotStructured
	}
	doc, err := jason.NewValueFromBytes([]byte(blob))
	if err != nil {
		return out, errNotStructured
	}
	root, err := doc.Object()
	if err != nil {
		// valid JSON but not an object
		return out, nil
	}
	if _, hasMeal := root.Map()["meal"]; !hasMeal {
		return out, nil
	}

	dishesValue, err := root.GetValue("dishes")
	if err != nil {
		return out, nil
	}
	dishes, err := dishesValue.Array()
	if err != nil {
		return out, fmt.Errorf("dishes is not a list: %w", err)
	}

	for i, dishValue := range dishes {
		dish, err := dishValue.Object()
		if err != nil {
			return out, fmt.Errorf("dish %d is not an object: %w", i, err)
		}
		nutritionValue, err := dish.GetValue("nutrition")
		if err != nil {
			continue
		}
		items, err := nutritionValue.Array()
		if err != nil {
			return out, fmt.Errorf("dish %d nutrition is not a list: %w", i, err)
		}
		for j, itemValue := range items {
			if err := applyNutritionItem(&out, itemValue); err != nil {
				return out, fmt.Errorf("dish %d item %d: %w", i, j, err)
			}
		}
	}
	return out, nil
}

func applyNutritionItem(out *Attempts, itemValue *jason.Value) error {
	item, err := itemValue.Object()
	if err != nil {
		return fmt.Errorf("nutrition item is not an object: %w", err)
	}

	name := ""
	if nameValue, err := item.GetValue("name"); err == nil {
		if name, err = nameValue.String(); err != nil {
			return fmt.Errorf("nutrition name is not a string: %w", err)
		}
	}
	name = strings.ToLower(name)

	for n := range nutrientCount {
		if !strings.Contains(name, strings.ToLower(n.String())) {
			continue
		}
		v, err := itemNumber(item)
		if err != nil {
			return err
		}
		out[n] = Attempt{Matched: true, Value: &v}
		return nil
	}
	return nil
}

// itemNumber converts the item's value, treating falsy JSON values as 0.
func itemNumber(item *jason.Object) (float64, error) {
	v, err := item.GetValue("value")
	if err != nil {
		return 0, nil
	}
	if v.Null() == nil {
		return 0, nil
	}
	if b, err := v.Boolean(); err == nil {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	if f, err := v.Float64(); err == nil {
		return f, nil
	}
	if s, err := v.String(); err == nil {
		if s == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("nutrition value %q is not a number", s)
		}
		return f, nil
	}
	if arr, err := v.Array(); err == nil && len(arr) == 0 {
		return 0, nil
	}
	if obj, err := v.Object(); err == nil && len(obj.Map()) == 0 {
		return 0, nil
	}
	return 0, fmt.Errorf("nutrition value has unsupported type")
}
