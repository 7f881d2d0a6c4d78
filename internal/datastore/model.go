package datastore

import (
	"time"

	"github.com/nutrilog/nutrilog/internal/parser"
)

// FitnessData is one user's nutrition and activity totals for one calendar day.
// (UserID, Date) is the natural key.
type FitnessData struct {
	ID     uint      `gorm:"primaryKey"`
	UserID int64     `gorm:"index;not null"`
	Date   time.Time `gorm:"index;not null;type:date"`

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

	CreatedAt time.Time
}

// TableName returns the table name for FitnessData.
func (FitnessData) TableName() string {
	return "fitness_data"
}

func newFitnessData(rec *parser.Record) *FitnessData {
	row := &FitnessData{UserID: rec.UserID, Date: rec.Date}
	row.applyRecord(rec)
	return row
}

// applyRecord overwrites every non-key field with the record's value. Absent
// values clear the stored value.
func (f *FitnessData) applyRecord(rec *parser.Record) {
	f.Calories = rec.Calories
	f.Carbs = rec.Carbs
	f.Fat = rec.Fat
	f.Protein = rec.Protein
	f.Sodium = rec.Sodium
	f.Sugar = rec.Sugar
	f.ExerciseCalories = rec.ExerciseCalories
	f.Steps = rec.Steps
	f.CarbsCalories = rec.CarbsCalories
	f.FatCalories = rec.FatCalories
	f.ProteinCalories = rec.ProteinCalories
	f.NetCalories = rec.NetCalories
}

func (f *FitnessData) toRecord() parser.Record {
	return parser.Record{
		UserID:           f.UserID,
		Date:             dateOnly(f.Date),
		Calories:         f.Calories,
		Carbs:            f.Carbs,
		Fat:              f.Fat,
		Protein:          f.Protein,
		Sodium:           f.Sodium,
		Sugar:            f.Sugar,
		ExerciseCalories: f.ExerciseCalories,
		Steps:            f.Steps,
		CarbsCalories:    f.CarbsCalories,
		FatCalories:      f.FatCalories,
		ProteinCalories:  f.ProteinCalories,
		NetCalories:      f.NetCalories,
	}
}

// dateOnly normalizes t to midnight UTC on its calendar date. Drivers return
// DATE columns in differing locations.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
