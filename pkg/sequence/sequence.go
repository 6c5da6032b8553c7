// Package sequence issues monotonic human-readable identifiers
// (BLK00001, SLT00001, APT00001, VIS00001) for scheduling entities.
package sequence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Codes for the sequences owned by the scheduling core.
const (
	CodeBlock       = "slot_block"
	CodeSlot        = "slot"
	CodeAppointment = "appointment"
	CodeVisit       = "visit"
	CodePatient     = "patient"
)

// Generator issues the next identifier for a sequence code.
type Generator interface {
	Next(ctx context.Context, code string) (string, error)
}

// Row is the persisted counter state for one sequence.
type Row struct {
	Code       string `gorm:"column:code;type:varchar(50);primaryKey"`
	Prefix     string `gorm:"column:prefix;type:varchar(10);not null"`
	Padding    int    `gorm:"column:padding;not null;default:5"`
	NextNumber int64  `gorm:"column:next_number;not null;default:1"`
}

func (Row) TableName() string {
	return "ops.sequences"
}

// Format renders a sequence value the way issued identifiers look.
func Format(prefix string, padding int, n int64) string {
	return fmt.Sprintf("%s%0*d", prefix, padding, n)
}

type gormGenerator struct {
	db *gorm.DB
}

func NewGenerator(db *gorm.DB) Generator {
	return &gormGenerator{db: db}
}

// Next increments the counter atomically so concurrent issuers never share
// a number.
func (g *gormGenerator) Next(ctx context.Context, code string) (string, error) {
	var row Row
	err := g.db.WithContext(ctx).Raw(`
		UPDATE ops.sequences
		SET next_number = next_number + 1
		WHERE code = ?
		RETURNING code, prefix, padding, next_number
	`, code).Scan(&row).Error
	if err != nil {
		return "", fmt.Errorf("advancing sequence %s: %w", code, err)
	}
	if row.Code == "" {
		return "", fmt.Errorf("sequence %s not seeded", code)
	}
	// next_number is post-increment; the issued value is the previous one.
	return Format(row.Prefix, row.Padding, row.NextNumber-1), nil
}

// Seed inserts the default scheduling sequences if missing.
func Seed(db *gorm.DB) error {
	defaults := []Row{
		{Code: CodeBlock, Prefix: "BLK", Padding: 5, NextNumber: 1},
		{Code: CodeSlot, Prefix: "SLT", Padding: 5, NextNumber: 1},
		{Code: CodeAppointment, Prefix: "APT", Padding: 5, NextNumber: 1},
		{Code: CodeVisit, Prefix: "VIS", Padding: 5, NextNumber: 1},
		{Code: CodePatient, Prefix: "PAT", Padding: 5, NextNumber: 1},
	}
	for _, row := range defaults {
		err := db.Exec(`
			INSERT INTO ops.sequences (code, prefix, padding, next_number)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (code) DO NOTHING
		`, row.Code, row.Prefix, row.Padding, row.NextNumber).Error
		if err != nil {
			return fmt.Errorf("seeding sequence %s: %w", row.Code, err)
		}
	}
	return nil
}
