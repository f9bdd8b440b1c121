// Package domain defines the core domain models for the news stream service.
package domain

import (
	"strings"

	"github.com/juju/errors"
)

// Category is the topical label assigned to an article at ingestion.
type Category string

const (
	CategoryPolitics      Category = "Politics"
	CategoryBusiness      Category = "Business"
	CategoryTechnology    Category = "Technology"
	CategorySports        Category = "Sports"
	CategoryEntertainment Category = "Entertainment"
	CategoryHealth        Category = "Health"
	CategoryScience       Category = "Science"
	CategoryEducation     Category = "Education"
	CategoryCrime         Category = "Crime"
	CategoryInternational Category = "International"
	CategoryEnvironment   Category = "Environment"
	CategoryEconomy       Category = "Economy"
	CategoryDefense       Category = "Defense"
	CategoryGeneral       Category = "General"
)

// Categories returns every label in declaration order. General is last.
func Categories() []Category {
	return []Category{
		CategoryPolitics,
		CategoryBusiness,
		CategoryTechnology,
		CategorySports,
		CategoryEntertainment,
		CategoryHealth,
		CategoryScience,
		CategoryEducation,
		CategoryCrime,
		CategoryInternational,
		CategoryEnvironment,
		CategoryEconomy,
		CategoryDefense,
		CategoryGeneral,
	}
}

// ParseCategory resolves a label case-insensitively.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories() {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", errors.NotValidf("category %q", s)
}

// Valid reports whether c is one of the known labels.
func (c Category) Valid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}

// SessionState is the lifecycle state of a stream session.
type SessionState string

const (
	SessionStateInit      SessionState = "INIT"
	SessionStateBatched   SessionState = "BATCHED"
	SessionStateTrickling SessionState = "TRICKLING"
	SessionStateComplete  SessionState = "COMPLETE"
	SessionStateClosed    SessionState = "CLOSED"
)

// IngestResult labels the outcome of persisting one upstream item.
type IngestResult string

const (
	IngestResultSaved     IngestResult = "saved"
	IngestResultDuplicate IngestResult = "duplicate"
	IngestResultFailed    IngestResult = "failed"
)
