// Package menu decodes extractor output into the canonical lunch model.
package menu

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/use-agent/alandlunch/models"
)

// Decoder validates raw records and maps them to restaurants.
// It is safe for concurrent use.
type Decoder struct {
	validate *validator.Validate
	newID    func() string
}

// NewDecoder creates a Decoder that assigns random UUIDs to sections and items.
func NewDecoder() *Decoder {
	return &Decoder{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		newID:    uuid.NewString,
	}
}

// Decode parses raw as a JSON array of restaurant records.
//
// Invalid JSON is a parsing error. Valid JSON of the wrong shape, or a
// record missing a required field, is a decoding error. Records whose id
// repeats an earlier one are dropped.
func (d *Decoder) Decode(raw []byte) ([]models.Restaurant, error) {
	if len(raw) == 0 || !json.Valid(raw) {
		return nil, models.NewScrapeError(models.ErrCodeParsing, "extractor output is not valid JSON", nil)
	}

	var records []models.RawRestaurant
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeDecoding, err.Error(), err)
	}

	restaurants := make([]models.Restaurant, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		if err := d.validate.Struct(rec); err != nil {
			return nil, models.NewScrapeError(
				models.ErrCodeDecoding,
				fmt.Sprintf("restaurant %d: %v", i, err),
				err,
			)
		}
		if _, dup := seen[rec.ID]; dup {
			slog.Debug("decoder: dropping duplicate restaurant", "id", rec.ID, "name", rec.Name)
			continue
		}
		seen[rec.ID] = struct{}{}
		restaurants = append(restaurants, d.restaurant(rec))
	}
	return restaurants, nil
}

func (d *Decoder) restaurant(rec models.RawRestaurant) models.Restaurant {
	sections := make([]models.MenuSection, 0, len(rec.Sections))
	for _, s := range rec.Sections {
		items := make([]models.MenuItem, 0, len(s.Items))
		for _, it := range s.Items {
			items = append(items, models.MenuItem{
				ID:          d.newID(),
				Category:    it.Category,
				Name:        it.Name,
				Description: it.Description,
				Price:       it.Price,
			})
		}
		sections = append(sections, models.MenuSection{
			ID:    d.newID(),
			Title: s.Title,
			Items: items,
		})
	}

	return models.Restaurant{
		ID:       rec.ID,
		Name:     rec.Name,
		Phone:    rec.Phone,
		ImageURL: rec.ImageURL,
		Sections: sections,
	}
}
