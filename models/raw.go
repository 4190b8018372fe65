package models

// RawRestaurant is an extractor record before decoding. Validation tags are
// enforced by the menu decoder.
type RawRestaurant struct {
	ID       string       `json:"id" validate:"required"`
	Name     string       `json:"name" validate:"required"`
	Phone    string       `json:"phone,omitempty"`
	ImageURL string       `json:"imageURL,omitempty"`
	Sections []RawSection `json:"sections" validate:"required,dive"`
}

// RawSection is an unvalidated menu section.
type RawSection struct {
	Title string    `json:"title"`
	Items []RawItem `json:"items" validate:"required,dive"`
}

// RawItem is an unvalidated menu item.
type RawItem struct {
	Category    string `json:"category" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price" validate:"required"`
}
