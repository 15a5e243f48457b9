package domain

// Tag is a filterable label. Works reference tags by id in their Tags map.
type Tag struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"` // category id
}

// Category groups tags in the filter panel.
type Category struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}
