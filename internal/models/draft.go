package models

// DraftPhase is the wizard screen a product draft is currently on.
type DraftPhase string

const (
	DraftPhase1       DraftPhase = "PHASE_1"
	DraftPhase2       DraftPhase = "PHASE_2"
	DraftPhase3       DraftPhase = "PHASE_3"
	DraftPhaseSummary DraftPhase = "SUMMARY"
	DraftPhaseClosed  DraftPhase = "CLOSED"
)

// ProductPhase1 carries the fields owned by the first wizard screen.
// Pointer fields distinguish "not submitted" from zero values so a
// partial re-edit cannot wipe data written earlier.
type ProductPhase1 struct {
	Name           *string  `json:"name,omitempty"`
	Slug           *string  `json:"slug,omitempty"`
	Description    *string  `json:"description,omitempty"`
	Price          *float64 `json:"price,omitempty"`
	Stock          *int     `json:"stock,omitempty"`
	BrandID        *string  `json:"brand_id,omitempty"`
	CategoryID     *string  `json:"category_id,omitempty"`
	CategoryTypeID *string  `json:"category_type_id,omitempty"`
	Active         *bool    `json:"active,omitempty"`
	Featured       *bool    `json:"featured,omitempty"`
}

// ProductResource describes one image attached to a product.
type ProductResource struct {
	URL       string `json:"url"`
	Name      string `json:"name"`
	IsPrimary bool   `json:"is_primary"`
	Type      string `json:"type"`
}

// ProductDraft accumulates the three wizard phases into one creation
// payload. Each phase merges only the fields it owns; nil slices mean
// the phase has not been visited, empty slices mean it was skipped.
type ProductDraft struct {
	Name           string            `json:"name"`
	Slug           string            `json:"slug"`
	Description    string            `json:"description"`
	Price          float64           `json:"price"`
	Stock          int               `json:"stock"`
	BrandID        string            `json:"brand_id"`
	CategoryID     string            `json:"category_id"`
	CategoryTypeID string            `json:"category_type_id"`
	Active         bool              `json:"active"`
	Featured       bool              `json:"featured"`
	Resources      []ProductResource `json:"resources"`
	DiscountIDs    []string          `json:"discount_ids"`

	phase1Seen map[string]bool
}

// ApplyPhase1 merges the submitted phase-1 fields into the draft,
// field by field. Fields left nil in the submission keep their
// current draft value.
func (d *ProductDraft) ApplyPhase1(p ProductPhase1) {
	if d.phase1Seen == nil {
		d.phase1Seen = make(map[string]bool)
	}
	if p.Name != nil {
		d.Name = *p.Name
		d.phase1Seen["name"] = true
	}
	if p.Slug != nil {
		d.Slug = *p.Slug
		d.phase1Seen["slug"] = true
	}
	if p.Description != nil {
		d.Description = *p.Description
		d.phase1Seen["description"] = true
	}
	if p.Price != nil {
		d.Price = *p.Price
		d.phase1Seen["price"] = true
	}
	if p.Stock != nil {
		d.Stock = *p.Stock
		d.phase1Seen["stock"] = true
	}
	if p.BrandID != nil {
		d.BrandID = *p.BrandID
		d.phase1Seen["brand_id"] = true
	}
	if p.CategoryID != nil {
		d.CategoryID = *p.CategoryID
		d.phase1Seen["category_id"] = true
	}
	if p.CategoryTypeID != nil {
		d.CategoryTypeID = *p.CategoryTypeID
		d.phase1Seen["category_type_id"] = true
	}
	if p.Active != nil {
		d.Active = *p.Active
	}
	if p.Featured != nil {
		d.Featured = *p.Featured
	}
}

// SetResources merges the phase-2 field. An empty (non-nil) list is a
// valid "skip" submission.
func (d *ProductDraft) SetResources(resources []ProductResource) {
	if resources == nil {
		resources = []ProductResource{}
	}
	d.Resources = resources
}

// SetDiscountIDs merges the phase-3 field.
func (d *ProductDraft) SetDiscountIDs(ids []string) {
	if ids == nil {
		ids = []string{}
	}
	d.DiscountIDs = ids
}

// MissingPhase1Fields lists the required phase-1 fields not yet
// submitted. The draft is complete only when this is empty.
func (d *ProductDraft) MissingPhase1Fields() []string {
	required := []string{"name", "slug", "description", "price", "stock", "brand_id", "category_id", "category_type_id"}
	var missing []string
	for _, f := range required {
		if !d.phase1Seen[f] {
			missing = append(missing, f)
		}
	}
	return missing
}

// SeedFromItem pre-populates the draft from an existing catalog item
// so the same three-phase flow serves edit mode. All phase-1 fields
// count as submitted.
func (d *ProductDraft) SeedFromItem(item CatalogItem, resources []ProductResource, discountIDs []string) {
	d.ApplyPhase1(ProductPhase1{
		Name:           &item.Name,
		Slug:           &item.Slug,
		Description:    &item.Description,
		Price:          &item.Price,
		Stock:          &item.Stock,
		BrandID:        &item.BrandID,
		CategoryID:     &item.CategoryID,
		CategoryTypeID: &item.CategoryTypeID,
		Active:         &item.Active,
	})
	d.SetResources(resources)
	d.SetDiscountIDs(discountIDs)
}
