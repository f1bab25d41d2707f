package models

import "time"

// Product is a product inventory record in the document store; the
// completeness engine reads these as the "brother set" of a datatake.
type Product struct {
	ConsolidatedBase
	LinkedBase

	Name         string `json:"name"`
	DatatakeId   string `json:"datatake_id,omitempty"`
	ProductLevel string `json:"product_level,omitempty"`

	// product-type key like "L0__DS", "L1C_TL"
	ProductType string `json:"product_type,omitempty"`

	SensingStart time.Time `json:"sensing_start_date"`
	SensingStop  time.Time `json:"sensing_end_date"`

	DetectorId string `json:"detector_id,omitempty"`
	TileNumber string `json:"tile_number,omitempty"`
	SizeBytes  int64  `json:"content_length,omitempty"`
	SessionId  string `json:"session_id,omitempty"`
}

func (p *Product) IndexName() string {
	return IndexProducts
}

// SensingPeriod is the closed-open sensing coverage of the product.
func (p *Product) SensingPeriod() Period {
	return NewPeriod(p.SensingStart, p.SensingStop)
}

// TypeKey builds the product-type key for a (level, sub-type) pair, e.g.
// ("L0_", "DS") -> "L0__DS".
func TypeKey(level string, subType string) string {
	return level + "_" + subType
}

// Publication is the published-file view of a product on a dissemination
// interface; tickets reference these by (varying) file name conventions.
type Publication struct {
	ConsolidatedBase
	LinkedBase

	Name            string    `json:"name"`
	ProductType     string    `json:"product_type,omitempty"`
	ServiceId       string    `json:"service_id,omitempty"`
	PublicationDate time.Time `json:"publication_date"`
}

func (p *Publication) IndexName() string {
	return IndexPublications
}
