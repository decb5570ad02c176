// Package model defines the entity records managed by the case file:
// assisted families, their household members, home visits, and aid
// deliveries. A Snapshot holds all four collections as a single value.
package model

// FamilyStatus is the assistance status of a family record.
type FamilyStatus string

const (
	StatusActive   FamilyStatus = "active"
	StatusInactive FamilyStatus = "inactive"
	StatusPending  FamilyStatus = "pending"
)

// DeliveryStatus records whether an aid delivery was completed.
type DeliveryStatus string

const (
	StatusDelivered    DeliveryStatus = "delivered"
	StatusNotDelivered DeliveryStatus = "not_delivered"
)

// CollectedBy classifies who picked up a delivery.
type CollectedBy string

const (
	CollectedBySelf  CollectedBy = "self"
	CollectedByOther CollectedBy = "other"
)

// Family is the head-of-household record. It is the parent of every
// Member, Visit, and Delivery carrying its ID.
type Family struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	BirthDate     string       `json:"birth_date,omitempty"`
	Phone         string       `json:"phone,omitempty"`
	Address       string       `json:"address,omitempty"`
	Neighborhood  string       `json:"neighborhood,omitempty"`
	City          string       `json:"city,omitempty"`
	CPF           string       `json:"cpf,omitempty"`
	RG            string       `json:"rg,omitempty"`
	Income        string       `json:"income,omitempty"`
	HealthNotes   string       `json:"health_notes,omitempty"`
	Occupation    string       `json:"occupation,omitempty"`
	HouseholdSize int          `json:"household_size,omitempty"`
	Status        FamilyStatus `json:"status"`
	RegisteredAt  string       `json:"registered_at,omitempty"`
	Notes         string       `json:"notes,omitempty"`
}

// Member is a household member of exactly one family.
type Member struct {
	ID           string `json:"id"`
	FamilyID     string `json:"family_id"`
	Name         string `json:"name"`
	Relationship string `json:"relationship,omitempty"`
	Age          int    `json:"age,omitempty"`
	BirthDate    string `json:"birth_date,omitempty"`
	Occupation   string `json:"occupation,omitempty"`
	Income       string `json:"income,omitempty"`
	HealthNotes  string `json:"health_notes,omitempty"`
}

// Visit records a home visit to a family. Volunteers is the ordered list
// of attending volunteer names.
type Visit struct {
	ID         string   `json:"id"`
	FamilyID   string   `json:"family_id"`
	Date       string   `json:"visit_date,omitempty"`
	Volunteers []string `json:"volunteers"`
	Narrative  string   `json:"narrative,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Needs      []string `json:"needs"`
}

// Delivery records an aid delivery (food basket etc.) to a family.
type Delivery struct {
	ID              string         `json:"id"`
	FamilyID        string         `json:"family_id"`
	Date            string         `json:"delivery_date,omitempty"`
	AidType         string         `json:"aid_type,omitempty"`
	Responsible     string         `json:"responsible,omitempty"`
	Status          DeliveryStatus `json:"status"`
	CollectedBy     CollectedBy    `json:"collected_by,omitempty"`
	CollectedDetail string         `json:"collected_detail,omitempty"`
	Notes           string         `json:"notes,omitempty"`
}
