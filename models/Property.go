package models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Property struct {
	gorm.Model
	AgentID      uint    `json:"agentID" gorm:"index;not null"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	PropertyType string  `json:"propertyType"` // apartment, house, studio, commercial
	AddressLine1 string  `json:"addressLine1"`
	AddressLine2 string  `json:"addressLine2"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	Zip          string  `json:"zip"`
	Country      string  `json:"country"`
	Lat          float32 `json:"lat"`
	Lng          float32 `json:"lng"`
	Bedrooms     int     `json:"bedrooms"`
	Bathrooms    float32 `json:"bathrooms"`
	MonthlyRent  float64 `json:"monthlyRent"`
	Deposit      float64 `json:"deposit"`
	Currency     string  `json:"currency"`  // MRO for Mauritania
	Amenities    string  `json:"amenities"` // JSON string
	Images       string  `json:"images"`    // JSON array of URLs
	IsActive     *bool   `json:"isActive"`

	// Contractors the agent can dispatch for maintenance, ordered by preference
	Contractors datatypes.JSON `json:"contractors" gorm:"type:jsonb"`

	Agent  User             `json:"agent" gorm:"foreignKey:AgentID;references:ID"`
	Leases []LeaseAgreement `json:"leases" gorm:"foreignKey:PropertyID;references:ID"`
}

// ContractorInfo is one entry of Property.Contractors.
type ContractorInfo struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Specialty string `json:"specialty"` // plumbing, electrical, general
}

// Custom JSON marshaling to convert Images and Amenities strings to arrays
func (p *Property) MarshalJSON() ([]byte, error) {
	type Alias Property
	aux := &struct {
		Images    []string `json:"images"`
		Amenities []string `json:"amenities"`
		Agent     *User    `json:"agent,omitempty"`
		*Alias
	}{
		Images:    []string{},
		Amenities: []string{},
		Agent:     nil,
		Alias:     (*Alias)(p),
	}

	if p.Images != "" {
		var images []string
		if err := json.Unmarshal([]byte(p.Images), &images); err == nil {
			aux.Images = images
		}
	}

	if p.Amenities != "" {
		var amenities []string
		if err := json.Unmarshal([]byte(p.Amenities), &amenities); err == nil {
			aux.Amenities = amenities
		}
	}

	// Only include agent if loaded, and avoid circular reference
	if p.Agent.ID > 0 {
		agentCopy := p.Agent
		agentCopy.Properties = nil
		aux.Agent = &agentCopy
	}

	return json.Marshal(aux)
}
