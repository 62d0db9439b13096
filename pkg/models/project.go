// Package models contains domain types for the research data hub.
package models

import "time"

// Project groups the sites created by one import run.
type Project struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	LineageID int64     `json:"lineage_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Lineage is the provenance record of one ingestion run. Every site, geometry
// and attribute value written by the run points back to it.
type Lineage struct {
	ID        int64     `json:"id"`
	System    string    `json:"system"`
	App       string    `json:"app"`
	Process   string    `json:"process"`
	Owner     string    `json:"owner"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}
