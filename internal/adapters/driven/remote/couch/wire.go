package couch

import (
	"time"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
)

// wireSeed is the document representation on the wire.
type wireSeed struct {
	ID          string     `json:"_id"`
	Rev         string     `json:"_rev,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Address     string     `json:"address,omitempty"`
	Category    string     `json:"category,omitempty"`
	Scope       string     `json:"scope,omitempty"`
	Author      string     `json:"author,omitempty"`
	Archived    bool       `json:"archived,omitempty"`
	Connections []string   `json:"connections,omitempty"`
	Picture     string     `json:"picture,omitempty"`
	URLs        []wireLink `json:"urls,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

type wireLink struct {
	Label string `json:"label,omitempty"`
	URL   string `json:"url"`
}

func toWire(seed domain.Seed) wireSeed {
	w := wireSeed{
		ID:          seed.ID,
		Rev:         seed.Revision,
		Name:        seed.Name,
		Description: seed.Description,
		Address:     seed.Address,
		Category:    string(seed.Category),
		Scope:       string(seed.Scope),
		Author:      seed.Author,
		Archived:    seed.Archived,
		Connections: seed.Connections,
		Picture:     seed.Picture,
		StartDate:   seed.StartDate,
		EndDate:     seed.EndDate,
	}
	for _, link := range seed.URLs {
		w.URLs = append(w.URLs, wireLink{Label: link.Label, URL: link.URL})
	}
	return w
}

func fromWire(w wireSeed) domain.Seed {
	seed := domain.Seed{
		ID:          w.ID,
		Revision:    w.Rev,
		Name:        w.Name,
		Description: w.Description,
		Address:     w.Address,
		Category:    domain.Category(w.Category),
		Scope:       domain.Scope(w.Scope),
		Author:      w.Author,
		Archived:    w.Archived,
		Connections: w.Connections,
		Picture:     w.Picture,
		StartDate:   w.StartDate,
		EndDate:     w.EndDate,
	}
	for _, link := range w.URLs {
		seed.URLs = append(seed.URLs, domain.Link{Label: link.Label, URL: link.URL})
	}
	return seed
}
