package domain

import (
	"fmt"
	"time"
)

// LinkType names a semantic relationship between two projects.
type LinkType string

const (
	LinkDependsOn       LinkType = "DEPENDS_ON"
	LinkSimilarTo       LinkType = "SIMILAR_TO"
	LinkSharesResources LinkType = "SHARES_RESOURCES_WITH"
)

// Valid reports whether the link type is a recognized value.
func (t LinkType) Valid() bool {
	return t == LinkDependsOn || t == LinkSimilarTo || t == LinkSharesResources
}

// ParseLinkType converts a raw string into a LinkType.
func ParseLinkType(raw string) (LinkType, error) {
	t := LinkType(raw)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown link type %q", ErrInvalidArgument, raw)
	}
	return t, nil
}

// Link is a directed relationship from one project to another.
type Link struct {
	Type        LinkType  `json:"type"`
	ToProjectID string    `json:"toProjectId"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}
