// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the records shared by the digest pipeline: papers,
// analyses, cache entries, cycle results, and configuration.
package types

import (
	"strings"
	"time"
)

// Paper holds the metadata of one publication retrieved from the catalog.
// Papers are never mutated after parsing; a revised upstream record is a new
// value whose content hash differs from the cached one.
type Paper struct {
	// ID is the catalog identifier including any version suffix (e.g. "2301.07041v2").
	ID string `json:"id" yaml:"id"`

	// Title is the whitespace-normalized paper title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the whitespace-normalized abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Categories lists every category tag in feed order.
	Categories []string `json:"categories" yaml:"categories"`

	// Published is the first submission timestamp.
	Published time.Time `json:"published" yaml:"published"`

	// Updated is the last revision timestamp; never earlier than Published.
	Updated time.Time `json:"updated" yaml:"updated"`

	// PDFURL is the downloadable document URL.
	PDFURL string `json:"pdf_url" yaml:"pdf_url"`

	// ArxivURL is the canonical abstract page URL.
	ArxivURL string `json:"arxiv_url" yaml:"arxiv_url"`

	// PrimaryCategory is the category the catalog lists as primary.
	PrimaryCategory string `json:"primary_category" yaml:"primary_category"`
}

// NormalizeSpace collapses runs of whitespace into single spaces and trims
// the result. Titles and abstracts in Atom feeds wrap at arbitrary columns.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Text returns the title and abstract joined by a space, lowercased, for
// keyword matching.
func (p Paper) Text() string {
	return strings.ToLower(p.Title + " " + p.Abstract)
}
