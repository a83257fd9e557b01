package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for room documents.
//
// "slug" is a keyword for exact and prefix matches; "words" splits the slug
// on hyphens for word and fuzzy matches. Numeric and date fields support
// sorting results by popularity.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = simple.Name

	docMapping := bleve.NewDocumentMapping()

	slugFieldMapping := bleve.NewTextFieldMapping()
	slugFieldMapping.Analyzer = keyword.Name
	slugFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("slug", slugFieldMapping)

	wordsFieldMapping := bleve.NewTextFieldMapping()
	wordsFieldMapping.Analyzer = simple.Name
	wordsFieldMapping.Store = false
	wordsFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("words", wordsFieldMapping)

	pixelCountFieldMapping := bleve.NewNumericFieldMapping()
	pixelCountFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("pixel_count", pixelCountFieldMapping)

	updatedAtFieldMapping := bleve.NewDateTimeFieldMapping()
	updatedAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("updated_at", updatedAtFieldMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}
