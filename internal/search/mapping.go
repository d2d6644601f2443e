package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Field names in the index.
const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldTags        = "tags"
	fieldDeckID      = "deck_id"
)

// wholeValueLower indexes a field as one lowercased term, so a regexp over
// the term is a case-insensitive substring test over the whole value.
const wholeValueLower = "whole_value_lower"

// searchableFields are matched by every query.
var searchableFields = []string{fieldTitle, fieldDescription, fieldTags}

func buildIndexMapping() (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(wholeValueLower, map[string]any{
		"type":          custom.Name,
		"tokenizer":     single.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, err
	}
	indexMapping.DefaultAnalyzer = wholeValueLower

	docMapping := bleve.NewDocumentMapping()

	for _, f := range searchableFields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = wholeValueLower
		fm.Store = false
		fm.IncludeInAll = false
		docMapping.AddFieldMappingsAt(f, fm)
	}

	idMapping := bleve.NewKeywordFieldMapping()
	idMapping.Analyzer = keyword.Name
	idMapping.Store = true
	docMapping.AddFieldMappingsAt(fieldDeckID, idMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping, nil
}
