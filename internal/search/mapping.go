package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping maps titles and tag names through the CJK bigram analyzer,
// which handles Japanese text without a dictionary. Everything used for
// filtering is a keyword field.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = cjk.AnalyzerName

	doc := bleve.NewDocumentMapping()

	name := bleve.NewTextFieldMapping()
	name.Analyzer = cjk.AnalyzerName
	name.Store = true
	name.IncludeTermVectors = true
	doc.AddFieldMappingsAt("name", name)

	for _, field := range []string{"id", "type", "key", "category", "collection", "tags"} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = field != "key"
		doc.AddFieldMappingsAt(field, fm)
	}

	categoryName := bleve.NewTextFieldMapping()
	categoryName.Index = false
	categoryName.Store = true
	doc.AddFieldMappingsAt("category_name", categoryName)

	timestamp := bleve.NewNumericFieldMapping()
	timestamp.Store = true
	doc.AddFieldMappingsAt("timestamp", timestamp)

	indexMapping.AddDocumentMapping("_default", doc)
	return indexMapping
}
