package analytics

import (
	"fmt"

	"github.com/i474232898/solar-weather-analytics/internal/common"
)

// Query maps an attribute name to a comma-separated list of aggregates.
type Query map[string]string

// ParseAggregates parses a comma-separated aggregate list. An empty string
// selects the whole vocabulary. Any unknown name fails the whole list.
func ParseAggregates(s string) ([]Aggregate, error) {
	if s == "" {
		return Vocabulary(), nil
	}

	tokens := common.SplitList(s)
	aggs := make([]Aggregate, 0, len(tokens))
	for _, tok := range tokens {
		a := Aggregate(tok)
		if !a.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAggregate, tok)
		}
		aggs = append(aggs, a)
	}
	return aggs, nil
}

// ResolveQuery maps attributes to the aggregates requested for them.
//
// With a nil query every attribute receives the aggregates parsed from
// aggregates. Otherwise only the attributes named in query are resolved, each
// with its own list; attributes absent from the data are resolved too and
// simply never matched later.
func ResolveQuery(attributes []string, query Query, aggregates string) (map[string][]Aggregate, error) {
	resolved := make(map[string][]Aggregate)

	if query == nil {
		aggs, err := ParseAggregates(aggregates)
		if err != nil {
			return nil, err
		}
		for _, attr := range attributes {
			resolved[attr] = append([]Aggregate(nil), aggs...)
		}
		return resolved, nil
	}

	for attr, list := range query {
		aggs, err := ParseAggregates(list)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", attr, err)
		}
		resolved[attr] = aggs
	}
	return resolved, nil
}
