// Package alignparse parses a tab-delimited alignment table into
// domain.AlignmentRecord values grouped by query id, resolving each
// reference identifier to a taxon through an IdentifierTaxonStore.
package alignparse

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"taxoplace/pkg/domain"
	"taxoplace/pkg/taxonomy"
)

// Column order: queryID, queryStart, queryStop, referenceIdentifier,
// referenceStart, referenceStop, score, identities, alignLength.
const columnCount = 9

// Parse reads one alignment record per line and groups the results by
// query id, in file order.
func Parse(r io.Reader, tax *taxonomy.Taxonomy, identifiers domain.IdentifierTaxonStore) (map[string][]*domain.AlignmentRecord, error) {
	byQuery := make(map[string][]*domain.AlignmentRecord)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != columnCount {
			return nil, fmt.Errorf("line %d: expected %d tab-delimited fields, got %d", lineNo, columnCount, len(fields))
		}
		queryID := fields[0]
		rec, err := parseRecord(fields, tax, identifiers)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		byQuery[queryID] = append(byQuery[queryID], rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read alignment table: %w", err)
	}
	return byQuery, nil
}

func parseRecord(fields []string, tax *taxonomy.Taxonomy, identifiers domain.IdentifierTaxonStore) (*domain.AlignmentRecord, error) {
	queryStart, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("query start: %w", err)
	}
	queryStop, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, fmt.Errorf("query stop: %w", err)
	}
	referenceIdentifier := fields[3]
	referenceStart, err := strconv.Atoi(fields[4])
	if err != nil {
		return nil, fmt.Errorf("reference start: %w", err)
	}
	referenceStop, err := strconv.Atoi(fields[5])
	if err != nil {
		return nil, fmt.Errorf("reference stop: %w", err)
	}
	score, err := strconv.ParseFloat(fields[6], 64)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	identities, err := strconv.Atoi(fields[7])
	if err != nil {
		return nil, fmt.Errorf("identities: %w", err)
	}
	alignLength, err := strconv.Atoi(fields[8])
	if err != nil {
		return nil, fmt.Errorf("align length: %w", err)
	}

	taxID, err := identifiers.LookupTaxID(referenceIdentifier)
	if err != nil {
		return nil, fmt.Errorf("resolve reference %q: %w", referenceIdentifier, err)
	}
	node, ok := tax.GetNode(taxID)
	if !ok {
		return nil, domain.MissingTaxonError{TaxID: taxID}
	}

	return &domain.AlignmentRecord{
		QueryStart:          queryStart,
		QueryStop:           queryStop,
		Identities:          identities,
		ScoreValue:          score,
		AlignLength:         alignLength,
		ReferenceIdentifier: referenceIdentifier,
		ReferenceStart:      referenceStart,
		ReferenceStop:       referenceStop,
		ReferenceNode:       node,
	}, nil
}
