// Package ncbiload parses the NCBI taxonomy dump's nodes.dmp/names.dmp
// pair into a taxonomy.Taxonomy, reordering nodes into the parent-first
// sequence InsertNode requires (the dump itself makes no such guarantee).
package ncbiload

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"taxoplace/pkg/taxonomy"
)

const fieldSep = "\t|\t"

// parseNodes maps each taxid to its parent and to its rank as recorded in
// nodes.dmp.
func parseNodes(r io.Reader) (map[int64]int64, map[int64]string, error) {
	parent := make(map[int64]int64)
	rank := make(map[int64]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSuffix(strings.TrimRight(scanner.Text(), "\n"), "\t|")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, fieldSep)
		if len(fields) < 3 {
			return nil, nil, fmt.Errorf("malformed nodes.dmp line: %q", line)
		}
		taxID, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("nodes.dmp taxid: %w", err)
		}
		parentID, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("nodes.dmp parent taxid: %w", err)
		}
		parent[taxID] = parentID
		rank[taxID] = strings.TrimSpace(fields[2])
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read nodes.dmp: %w", err)
	}
	return parent, rank, nil
}

// parseNames maps each taxid to its scientific name, ignoring synonyms,
// common names, and other non-"scientific name" classes.
func parseNames(r io.Reader) (map[int64]string, error) {
	names := make(map[int64]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSuffix(strings.TrimRight(scanner.Text(), "\n"), "\t|")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, fieldSep)
		if len(fields) < 4 {
			return nil, fmt.Errorf("malformed names.dmp line: %q", line)
		}
		if strings.TrimSpace(fields[3]) != "scientific name" {
			continue
		}
		taxID, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("names.dmp taxid: %w", err)
		}
		names[taxID] = strings.TrimSpace(fields[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read names.dmp: %w", err)
	}
	return names, nil
}

// Load builds a taxonomy.Taxonomy from an NCBI nodes.dmp/names.dmp pair
// and reindexes it. rootTaxID is usually 1; NCBI dumps mark the root as
// its own parent, which this loader treats as "has no parent" rather
// than inserting a self-loop.
func Load(nodes, names io.Reader, rootTaxID int64) (*taxonomy.Taxonomy, error) {
	parent, rank, err := parseNodes(nodes)
	if err != nil {
		return nil, err
	}
	sciNames, err := parseNames(names)
	if err != nil {
		return nil, err
	}
	if _, ok := parent[rootTaxID]; !ok {
		return nil, fmt.Errorf("root taxon %d not present in nodes.dmp", rootTaxID)
	}

	children := make(map[int64][]int64)
	for taxID, parentID := range parent {
		if taxID == rootTaxID || parentID == taxID {
			continue
		}
		children[parentID] = append(children[parentID], taxID)
	}

	tax := taxonomy.NewTaxonomy(rootTaxID)
	if err := annotate(tax, rootTaxID, sciNames, rank); err != nil {
		return nil, err
	}

	queue := []int64{rootTaxID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range children[cur] {
			if err := tax.InsertNode(child, cur); err != nil {
				return nil, fmt.Errorf("insert taxon %d: %w", child, err)
			}
			if err := annotate(tax, child, sciNames, rank); err != nil {
				return nil, err
			}
			queue = append(queue, child)
		}
	}

	if err := tax.Reindex(); err != nil {
		return nil, err
	}
	return tax, nil
}

func annotate(tax *taxonomy.Taxonomy, taxID int64, names map[int64]string, ranks map[int64]string) error {
	name := names[taxID]
	r := ranks[taxID]
	if name == "" && r == "" {
		return nil
	}
	return tax.SetAnnotation(taxID, name, r)
}
