// Package gffwrite emits one GFF3 feature line per taxonomic placement
// result.
package gffwrite

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"taxoplace/pkg/domain"
)

const gffVersionLine = "##gff-version 3"

// Writer emits GFF3 feature lines for PredictionRecords, one call to
// Write per line, prefixed once with the gff-version pragma.
type Writer struct {
	w           *bufio.Writer
	wroteHeader bool
}

// New wraps w in a GFF3 writer.
func New(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends one taxonomic_placement feature line for rec.
func (g *Writer) Write(rec domain.PredictionRecord) error {
	if !g.wroteHeader {
		if _, err := fmt.Fprintln(g.w, gffVersionLine); err != nil {
			return err
		}
		g.wroteHeader = true
	}

	attrs := []string{
		"ID=" + escape(rec.QueryID),
		fmt.Sprintf("lowerNode=%d", taxID(rec.LowerNode)),
		fmt.Sprintf("upperNode=%d", taxID(rec.UpperNode)),
		fmt.Sprintf("interpolationValue=%.6f", rec.InterpolationValue),
		fmt.Sprintf("signalStrength=%.6f", rec.SignalStrength),
		fmt.Sprintf("anchorsSupport=%d", rec.AnchorsSupport),
	}
	if rec.BestReferenceTaxon != nil {
		attrs = append(attrs, fmt.Sprintf("bestReferenceTaxon=%d", rec.BestReferenceTaxon.TaxID()))
	}
	if rec.Unclassified {
		attrs = append(attrs, "unclassified=true")
	}

	start, stop := rec.QueryStart, rec.QueryStop
	if start == 0 && stop == 0 {
		start, stop = 1, rec.QueryLength
	}

	_, err := fmt.Fprintf(g.w, "%s\ttaxoplace\ttaxonomic_placement\t%d\t%d\t.\t.\t.\t%s\n",
		escape(rec.QueryID), start, stop, strings.Join(attrs, ";"))
	return err
}

// Flush pushes any buffered output to the underlying writer.
func (g *Writer) Flush() error { return g.w.Flush() }

func taxID(ref domain.TaxonRef) int64 {
	if ref == nil {
		return 0
	}
	return ref.TaxID()
}

func escape(s string) string {
	s = strings.ReplaceAll(s, ";", "%3B")
	s = strings.ReplaceAll(s, "\t", "%09")
	return strings.ReplaceAll(s, " ", "%20")
}
