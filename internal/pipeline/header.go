package pipeline

import (
	"strings"

	"go-pgcopy-export/internal/source"
)

const preamble = "SET statement_timeout = 0;\n" +
	"SET lock_timeout = 0;\n" +
	"SET client_encoding = 'UTF8';\n" +
	"SET standard_conforming_strings = on;\n" +
	"\n"

const trailer = "\\.\n" +
	"commit;\n" +
	"\\echo . done\n"

// header is everything written before the query runs.
func header(target string, truncate bool) string {
	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString(`\echo -n Loading `)
	b.WriteString(target)
	b.WriteString(" ...\n")
	b.WriteString("begin;\n")
	if truncate {
		b.WriteString("TRUNCATE TABLE ")
		b.WriteString(target)
		b.WriteString(";\n")
	}
	return b.String()
}

// copyStatement names the result columns in order.
func copyStatement(target string, cols []source.Column) string {
	var b strings.Builder
	b.WriteString("COPY ")
	b.WriteString(target)
	b.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name)
	}
	b.WriteString(") FROM stdin;\n")
	return b.String()
}
