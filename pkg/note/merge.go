package note

import (
	"slices"
	"strings"
)

// ApplySection merges a fragment into the document under the given heading
// and returns the updated text. It is a pure function with no I/O.
//
// If the section already exists, the fragment is appended after all of its
// previous content, keeping a blank line between the section and the next
// heading. If it does not, a new section block is created at the position
// dictated by SectionOrder: immediately before the first canonically-later
// heading present in the document, or at the end when none is. Headings
// outside the canonical order are appended at the end unconditionally.
func ApplySection(doc, fragment, heading string) string {
	lines := splitLines(doc)
	frag := strings.Split(fragment, "\n")

	level := headingLevel(heading)
	if level == 0 {
		level = 2
	}

	if at := findHeading(lines, heading); at >= 0 {
		return strings.Join(appendToSection(lines, frag, at, level), "\n")
	}

	idx := canonicalIndex(heading)
	if idx >= 0 {
		// Insert before the first canonically-later heading that exists.
		// Everything earlier stays earlier, so the ordering invariant holds
		// inductively.
		for j := idx + 1; j < len(SectionOrder); j++ {
			if at := findHeading(lines, SectionOrder[j]); at >= 0 {
				return strings.Join(insertBlockBefore(lines, heading, frag, at), "\n")
			}
		}
	}

	// Unknown heading, or nothing later present: appending is always
	// order-consistent.
	return strings.Join(appendBlock(lines, heading, frag), "\n")
}

func splitLines(doc string) []string {
	if doc == "" {
		return nil
	}
	return strings.Split(doc, "\n")
}

// findHeading returns the index of the line whose normalized form equals
// the heading, or -1.
func findHeading(lines []string, heading string) int {
	norm := normalizeHeading(heading)
	for i, line := range lines {
		if normalizeHeading(line) == norm {
			return i
		}
	}
	return -1
}

// appendToSection inserts the fragment after all existing content of the
// section starting at line at, immediately before its trailing blank lines.
func appendToSection(lines []string, frag []string, at, level int) []string {
	end := at + 1
	for end < len(lines) && headingLevel(lines[end]) != level {
		end++
	}

	insert := end
	for insert > at+1 && isBlank(lines[insert-1]) {
		insert--
	}

	block := frag
	if insert == end && end < len(lines) {
		// The next heading followed directly; keep a visual separator.
		block = append(slices.Clone(frag), "")
	}

	return slices.Insert(lines, insert, block...)
}

// insertBlockBefore places a new section block immediately before line at.
func insertBlockBefore(lines []string, heading string, frag []string, at int) []string {
	block := make([]string, 0, len(frag)+3)
	if at > 0 && !isBlank(lines[at-1]) {
		block = append(block, "")
	}
	block = append(block, heading)
	block = append(block, frag...)
	block = append(block, "")

	return slices.Insert(lines, at, block...)
}

// appendBlock places a new section block at the end of the document, after
// a blank line when the document is non-empty.
func appendBlock(lines []string, heading string, frag []string) []string {
	for len(lines) > 0 && isBlank(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > 0 {
		lines = append(lines, "")
	}
	lines = append(lines, heading)
	return append(lines, frag...)
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
