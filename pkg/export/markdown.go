package export

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/vanderheijden86/cardtree/pkg/model"
	"github.com/vanderheijden86/cardtree/pkg/tree"
)

// Package-level compiled regex for slug creation (avoids recompilation per call)
var slugNonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9]+`)

// sanitizeMermaidID ensures an ID is valid for Mermaid diagrams.
// Mermaid node IDs must be alphanumeric with hyphens/underscores.
func sanitizeMermaidID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			sb.WriteRune(r)
		}
	}
	result := sb.String()
	if result == "" {
		return "node"
	}
	return result
}

// sanitizeMermaidText prepares text for use in Mermaid node labels.
func sanitizeMermaidText(text string) string {
	replacer := strings.NewReplacer(
		"\"", "'",
		"[", "(",
		"]", ")",
		"{", "(",
		"}", ")",
		"<", "&lt;",
		">", "&gt;",
		"|", "/",
		"`", "'",
		"\n", " ",
		"\r", "",
	)
	result := replacer.Replace(text)
	result = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, result)
	result = strings.TrimSpace(result)

	runes := []rune(result)
	if len(runes) > 40 {
		result = string(runes[:37]) + "..."
	}
	return result
}

// GenerateMarkdown renders the projected board as a markdown outline: a
// summary table, a table of contents over the parents, a Mermaid graph of
// the open hierarchy and one section per parent listing its cards.
func GenerateMarkdown(opts SnapshotOptions) (string, error) {
	if opts.Lookup == nil {
		return "", fmt.Errorf("lookup is required for markdown export")
	}
	title := opts.Title
	if title == "" {
		title = "cardtree board"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "*Generated: %s*\n\n", time.Now().Format(time.RFC1123))

	parents, leaves := 0, 0
	for _, it := range opts.Items {
		if it.IsParent() {
			parents++
		} else {
			leaves++
		}
	}
	selected := 0
	if opts.Selection != nil {
		selected = opts.Selection.Len()
	}
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Count |\n|--------|-------|\n")
	fmt.Fprintf(&sb, "| **Items** | %d |\n", len(opts.Items))
	fmt.Fprintf(&sb, "| Parents | %d |\n", parents)
	fmt.Fprintf(&sb, "| Cards | %d |\n", leaves)
	fmt.Fprintf(&sb, "| Window | [%d, %d) |\n", opts.Window.Start, opts.Window.End)
	fmt.Fprintf(&sb, "| Selected | %d |\n\n", selected)

	// Precompute stable, unique slugs for TOC anchors and headings.
	slugCounts := make(map[string]int)
	slugs := make(map[int]string)
	for i, it := range opts.Items {
		if it.IsParent() {
			slugs[i] = uniqueSlug(createSlug(headingText(opts, it)), slugCounts)
		}
	}

	sb.WriteString("## Table of Contents\n\n")
	for i, it := range opts.Items {
		if !it.IsParent() {
			continue
		}
		fmt.Fprintf(&sb, "%s- [%s](#%s)\n", strings.Repeat("  ", it.Level), headingText(opts, it), slugs[i])
	}
	sb.WriteString("\n---\n\n")

	sb.WriteString("## Hierarchy\n\n")
	sb.WriteString("```mermaid\n")
	sb.WriteString(mermaidTree(opts))
	sb.WriteString("```\n\n---\n\n")

	for _, it := range opts.Items {
		if it.IsParent() {
			level := min(6, it.Level+2)
			fmt.Fprintf(&sb, "\n%s %s\n\n", strings.Repeat("#", level), headingText(opts, it))
			if n, ok := opts.Lookup.Node(it.ID); ok && n.Description != "" {
				sb.WriteString(n.Description + "\n\n")
			}
			continue
		}
		mark := "[ ]"
		if opts.Selection != nil && opts.Selection.IsSelected(it.ID) {
			mark = "[x]"
		}
		fmt.Fprintf(&sb, "- %s %s `%s`\n", mark, displayName(opts.Lookup, it.ID), it.ID)
	}

	return sb.String(), nil
}

// SaveMarkdown writes GenerateMarkdown's output to opts.Path.
func SaveMarkdown(opts SnapshotOptions) error {
	content, err := GenerateMarkdown(opts)
	if err != nil {
		return err
	}
	return os.WriteFile(opts.Path, []byte(content), 0644)
}

func headingText(opts SnapshotOptions, it tree.FlatItem) string {
	name := displayName(opts.Lookup, it.ID)
	if opts.Selection == nil {
		return name
	}
	return checkGlyph(opts.Selection.CheckState(it.ID)) + " " + name
}

func displayName(l tree.Lookup, id model.ID) string {
	if n, ok := l.Node(id); ok && n.Name != "" {
		return n.Name
	}
	return string(id)
}

// mermaidTree draws parent edges of the projection. Shared leaves appear once
// with an edge from every projected parent.
func mermaidTree(opts SnapshotOptions) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	seen := make(map[model.ID]bool)
	edges := make(map[[2]model.ID]bool)
	for _, it := range opts.Items {
		if !seen[it.ID] {
			seen[it.ID] = true
			label := sanitizeMermaidText(displayName(opts.Lookup, it.ID))
			if it.IsParent() {
				fmt.Fprintf(&sb, "    %s[\"%s\"]\n", sanitizeMermaidID(string(it.ID)), label)
			} else {
				fmt.Fprintf(&sb, "    %s(\"%s\")\n", sanitizeMermaidID(string(it.ID)), label)
			}
		}
		if it.ParentID == "" {
			continue
		}
		e := [2]model.ID{it.ParentID, it.ID}
		if edges[e] {
			continue
		}
		edges[e] = true
		fmt.Fprintf(&sb, "    %s --> %s\n", sanitizeMermaidID(string(it.ParentID)), sanitizeMermaidID(string(it.ID)))
	}
	return sb.String()
}

func uniqueSlug(base string, counts map[string]int) string {
	if base == "" {
		base = "section"
	}
	if count, ok := counts[base]; ok {
		count++
		counts[base] = count
		return fmt.Sprintf("%s-%d", base, count)
	}
	counts[base] = 0
	return base
}

// createSlug creates a URL-friendly slug from heading text.
func createSlug(text string) string {
	slug := strings.ToLower(text)
	slug = slugNonAlphanumericRegex.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	return slug
}
