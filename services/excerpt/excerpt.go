// Package excerpt assembles readable context around a search match, stitching
// lines from adjacent page files when the match sits near a page boundary.
package excerpt

import (
	"strings"

	"github.com/marathi-corpus/shodh/corpus"
	"github.com/marathi-corpus/shodh/logger"
)

// minAnchorTermLength filters query terms used to locate the matching line;
// shorter terms are too common to anchor a match reliably.
const minAnchorTermLength = 2

// Context is the assembled excerpt around a match.
type Context struct {
	// Content is the excerpt text, one line per source line, with marker
	// lines around any lines pulled from adjacent page files.
	Content string `json:"content"`
	// MatchLine is the anchor line's index within the matched page.
	MatchLine int `json:"match_line"`
	// Sources lists every file contributing at least one line, in
	// traversal order. The matched page is always present.
	Sources     []string `json:"sources"`
	LinesBefore int      `json:"lines_before"`
	LinesAfter  int      `json:"lines_after"`
}

type Service struct {
	logger logger.Logger
	pages  corpus.PageStore
}

func New(logger logger.Logger, pages corpus.PageStore) *Service {
	return &Service{
		logger: logger,
		pages:  pages,
	}
}

// Extract locates the first line of fileName matching any query term and
// returns it with up to contextLines lines of context on each side. When the
// page itself has too few lines before or after the anchor, the shortfall is
// pulled from the previous or next page file. A missing adjacent file is
// never an error; the window is simply shorter than requested.
func (s *Service) Extract(fileName string, query string, contextLines int) Context {
	lines, ok := s.pages.ReadLines(fileName)
	if !ok || len(lines) == 0 {
		s.logger.Warn("page file unreadable or empty", "file", fileName)
		return Context{Sources: []string{fileName}}
	}

	anchor, found := findAnchorLine(lines, anchorTerms(query))
	if !found {
		// No anchor still yields a usable excerpt: the whole page.
		return Context{
			Content:    strings.Join(lines, "\n"),
			MatchLine:  0,
			Sources:    []string{fileName},
			LinesAfter: len(lines) - 1,
		}
	}

	var parts []string
	var sources []string

	beforeShortfall := contextLines - anchor
	if beforeShortfall > 0 {
		if prevName, prevLines := s.adjacentLines(fileName, -1); len(prevLines) > 0 {
			if beforeShortfall < len(prevLines) {
				prevLines = prevLines[len(prevLines)-beforeShortfall:]
			}
			parts = append(parts, "[← "+prevName+"]")
			parts = append(parts, prevLines...)
			parts = append(parts, "---")
			sources = append(sources, prevName)
		}
	}

	start := anchor - contextLines
	if start < 0 {
		start = 0
	}
	parts = append(parts, lines[start:anchor+1]...)
	sources = append(sources, fileName)

	end := anchor + contextLines + 1
	if end > len(lines) {
		end = len(lines)
	}
	parts = append(parts, lines[anchor+1:end]...)

	afterShortfall := contextLines - (len(lines) - anchor - 1)
	if afterShortfall > 0 {
		if nextName, nextLines := s.adjacentLines(fileName, 1); len(nextLines) > 0 {
			if afterShortfall < len(nextLines) {
				nextLines = nextLines[:afterShortfall]
			}
			parts = append(parts, "---")
			parts = append(parts, "[→ "+nextName+"]")
			parts = append(parts, nextLines...)
			sources = append(sources, nextName)
		}
	}

	return Context{
		Content:     strings.Join(parts, "\n"),
		MatchLine:   anchor,
		Sources:     sources,
		LinesBefore: anchor - start,
		LinesAfter:  end - anchor - 1,
	}
}

func (s *Service) adjacentLines(fileName string, offset int) (string, []string) {
	adjacentName := corpus.AdjacentPageFilename(fileName, offset)
	if adjacentName == "" {
		return "", nil
	}
	lines, ok := s.pages.ReadLines(adjacentName)
	if !ok {
		return adjacentName, nil
	}
	return adjacentName, lines
}

// anchorTerms splits the query into terms long enough to anchor a match; when
// none qualify the whole query string is the single term.
func anchorTerms(query string) []string {
	var terms []string
	for _, term := range strings.Fields(query) {
		if len([]rune(term)) >= minAnchorTermLength {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		terms = []string{query}
	}
	return terms
}

// findAnchorLine returns the index of the first line containing any term,
// case-insensitively.
func findAnchorLine(lines []string, terms []string) (int, bool) {
	for i, line := range lines {
		lowered := strings.ToLower(line)
		for _, term := range terms {
			if strings.Contains(lowered, strings.ToLower(term)) {
				return i, true
			}
		}
	}
	return 0, false
}
