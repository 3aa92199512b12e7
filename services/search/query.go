package search

import (
	"strings"

	"github.com/marathi-corpus/shodh/db/searchdb"
)

const wildcardMarker = "*"

// parse turns a raw query into a structured one. Parsing is two-tier: a
// structured attempt that understands quoted phrases and trailing-wildcard
// prefixes, and a plain bag-of-terms fallback for anything the structured
// tier cannot make sense of. User input is never rejected as malformed.
func (s *Service) parse(rawQuery string) searchdb.Query {
	if query, ok := s.parseStructured(rawQuery); ok {
		return query
	}
	return s.parsePlain(rawQuery)
}

func (s *Service) parseStructured(rawQuery string) (searchdb.Query, bool) {
	trimmed := strings.TrimSpace(rawQuery)

	if quotes := strings.Count(trimmed, `"`); quotes > 0 {
		wrapped := quotes == 2 && strings.HasPrefix(trimmed, `"`) && strings.HasSuffix(trimmed, `"`) && len(trimmed) > 1
		if !wrapped {
			return searchdb.Query{}, false
		}

		phrase := s.normalizer.Normalize(strings.Trim(trimmed, `"`))
		if phrase == "" {
			return searchdb.Query{}, false
		}
		return searchdb.Query{Raw: rawQuery, Phrase: phrase}, true
	}

	// Query text is normalized identically to index-time normalization.
	// Terms shorter than two characters stay in the query.
	var terms, prefixes []string
	for _, token := range strings.Fields(s.normalizer.Normalize(trimmed)) {
		if strings.HasSuffix(token, wildcardMarker) {
			prefix := strings.TrimRight(token, wildcardMarker)
			if prefix != "" {
				prefixes = append(prefixes, prefix)
			}
			continue
		}
		terms = append(terms, token)
	}

	return searchdb.Query{Raw: rawQuery, Terms: terms, Prefixes: prefixes}, true
}

// parsePlain treats the whole input as a bag of plain terms, with query
// syntax characters stripped.
func (s *Service) parsePlain(rawQuery string) searchdb.Query {
	cleaned := strings.NewReplacer(`"`, " ", wildcardMarker, " ").Replace(rawQuery)
	return searchdb.Query{
		Raw:   rawQuery,
		Terms: strings.Fields(s.normalizer.Normalize(cleaned)),
	}
}
