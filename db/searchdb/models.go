package searchdb

// Document is one corpus page. Doc ids are assigned monotonically at build
// time, in corpus enumeration order, and are never reused.
type Document struct {
	DocID          int    `json:"doc_id"`
	FilePath       string `json:"file_path"`
	PageNumber     *int   `json:"page_number"`
	Content        string `json:"content"`
	ContentPreview string `json:"content_preview"`
	CharCount      int    `json:"char_count"`
}

// Query is a parsed search query. Terms, Prefixes and Phrase hold normalized
// text; Raw keeps the original user input for fuzzy comparison downstream.
type Query struct {
	Raw      string
	Terms    []string
	Prefixes []string
	Phrase   string
}

// IsEmpty reports whether the query matches nothing by construction.
func (q Query) IsEmpty() bool {
	return len(q.Terms) == 0 && len(q.Prefixes) == 0 && q.Phrase == ""
}

// Result is one hit with the index's relevance score attached.
type Result struct {
	Document
	Score float64 `json:"score"`
}

// Response is the outcome of one index evaluation, before fuzzy reranking.
type Response struct {
	Results    []Result `json:"results"`
	Total      uint64   `json:"total"`
	MaxScore   float64  `json:"max_score"`
	SearchTime string   `json:"search_time"`
}

// Posting is one entry of a term's posting list.
type Posting struct {
	DocID     int
	Frequency int
}
