package searchdb

type DB interface {
	Build(documents []Document) error
	Reload() error
	Search(query Query, limit int, offset int) (*Response, error)
	SearchExact(phrase string, limit int) (*Response, error)
	GetDocument(docID int) (*Document, error)
	Lookup(term string) ([]Posting, error)
	DocCount() (uint64, error)
	IsLoaded() bool
	Close() error
}
