package kvdb

// Bucket names for the metadata store.
const (
	// RequestsBucket holds per-request build progress keyed by request id.
	RequestsBucket = "requests"
	// BuildsBucket holds corpus build statistics.
	BuildsBucket = "builds"
)

type DB interface {
	Set(bucket string, key string, value string) error
	Get(bucket string, key string) (string, error)
	Delete(bucket string, key string) error
	GetAllKeys(bucket string) ([]string, error)
	Close() error
}
