package model

// JobStatus is the lifecycle state of an indexing job
type JobStatus string

const (
	JobPending JobStatus = "PENDING"
	JobStarted JobStatus = "STARTED"
	JobSuccess JobStatus = "SUCCESS"
	JobFailure JobStatus = "FAILURE"
)

// Terminal reports whether the job has finished
func (s JobStatus) Terminal() bool {
	return s == JobSuccess || s == JobFailure
}

// IndexRequest carries base64 encoded image files (jpeg, png, gif or webp)
type IndexRequest struct {
	Images     []string `json:"images" binding:"required"`
	TrackingID *int     `json:"tracking_id,omitempty"`
}

// IndexingJob reports the state of a submitted indexing job
type IndexingJob struct {
	JobID      string    `json:"job_id"`
	Status     JobStatus `json:"status"`
	Submitted  int       `json:"submitted"`
	Indexed    int       `json:"indexed"`
	Duplicates int       `json:"duplicates"`
	Error      string    `json:"error,omitempty"`
	TrackingID *int      `json:"tracking_id,omitempty"`
}

// SearchRequest asks for the nearest stored objects of each query text
type SearchRequest struct {
	Queries    []string `json:"queries" binding:"required"`
	NSimilar   int      `json:"n_similar"`
	TrackingID *int     `json:"tracking_id,omitempty"`
}

// SearchResult holds, per query and in query order, the matching images as
// base64 PNG and the matching texts
type SearchResult struct {
	Queries    []string   `json:"queries"`
	Images     [][]string `json:"images"`
	Texts      [][]string `json:"texts"`
	TrackingID *int       `json:"tracking_id,omitempty"`
}
