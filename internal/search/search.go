package search

// ResultType identifies the kind of journal entry in a search result.
type ResultType string

const (
	ResultDraft   ResultType = "draft"
	ResultCheckIn ResultType = "checkin"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type       ResultType `json:"type"`
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Snippet    string     `json:"snippet"`
	FormKey    string     `json:"formKey,omitempty"`
	RecordedAt int64      `json:"recordedAt,omitempty"`
}

// Query describes a search request. UserID is required; every backend
// scopes hits to the owner.
type Query struct {
	UserID     string
	Text       string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push journal entries into a search index.
type Indexer interface {
	IndexDraft(d DraftRecord) error
	IndexCheckIn(c CheckInRecord) error
	IndexDrafts(drafts []DraftRecord) error
	IndexCheckIns(checkIns []CheckInRecord) error
	DeleteDraft(id string) error
}

// DraftRecord is the data we index for a saved form draft.
type DraftRecord struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	FormKey   string `json:"formKey"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	UpdatedAt int64  `json:"updatedAt"`
}

// CheckInRecord is the data we index for a daily check-in.
type CheckInRecord struct {
	ID             string   `json:"id"`
	UserID         string   `json:"userId"`
	Need           string   `json:"need"`
	Emotions       []string `json:"emotions"`
	AlignmentScore int      `json:"alignmentScore"`
	RecordedAt     int64    `json:"recordedAt"`
}

// DraftID is the index key for one user's draft of one form.
func DraftID(userID, formKey string) string {
	return userID + "__" + formKey
}

const defaultLimit = 20

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > 100 {
		return 100
	}
	return limit
}
