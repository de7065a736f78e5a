package model

// ResultStatus tells the calling model how to treat a QueryResult.
type ResultStatus string

const (
	ResultOK        ResultStatus = "ok"
	ResultEmpty     ResultStatus = "empty"     // nothing matched, report "no data"
	ResultAmbiguous ResultStatus = "ambiguous" // several vessels matched, ask a follow-up question
	ResultInvalid   ResultStatus = "invalid"   // the request was rejected
)

// ResultStatuses lists every status in declaration order.
var ResultStatuses = []ResultStatus{ResultOK, ResultEmpty, ResultAmbiguous, ResultInvalid}

// QueryResult is the resolver's answer to a QueryIntent.
type QueryResult struct {
	Status    ResultStatus   `json:"resultStatus"`
	Records   []VesselRecord `json:"records"`
	Truncated bool           `json:"truncated"`
	Total     int            `json:"total"` // matches before the cap was applied
	Message   string         `json:"message,omitempty"`
}

// EmptyResult returns a result with no records.
func EmptyResult() *QueryResult {
	return &QueryResult{
		Status:  ResultEmpty,
		Records: []VesselRecord{},
	}
}
