package activity

// ServiceGetSummary is the request-reply service exposed by the activity module.
const ServiceGetSummary = "get-activity-summary"

// GetSummaryRequest asks for the activity summary. Limit caps the number of
// rooms returned; zero means all.
type GetSummaryRequest struct {
	Limit int `json:"limit"`
}

// GetSummaryResponse wraps Summary.
type GetSummaryResponse struct {
	Summary Summary `json:"summary"`
}
