package domain

// Vote records that a user has voted for a request. The (RequestID, UserID)
// pair is unique in the store; the row exists only to prevent double counting
// and has no lifecycle beyond create and delete.
type Vote struct {
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id"`
}

// VoteResult is the outcome of a cast-vote attempt.
type VoteResult struct {
	// Accepted is false when the user had already voted for the request.
	Accepted bool `json:"accepted"`
	// Votes is the counter value after the attempt, when known.
	Votes int `json:"votes"`
}
