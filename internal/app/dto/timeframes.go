package dto

type FrameChanges struct {
	FrameID  string `json:"frameId"`
	Deleted  int    `json:"deleted"`
	Updated  int    `json:"updated"`
	Inserted int    `json:"inserted"`
}

type BlockingResult struct {
	BlockingID string `json:"blockingId"`
	Start      string `json:"start,omitempty"`
	End        string `json:"end,omitempty"`
}
