package types

import "depthmeter-go/internal/stats"

type Reading struct {
	Type        string  `json:"type"`
	FrameID     int     `json:"frame_id"`
	Centimeters float32 `json:"cm"`
}

type Progress struct {
	Type      string  `json:"type"`
	Collected int     `json:"collected"`
	Total     int     `json:"total"`
	Last      float32 `json:"last_cm"`
}

type Result struct {
	Type     string        `json:"type"`
	Sequence int           `json:"sequence"`
	Finished string        `json:"finished"`
	Summary  stats.Summary `json:"summary"`
}

type Alert struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
}
