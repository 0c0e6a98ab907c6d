package model

import "time"

// TrialReport records one fitness evaluation during a search.
type TrialReport struct {
	Fingerprint string
	Fitness     float64
	Solution    bool
	Cached      bool
}

// RepairResult is the final artifact of one run.
type RepairResult struct {
	RunID      string        `yaml:"run_id"`
	Solved     bool          `yaml:"solved"`
	Fitness    float64       `yaml:"fitness"`
	History    string        `yaml:"history,omitempty"`
	Diff       string        `yaml:"diff,omitempty"`
	Trials     int           `yaml:"trials"`
	Elapsed    time.Duration `yaml:"elapsed"`
	Generation int           `yaml:"generation,omitempty"`
	Deme       int           `yaml:"deme,omitempty"`
}
