package types

import "time"

// Fault is one recovered computation failure.
type Fault struct {
	Node  string    `yaml:"node" json:"node"`
	Tick  int       `yaml:"tick" json:"tick"`
	Bar   int       `yaml:"bar" json:"bar"`
	Time  time.Time `yaml:"time" json:"time"`
	Phase Phase     `yaml:"phase" json:"phase"`
	Err   string    `yaml:"error" json:"error"`
}
