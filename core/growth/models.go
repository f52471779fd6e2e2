// Package growth scores the quarterly spiritual growth program.
// Nothing here is persisted: the calculator is a pure function of its Input.
package growth

import (
	"github.com/minuum/qr-prayer-check/core"
)

const (
	TierS    = "S"
	TierPass = "pass"
	TierFail = "fail"

	passScore = 70
	sScore    = 90
)

// Input holds what a member reports for the quarter.
type Input struct {
	Absences   int `json:"absences" validate:"min=0,max=13"`
	Bible      int `json:"bible" validate:"bible"`
	Prayer     int `json:"prayer" validate:"prayer"`
	Evangelism int `json:"evangelism" validate:"min=0,max=5"`
	Service    int `json:"service" validate:"grade"`
	Special    int `json:"special" validate:"grade"`
}

// DefaultInput is the calculator's initial state.
func DefaultInput() Input {
	return Input{Bible: 20, Prayer: 15, Service: 7, Special: 7}
}

func (in Input) Validate() error { return core.Validate.Struct(in) }

type Tier struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Reward      int    `json:"reward"`
	RewardText  string `json:"reward_text,omitempty"`
}

type Score struct {
	Attendance float64 `json:"attendance"`
	Bible      int     `json:"bible"`
	Prayer     int     `json:"prayer"`
	Evangelism int     `json:"evangelism"`
	Service    int     `json:"service"`
	Special    int     `json:"special"`
	Total      int     `json:"total"`
	Tier       Tier    `json:"tier"`
}

type Criterion struct {
	Title       string `json:"title"`
	Points      int    `json:"points"`
	Description string `json:"description"`
}

type Reward struct {
	Title      string `json:"title"`
	Condition  string `json:"condition"`
	Amount     int    `json:"amount"`
	AmountText string `json:"amount_text"`
}

type Criteria struct {
	Criteria []Criterion `json:"criteria"`
	Rewards  []Reward    `json:"rewards"`
	Special  []Criterion `json:"special"`
}
