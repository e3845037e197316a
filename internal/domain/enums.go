package domain

import (
	"encoding/json"
	"fmt"
)

// Intent classifies why a lead reached out.
type Intent string

const (
	IntentBuy     Intent = "buy"
	IntentSupport Intent = "support"
	IntentSpam    Intent = "spam"
	IntentJob     Intent = "job"
	IntentOther   Intent = "other"
)

func (i Intent) Valid() bool {
	switch i {
	case IntentBuy, IntentSupport, IntentSpam, IntentJob, IntentOther:
		return true
	}
	return false
}

func (i Intent) MarshalJSON() ([]byte, error) {
	if !i.Valid() {
		return nil, fmt.Errorf("domain: invalid intent %q", string(i))
	}
	return json.Marshal(string(i))
}

func (i *Intent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v := Intent(s)
	if !v.Valid() {
		return fmt.Errorf("domain: invalid intent %q", s)
	}
	*i = v
	return nil
}

// Priority ranks how quickly a lead needs attention, P0 being the most
// urgent.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityP0, PriorityP1, PriorityP2, PriorityP3:
		return true
	}
	return false
}

func (p Priority) MarshalJSON() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("domain: invalid priority %q", string(p))
	}
	return json.Marshal(string(p))
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v := Priority(s)
	if !v.Valid() {
		return fmt.Errorf("domain: invalid priority %q", s)
	}
	*p = v
	return nil
}

// NextAction is the recommended follow-up for a lead.
type NextAction string

const (
	NextActionCall    NextAction = "call"
	NextActionEmail   NextAction = "email"
	NextActionIgnore  NextAction = "ignore"
	NextActionQualify NextAction = "qualify"
)

func (n NextAction) Valid() bool {
	switch n {
	case NextActionCall, NextActionEmail, NextActionIgnore, NextActionQualify:
		return true
	}
	return false
}

func (n NextAction) MarshalJSON() ([]byte, error) {
	if !n.Valid() {
		return nil, fmt.Errorf("domain: invalid next_action %q", string(n))
	}
	return json.Marshal(string(n))
}

func (n *NextAction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v := NextAction(s)
	if !v.Valid() {
		return fmt.Errorf("domain: invalid next_action %q", s)
	}
	*n = v
	return nil
}
