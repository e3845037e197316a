package classifier

import (
	"context"
	"strings"
	"time"

	"github.com/nearline/leadtriage/internal/domain"
)

// intentRule pairs an intent's keyword vocabulary with its default
// priority when no priority keyword is matched.
type intentRule struct {
	intent          domain.Intent
	keywords        []string
	defaultPriority domain.Priority
}

// RuleBased is the bundled reference classifier: a deterministic
// keyword-matching strategy requiring no external calls.
type RuleBased struct {
	intentRules    []intentRule
	priorityRules  []priorityRule
	actionRules    map[domain.Intent]map[domain.Priority]domain.NextAction
}

type priorityRule struct {
	priority domain.Priority
	keywords []string
}

// NewRuleBased constructs the reference classifier with its fixed
// vocabularies.
func NewRuleBased() *RuleBased {
	return &RuleBased{
		intentRules: []intentRule{
			{domain.IntentBuy, []string{"price", "pricing", "cost", "buy", "purchase", "order", "quote"}, domain.PriorityP1},
			{domain.IntentSupport, []string{"help", "broken", "error", "not working", "bug", "support", "issue"}, domain.PriorityP2},
			{domain.IntentJob, []string{"vacancy", "resume", "job", "career", "hiring", "cv"}, domain.PriorityP3},
			{domain.IntentSpam, []string{"http://", "https://", "www.", ".com", "advertisement", "spam"}, domain.PriorityP3},
		},
		priorityRules: []priorityRule{
			{domain.PriorityP0, []string{"urgent", "asap", "immediately", "critical"}},
			{domain.PriorityP1, []string{"soon", "shortly", "near future"}},
			{domain.PriorityP2, nil},
			{domain.PriorityP3, []string{"someday", "later", "no rush"}},
		},
		actionRules: map[domain.Intent]map[domain.Priority]domain.NextAction{
			domain.IntentBuy: {
				domain.PriorityP0: domain.NextActionCall,
				domain.PriorityP1: domain.NextActionEmail,
				domain.PriorityP2: domain.NextActionEmail,
				domain.PriorityP3: domain.NextActionQualify,
			},
			domain.IntentSupport: {
				domain.PriorityP0: domain.NextActionCall,
				domain.PriorityP1: domain.NextActionEmail,
				domain.PriorityP2: domain.NextActionEmail,
				domain.PriorityP3: domain.NextActionEmail,
			},
			domain.IntentJob: {
				domain.PriorityP0: domain.NextActionEmail,
				domain.PriorityP1: domain.NextActionEmail,
				domain.PriorityP2: domain.NextActionEmail,
				domain.PriorityP3: domain.NextActionIgnore,
			},
			domain.IntentSpam: {
				domain.PriorityP0: domain.NextActionIgnore,
				domain.PriorityP1: domain.NextActionIgnore,
				domain.PriorityP2: domain.NextActionIgnore,
				domain.PriorityP3: domain.NextActionIgnore,
			},
			domain.IntentOther: {
				domain.PriorityP0: domain.NextActionQualify,
				domain.PriorityP1: domain.NextActionQualify,
				domain.PriorityP2: domain.NextActionQualify,
				domain.PriorityP3: domain.NextActionIgnore,
			},
		},
	}
}

func (r *RuleBased) Name() string { return "rule_based" }

func (r *RuleBased) Triage(_ context.Context, note string) (domain.Classification, error) {
	noteLower := strings.ToLower(note)

	intent, rule := r.detectIntent(noteLower)
	priority := r.detectPriority(noteLower, rule)
	nextAction := r.nextAction(intent, priority)
	confidence := r.confidence(noteLower, intent, rule)
	tags := r.tags(noteLower)

	return domain.Classification{
		Intent:     intent,
		Priority:   priority,
		NextAction: nextAction,
		Confidence: confidence,
		Tags:       tags,
	}, nil
}

func (r *RuleBased) HealthCheck(_ context.Context) HealthStatus {
	return HealthStatus{Healthy: true, LastCheck: time.Now()}
}

// detectIntent returns the first matching intent rule in declaration
// order, or IntentOther (with a nil rule) if none match.
func (r *RuleBased) detectIntent(noteLower string) (domain.Intent, *intentRule) {
	for i := range r.intentRules {
		rule := &r.intentRules[i]
		if containsAny(noteLower, rule.keywords) {
			return rule.intent, rule
		}
	}
	return domain.IntentOther, nil
}

// detectPriority scans for priority keywords before falling back to the
// matched intent's default priority (or P2 for "other").
func (r *RuleBased) detectPriority(noteLower string, rule *intentRule) domain.Priority {
	for _, pr := range r.priorityRules {
		if containsAny(noteLower, pr.keywords) {
			return pr.priority
		}
	}
	if rule != nil {
		return rule.defaultPriority
	}
	return domain.PriorityP2
}

func (r *RuleBased) nextAction(intent domain.Intent, priority domain.Priority) domain.NextAction {
	if byPriority, ok := r.actionRules[intent]; ok {
		if action, ok := byPriority[priority]; ok {
			return action
		}
	}
	return domain.NextActionQualify
}

// confidence scales with the number of matched keywords for the detected
// intent, from 0.3 to a ceiling of 0.9; unknown intents are always 0.3.
func (r *RuleBased) confidence(noteLower string, intent domain.Intent, rule *intentRule) float64 {
	if rule == nil || intent == domain.IntentOther {
		return 0.3
	}
	matches := 0
	for _, kw := range rule.keywords {
		if strings.Contains(noteLower, kw) {
			matches++
		}
	}
	c := 0.3 + float64(matches)*0.2
	if c > 0.9 {
		c = 0.9
	}
	return c
}

func (r *RuleBased) tags(noteLower string) []string {
	var tags []string
	if containsAny(noteLower, []string{"urgent", "asap", "immediately"}) {
		tags = append(tags, "urgent")
	}
	if containsAny(noteLower, []string{"enterprise", "business"}) {
		tags = append(tags, "enterprise")
	}
	if containsAny(noteLower, []string{"trial", "demo"}) {
		tags = append(tags, "trial")
	}
	return tags
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
