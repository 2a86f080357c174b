package validation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrUnknownRule is returned by Validate when a rule references an id that is neither built in nor registered.
	ErrUnknownRule = errors.New("unknown validation rule")

	// ErrInvalidRuleParams is returned by Validate when a rule receives params it cannot use.
	ErrInvalidRuleParams = errors.New("invalid validation rule params")

	// ErrPredicateFailed is returned, joined with the cause, when a predicate returns an error.
	ErrPredicateFailed = errors.New("validation predicate failed")
)

const defaultMessagePrefix = "Invalid "

// Errors maps a field to its failure messages in rule order.
type Errors map[string][]string

// Error renders the failures with fields in sorted order.
func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(e[field], ", "))
	}

	return "validation errors: " + strings.Join(parts, "; ")
}

// Predicate checks one value. data is the complete record being validated.
// A Predicate may block; it is awaited before the next rule runs.
type Predicate func(ctx context.Context, value any, data map[string]any) (bool, error)

// RuleFunc is the signature of named rules: a Predicate that also receives the rule's params.
type RuleFunc func(ctx context.Context, value any, data map[string]any, params []any) (bool, error)

// Rule is one registered check for a field.
type Rule struct {
	Field         string
	RuleID        string
	Predicate     Predicate
	Message       string
	Params        []any
	StopOnFailure bool
}

// RuleOption configures a Rule when it is added.
type RuleOption func(*Rule)

// WithMessage sets the message reported when the rule fails.
func WithMessage(message string) RuleOption {
	return func(r *Rule) {
		r.Message = message
	}
}

// WithParams sets the rule's params, e.g. the bound of minLength.
func WithParams(params ...any) RuleOption {
	return func(r *Rule) {
		r.Params = params
	}
}

// StopOnFailure halts the remaining rules of the same field when this rule fails.
// Rules of other fields still run.
func StopOnFailure() RuleOption {
	return func(r *Rule) {
		r.StopOnFailure = true
	}
}

// Validator holds the rules of one Model, grouped by field in registration order.
type Validator struct {
	mu     sync.RWMutex
	fields []string
	rules  map[string][]Rule
	custom map[string]RuleFunc
}

// New creates a Validator without rules.
func New() *Validator {
	return &Validator{
		rules:  make(map[string][]Rule),
		custom: make(map[string]RuleFunc),
	}
}

// Add appends a named rule for field.
func (v *Validator) Add(field, ruleID string, options ...RuleOption) *Validator {
	return v.add(Rule{Field: field, RuleID: ruleID}, options)
}

// AddFunc appends a predicate rule for field.
func (v *Validator) AddFunc(field string, predicate Predicate, options ...RuleOption) *Validator {
	return v.add(Rule{Field: field, RuleID: RuleCustom, Predicate: predicate}, options)
}

// RegisterRule makes a named rule available to Add. It replaces a built-in rule of the same id.
func (v *Validator) RegisterRule(ruleID string, fn RuleFunc) *Validator {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.custom[ruleID] = fn

	return v
}

func (v *Validator) add(rule Rule, options []RuleOption) *Validator {
	for _, option := range options {
		option(&rule)
	}

	if rule.Message == "" {
		rule.Message = defaultMessagePrefix + rule.RuleID
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.rules[rule.Field]; !ok {
		v.fields = append(v.fields, rule.Field)
	}
	v.rules[rule.Field] = append(v.rules[rule.Field], rule)

	return v
}

// Fields returns the validated fields in registration order.
func (v *Validator) Fields() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return slices.Clone(v.fields)
}

// Rules returns the rules of field in registration order.
func (v *Validator) Rules(field string) []Rule {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return slices.Clone(v.rules[field])
}

// Validate runs every rule against data and returns the failures, or nil when all rules pass.
//
// Fields are evaluated in registration order, and rules within a field in registration order.
// A failing StopOnFailure rule skips the remaining rules of its field only.
// A predicate error or an unknown rule aborts validation and is returned as error.
func (v *Validator) Validate(ctx context.Context, data map[string]any) (Errors, error) {
	v.mu.RLock()
	fields := slices.Clone(v.fields)
	rules := make(map[string][]Rule, len(v.rules))
	for field, fieldRules := range v.rules {
		rules[field] = slices.Clone(fieldRules)
	}
	v.mu.RUnlock()

	var failures Errors

	for _, field := range fields {
		value := data[field]

		for _, rule := range rules[field] {
			ok, err := v.check(ctx, rule, value, data)
			if err != nil {
				return nil, fmt.Errorf("field %q, rule %q: %w", field, rule.RuleID, err)
			}

			if ok {
				continue
			}

			if failures == nil {
				failures = make(Errors)
			}
			failures[field] = append(failures[field], rule.Message)

			if rule.StopOnFailure {
				break
			}
		}
	}

	return failures, nil
}

func (v *Validator) check(ctx context.Context, rule Rule, value any, data map[string]any) (bool, error) {
	if rule.Predicate != nil {
		ok, err := rule.Predicate(ctx, value, data)
		if err != nil {
			return false, errors.Join(ErrPredicateFailed, err)
		}

		return ok, nil
	}

	v.mu.RLock()
	fn, ok := v.custom[rule.RuleID]
	v.mu.RUnlock()

	if !ok {
		fn, ok = builtinRules[rule.RuleID]
	}

	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownRule, rule.RuleID)
	}

	passed, err := fn(ctx, value, data, rule.Params)
	if err != nil && !errors.Is(err, ErrInvalidRuleParams) {
		return false, errors.Join(ErrPredicateFailed, err)
	}

	return passed, err
}
