package validation

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	playground "github.com/go-playground/validator/v10"
)

// Built-in rule ids.
const (
	RuleNotEmpty  = "notEmpty"
	RuleEmail     = "email"
	RuleNumeric   = "numeric"
	RuleMinLength = "minLength"
	RuleMaxLength = "maxLength"
	RuleBarcode   = "barcode"
	RuleCustom    = "custom"
)

const emailTag = "email"

var (
	barcodePattern = regexp.MustCompile(`^\d{8,14}$`)
	tagValidator   = playground.New()
)

var builtinRules = map[string]RuleFunc{
	RuleNotEmpty:  notEmpty,
	RuleEmail:     email,
	RuleNumeric:   numeric,
	RuleMinLength: minLength,
	RuleMaxLength: maxLength,
	RuleBarcode:   barcode,
	RuleCustom:    custom,
}

// stringify renders a value the way the rules compare it; nil renders as "".
func stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []byte:
		return string(typed)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(value)
	}
}

func notEmpty(_ context.Context, value any, _ map[string]any, _ []any) (bool, error) {
	if value == nil {
		return false, nil
	}

	return strings.TrimSpace(stringify(value)) != "", nil
}

func email(_ context.Context, value any, _ map[string]any, _ []any) (bool, error) {
	return tagValidator.Var(stringify(value), emailTag) == nil, nil
}

func numeric(_ context.Context, value any, _ map[string]any, _ []any) (bool, error) {
	switch reflect.ValueOf(value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true, nil
	case reflect.Float32, reflect.Float64:
		f := reflect.ValueOf(value).Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0), nil
	case reflect.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(reflect.ValueOf(value).String()), 64)
		return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0), nil
	default:
		return false, nil
	}
}

func minLength(_ context.Context, value any, _ map[string]any, params []any) (bool, error) {
	bound, err := lengthParam(params)
	if err != nil {
		return false, err
	}

	return utf8.RuneCountInString(stringify(value)) >= bound, nil
}

func maxLength(_ context.Context, value any, _ map[string]any, params []any) (bool, error) {
	bound, err := lengthParam(params)
	if err != nil {
		return false, err
	}

	return utf8.RuneCountInString(stringify(value)) <= bound, nil
}

func barcode(_ context.Context, value any, _ map[string]any, _ []any) (bool, error) {
	return barcodePattern.MatchString(stringify(value)), nil
}

// custom expects a func(any) bool or a Predicate as its single param.
func custom(ctx context.Context, value any, data map[string]any, params []any) (bool, error) {
	if len(params) != 1 {
		return false, fmt.Errorf("%w: custom expects one function param", ErrInvalidRuleParams)
	}

	switch fn := params[0].(type) {
	case func(any) bool:
		return fn(value), nil
	case Predicate:
		return fn(ctx, value, data)
	case func(context.Context, any, map[string]any) (bool, error):
		return fn(ctx, value, data)
	default:
		return false, fmt.Errorf("%w: custom param is %T", ErrInvalidRuleParams, params[0])
	}
}

func lengthParam(params []any) (int, error) {
	if len(params) != 1 {
		return 0, fmt.Errorf("%w: length rules expect one integer param", ErrInvalidRuleParams)
	}

	rv := reflect.ValueOf(params[0])
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return int(rv.Float()), nil
	default:
		return 0, fmt.Errorf("%w: length param is %T", ErrInvalidRuleParams, params[0])
	}
}
