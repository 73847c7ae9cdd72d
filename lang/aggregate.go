package lang

import (
	"context"
	"log/slog"
	"math"
	"slices"
)

// Aggregate computes a value from the evaluated arguments of a call. A call
// with a single List argument passes the list elements as args.
type Aggregate func(ctx context.Context, args []Value) (Value, error)

func builtinAggregates() map[string]Aggregate {
	return map[string]Aggregate{
		"SUM":   aggSum,
		"AVG":   aggAvg,
		"MIN":   aggMin,
		"MAX":   aggMax,
		"COUNT": aggCount,
	}
}

func aggregateNames(m map[string]Aggregate) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// numeric checks that every argument is a number and reports whether all of
// them are Ints.
func numeric(args []Value) (allInt bool, err error) {
	allInt = true

	for i, a := range args {
		switch a.Kind() {
		case KindInt:
		case KindFloat:
			allInt = false
		default:
			return false, ErrArgument.With(
				slog.String("issue", "non-numeric argument"),
				slog.Int("position", i),
				slog.String("kind", a.Kind().String()),
			)
		}
	}

	return allInt, nil
}

func nonEmpty(args []Value) error {
	if len(args) == 0 {
		return ErrArgument.With(slog.String("issue", "no values"))
	}

	return nil
}

func aggSum(_ context.Context, args []Value) (Value, error) {
	allInt, err := numeric(args)
	if err != nil {
		return Value{}, err
	}

	if allInt {
		var sum int64

		for _, a := range args {
			next, ok := checkedInt(TokenPlus, sum, a.i)
			if !ok {
				return Value{}, ErrArithmetic.With(
					slog.String("function", "SUM"),
					slog.String("issue", "overflow"),
				)
			}

			sum = next
		}

		return Int(sum), nil
	}

	return floatSum("SUM", args)
}

// floatSum adds args as floats. Infinite results are reported as overflow.
func floatSum(name string, args []Value) (Value, error) {
	var sum float64

	for _, a := range args {
		f, _ := a.AsNumber()
		sum += f
	}

	if math.IsInf(sum, 0) {
		return Value{}, ErrArithmetic.With(
			slog.String("function", name),
			slog.String("issue", "overflow"),
		)
	}

	return Float(sum), nil
}

// aggAvg sums in floating point, so integer arguments whose sum exceeds the
// int64 range still average correctly.
func aggAvg(_ context.Context, args []Value) (Value, error) {
	if err := nonEmpty(args); err != nil {
		return Value{}, err
	}

	if _, err := numeric(args); err != nil {
		return Value{}, err
	}

	sum, err := floatSum("AVG", args)
	if err != nil {
		return Value{}, err
	}

	f, _ := sum.AsFloat()

	return Float(f / float64(len(args))), nil
}

func aggMin(_ context.Context, args []Value) (Value, error) {
	return extremum(args, func(a, b float64) bool { return a < b })
}

func aggMax(_ context.Context, args []Value) (Value, error) {
	return extremum(args, func(a, b float64) bool { return a > b })
}

// extremum returns the argument preferred by better, keeping its kind.
func extremum(args []Value, better func(a, b float64) bool) (Value, error) {
	if err := nonEmpty(args); err != nil {
		return Value{}, err
	}

	if _, err := numeric(args); err != nil {
		return Value{}, err
	}

	best := args[0]
	bf, _ := best.AsNumber()

	for _, a := range args[1:] {
		if f, _ := a.AsNumber(); better(f, bf) {
			best, bf = a, f
		}
	}

	return best, nil
}

// aggCount counts its arguments. A single record set argument counts its
// records.
func aggCount(ctx context.Context, args []Value) (Value, error) {
	if len(args) == 1 && args[0].Kind() == KindRecordSet {
		n, err := args[0].rs.Len(ctx)
		if err != nil {
			return Value{}, ErrStore.Wrap(err)
		}

		return Int(int64(n)), nil
	}

	return Int(int64(len(args))), nil
}
