package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/eventscope/internal/event"
	"github.com/roach88/eventscope/internal/interval"
)

// AssertionError is returned when an assertion fails.
// It includes the final state to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Dump     string // Final log and intervals
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Dump != "" {
		fmt.Fprintf(&buf, "\nFinal state:\n")
		for _, line := range strings.Split(strings.TrimRight(e.Dump, "\n"), "\n") {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns
// the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("expect[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertLogLength:
		return assertLogLength(result, a)
	case AssertInterval:
		return assertInterval(result, a)
	case AssertIntervalCount:
		return assertIntervalCount(result, a)
	case AssertRejected:
		return assertRejected(result, a)
	case AssertAccepted:
		return assertAccepted(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertLogLength(result *Result, a Assertion) error {
	got := result.Processor.Log().Len()
	if got == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertLogLength,
		Expected: fmt.Sprintf("%d events", a.Count),
		Actual:   fmt.Sprintf("%d events", got),
		Dump:     result.Dump(),
	}
}

func assertAccepted(result *Result, a Assertion) error {
	if result.Accepted == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertAccepted,
		Expected: fmt.Sprintf("%d accepted", a.Count),
		Actual:   fmt.Sprintf("%d accepted, %d rejected", result.Accepted, len(result.Rejections)),
	}
}

// assertInterval checks for an interval of the category about the subject
// starting at Start, and that it ends at End or is pending.
func assertInterval(result *Result, a Assertion) error {
	category, _ := interval.ParseCategory(a.Category)
	start := event.Timestamp(*a.Start)

	want := fmt.Sprintf("%s(%s)[%d..pending]", a.Category, a.Subject, start)
	if a.End != nil {
		want = fmt.Sprintf("%s(%s)[%d..%d]", a.Category, a.Subject, start, *a.End)
	}

	var candidates []string
	for _, iv := range result.Processor.Index().Intervals(category) {
		if iv.Subject() != a.Subject {
			continue
		}
		candidates = append(candidates, iv.String())
		if iv.StartTime() != start {
			continue
		}
		if a.End == nil && iv.Pending() {
			return nil
		}
		if a.End != nil && !iv.Pending() && iv.EndTime() == event.Timestamp(*a.End) {
			return nil
		}
	}

	actual := "no interval about " + a.Subject
	if len(candidates) > 0 {
		actual = strings.Join(candidates, ", ")
	}
	return &AssertionError{
		Type:     AssertInterval,
		Expected: want,
		Actual:   actual,
		Dump:     result.Dump(),
	}
}

func assertIntervalCount(result *Result, a Assertion) error {
	category, _ := interval.ParseCategory(a.Category)

	got := 0
	for _, iv := range result.Processor.Index().Intervals(category) {
		if a.Subject == "" || iv.Subject() == a.Subject {
			got++
		}
	}
	if got == a.Count {
		return nil
	}

	what := a.Category
	if a.Subject != "" {
		what += " about " + a.Subject
	}
	return &AssertionError{
		Type:     AssertIntervalCount,
		Expected: fmt.Sprintf("%d %s intervals", a.Count, what),
		Actual:   fmt.Sprintf("%d", got),
		Dump:     result.Dump(),
	}
}

func assertRejected(result *Result, a Assertion) error {
	rej, ok := result.Rejected(a.Index)
	if !ok {
		return &AssertionError{
			Type:     AssertRejected,
			Expected: fmt.Sprintf("event %d rejected", a.Index),
			Actual:   "accepted",
		}
	}
	if a.Code != "" && string(rej.Code) != a.Code {
		return &AssertionError{
			Type:     AssertRejected,
			Expected: fmt.Sprintf("event %d rejected with %s", a.Index, a.Code),
			Actual:   fmt.Sprintf("rejected with %s: %v", rej.Code, rej.Err),
		}
	}
	return nil
}
