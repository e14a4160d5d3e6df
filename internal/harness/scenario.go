package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/eventscope/internal/event"
	"github.com/roach88/eventscope/internal/interval"
	"github.com/roach88/eventscope/internal/processor"
	"github.com/roach88/eventscope/internal/testutil"
)

// Scenario is a list of input events and expectations about their outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Session is the fixed runner session id.
	// If empty, defaults to "test-session".
	Session string `yaml:"session,omitempty"`

	// Events are fed to the processor in order.
	Events []EventSpec `yaml:"events"`

	// Expect is evaluated after every event has been processed.
	Expect []Assertion `yaml:"expect,omitempty"`
}

// EventSpec is the YAML form of one input event. Which fields apply
// depends on Kind.
type EventSpec struct {
	Kind   string `yaml:"kind"`
	TS     *int64 `yaml:"ts,omitempty"`
	Source string `yaml:"source,omitempty"`

	// ID is the node, edge, activity, or message id.
	ID string `yaml:"id,omitempty"`

	// Node is the owning node of activity and message events.
	Node string `yaml:"node,omitempty"`

	// Edge and Parent apply to msg_send.
	Edge   string `yaml:"edge,omitempty"`
	Parent string `yaml:"parent,omitempty"`

	// Tail, Head, and Directed apply to edge_create.
	Tail     string `yaml:"tail,omitempty"`
	Head     string `yaml:"head,omitempty"`
	Directed bool   `yaml:"directed,omitempty"`

	Props map[string]any `yaml:"props,omitempty"`
}

// Assertion is one expectation about the processed scenario.
type Assertion struct {
	// Type selects the assertion:
	// - "log_length": the log holds exactly Count events
	// - "interval": an interval of Category about Subject starts at Start
	//   and ends at End (End omitted means still pending)
	// - "interval_count": Category holds exactly Count intervals, only
	//   those about Subject if it is set
	// - "rejected": input event Index was rejected, with Code if set
	// - "accepted": exactly Count input events were accepted
	Type string `yaml:"type"`

	Count    int    `yaml:"count,omitempty"`
	Category string `yaml:"category,omitempty"`
	Subject  string `yaml:"subject,omitempty"`
	Start    *int64 `yaml:"start,omitempty"`
	End      *int64 `yaml:"end,omitempty"`
	Index    int    `yaml:"index,omitempty"`
	Code     string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertLogLength     = "log_length"
	AssertInterval      = "interval"
	AssertIntervalCount = "interval_count"
	AssertRejected      = "rejected"
	AssertAccepted      = "accepted"
)

// Input is one scenario event ready to submit. Err is set instead of
// Event when the EventSpec could not be turned into an event.
type Input struct {
	Index int
	Kind  string
	Event event.Event
	Err   error
}

// UnknownKindError is reported for an event spec whose kind is not one of
// the ten event kinds.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown event kind %q", e.Kind)
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "expects:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// FindScenarios returns path itself if it is a file, or every *.yaml and
// *.yml file directly inside it, sorted.
func FindScenarios(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(path, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to glob %s: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	return files, nil
}

// Inputs converts the scenario's event specs into events, stamping
// missing timestamps from a deterministic clock.
func (s *Scenario) Inputs() []Input {
	clock := testutil.NewDeterministicClock(1)
	inputs := make([]Input, len(s.Events))

	for i, spec := range s.Events {
		at := clock.Next()
		if spec.TS != nil {
			at = event.Timestamp(*spec.TS)
			clock.Set(at)
		}

		in := Input{Index: i, Kind: spec.Kind}
		in.Event, in.Err = spec.toEvent(at, fmt.Sprintf("%s[%d]", s.Name, i))
		inputs[i] = in
	}
	return inputs
}

func (spec EventSpec) toEvent(at event.Timestamp, defaultSource string) (event.Event, error) {
	kind, ok := event.ParseKind(spec.Kind)
	if !ok {
		return nil, &UnknownKindError{Kind: spec.Kind}
	}

	props, err := convertProps(spec.Props)
	if err != nil {
		return nil, err
	}

	source := spec.Source
	if source == "" {
		source = defaultSource
	}
	h := event.Header{At: at, Origin: source}

	switch kind {
	case event.KindNodeCreate:
		return &event.NodeCreate{Header: h, ID: spec.ID, Props: props}, nil
	case event.KindNodeDelete:
		return &event.NodeDelete{Header: h, ID: spec.ID}, nil
	case event.KindNodeProps:
		return &event.NodeProps{Header: h, ID: spec.ID, Props: props}, nil
	case event.KindEdgeCreate:
		return &event.EdgeCreate{Header: h, ID: spec.ID, Tail: spec.Tail, Head: spec.Head, Directed: spec.Directed, Props: props}, nil
	case event.KindEdgeDelete:
		return &event.EdgeDelete{Header: h, ID: spec.ID}, nil
	case event.KindEdgeProps:
		return &event.EdgeProps{Header: h, ID: spec.ID, Props: props}, nil
	case event.KindActivityStart:
		return &event.ActivityStart{Header: h, Node: spec.Node, ID: spec.ID, Props: props}, nil
	case event.KindActivityEnd:
		return &event.ActivityEnd{Header: h, Node: spec.Node, ID: spec.ID}, nil
	case event.KindMsgSend:
		return &event.MsgSend{Header: h, ID: spec.ID, Node: spec.Node, Edge: spec.Edge, Parent: spec.Parent, Props: props}, nil
	default:
		return &event.MsgRecv{Header: h, ID: spec.ID, Node: spec.Node}, nil
	}
}

func convertProps(raw map[string]any) (event.Props, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	props := make(event.Props, len(raw))
	for k, v := range raw {
		val, err := event.ValueOf(v)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		props[k] = val
	}
	return props, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if len(s.Events) == 0 {
		return fmt.Errorf("events list is required and must be non-empty")
	}

	for i, spec := range s.Events {
		if spec.Kind == "" {
			return fmt.Errorf("events[%d]: kind is required", i)
		}
	}

	for i, a := range s.Expect {
		if err := validateAssertion(i, len(s.Events), &a); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index, events int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("expect[%d]: type is required", index)
	}

	switch a.Type {
	case AssertLogLength, AssertAccepted:
		if a.Count < 0 {
			return fmt.Errorf("expect[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertInterval:
		if err := validateCategory(index, a); err != nil {
			return err
		}
		if a.Subject == "" {
			return fmt.Errorf("expect[%d]: subject is required for interval", index)
		}
		if a.Start == nil {
			return fmt.Errorf("expect[%d]: start is required for interval", index)
		}
	case AssertIntervalCount:
		if err := validateCategory(index, a); err != nil {
			return err
		}
		if a.Count < 0 {
			return fmt.Errorf("expect[%d]: count must be non-negative for interval_count", index)
		}
	case AssertRejected:
		if a.Index < 0 || a.Index >= events {
			return fmt.Errorf("expect[%d]: index %d out of range for rejected", index, a.Index)
		}
		if a.Code != "" && !knownCode(a.Code) {
			return fmt.Errorf("expect[%d]: unknown error code %q", index, a.Code)
		}
	default:
		return fmt.Errorf("expect[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func validateCategory(index int, a *Assertion) error {
	if a.Category == "" {
		return fmt.Errorf("expect[%d]: category is required for %s", index, a.Type)
	}
	if _, ok := interval.ParseCategory(a.Category); !ok {
		return fmt.Errorf("expect[%d]: unknown category %q", index, a.Category)
	}
	return nil
}

func knownCode(code string) bool {
	switch processor.ErrorCode(code) {
	case processor.ErrCodeInvalidEventType,
		processor.ErrCodeTimestampOrder,
		processor.ErrCodeDuplicateID,
		processor.ErrCodeUnknownID,
		processor.ErrCodeInvalidProperty:
		return true
	}
	return false
}
