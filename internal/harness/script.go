package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/timeline/internal/engine"
	"github.com/roach88/timeline/internal/ir"
	"github.com/roach88/timeline/internal/scenario"
)

// Script is one conformance run: a document, the commands to apply to it
// and the expected outcome.
type Script struct {
	// Name uniquely identifies the script. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what the script checks.
	Description string `yaml:"description"`

	// Document is the path of the scenario document (.yaml or .cue).
	// LoadScript resolves it relative to the script file.
	Document string `yaml:"document"`

	// RunID is stamped on every trace record. Empty means
	// testutil.DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`

	// Steps are applied in order, one trace record each.
	Steps []engine.Command `yaml:"steps"`

	// Assertions are checked after their step, or after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// AssertionType selects what an Assertion checks.
type AssertionType string

const (
	AssertRunning  AssertionType = "running"
	AssertWaiting  AssertionType = "waiting"
	AssertRoots    AssertionType = "roots"
	AssertStatus   AssertionType = "status"
	AssertInterval AssertionType = "interval"
	AssertError    AssertionType = "error"
)

// CodeNone in an error assertion expects the step to succeed.
const CodeNone = "none"

// Assertion is one expectation on the scenario state. Only the fields
// relevant to Type are read.
type Assertion struct {
	Type AssertionType `yaml:"type"`

	// Step is the 1-based step after which the assertion is checked.
	// Zero means after the last step.
	Step int `yaml:"step,omitempty"`

	// IDs for running, waiting and roots.
	IDs []string `yaml:"ids,omitempty"`

	// Event and Status for status.
	Event  string `yaml:"event,omitempty"`
	Status string `yaml:"status,omitempty"`

	// Interval, Running and optional Date for interval.
	Interval string       `yaml:"interval,omitempty"`
	Running  *bool        `yaml:"running,omitempty"`
	Date     *ir.Duration `yaml:"date,omitempty"`

	// Code for error: a scenario or engine error code, or CodeNone.
	Code string `yaml:"code,omitempty"`
}

// LoadScript reads and parses a script YAML file. The document path is
// resolved relative to the script's directory.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}

	script, err := ParseScript(data)
	if err != nil {
		return nil, err
	}

	if !filepath.IsAbs(script.Document) {
		script.Document = filepath.Join(filepath.Dir(path), script.Document)
	}
	if _, err := os.Stat(script.Document); err != nil {
		return nil, fmt.Errorf("invalid script: document not found: %s", script.Document)
	}
	return script, nil
}

// ParseScript parses and validates script YAML. Unknown fields are rejected.
// The document path is left as written.
func ParseScript(data []byte) (*Script, error) {
	var script Script
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&script); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScript(&script); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}
	return &script, nil
}

// validateScript checks that required fields are present and valid.
func validateScript(s *Script) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Document == "" {
		return fmt.Errorf("document is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	// Steps are not validated here: a malformed command is a legitimate
	// step whose failure an error assertion can check.
	for i, step := range s.Steps {
		if step.Kind == "" {
			return fmt.Errorf("steps[%d]: kind is required", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], len(s.Steps)); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps int) error {
	if a.Step < 0 || a.Step > steps {
		return fmt.Errorf("assertions[%d]: step %d out of range 1..%d", index, a.Step, steps)
	}

	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertRunning, AssertWaiting, AssertRoots:
		// An empty ids list asserts an empty set.
	case AssertStatus:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for status", index)
		}
		if _, err := scenario.ParseStatus(a.Status); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertInterval:
		if a.Interval == "" {
			return fmt.Errorf("assertions[%d]: interval is required for interval", index)
		}
		if a.Running == nil && a.Date == nil {
			return fmt.Errorf("assertions[%d]: running or date is required for interval", index)
		}
	case AssertError:
		if a.Step == 0 {
			return fmt.Errorf("assertions[%d]: step is required for error", index)
		}
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
