package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tickerguard/internal/config"
	"github.com/roach88/tickerguard/internal/model"
	"github.com/roach88/tickerguard/internal/repo"
)

// Scenario defines a replayable operator session.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Clock is the RFC 3339 instant the wall clock starts at.
	// If empty, testutil.Epoch is used.
	Clock string `yaml:"clock,omitempty"`

	// Config overrides the default configuration.
	Config *config.Config `yaml:"config,omitempty"`

	// Platform seeds the in-memory external platforms.
	Platform PlatformSeed `yaml:"platform,omitempty"`

	// Seed is the initial repository state.
	Seed repo.Snapshot `yaml:"seed"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final findings and state.
	Assertions []Assertion `yaml:"assertions"`
}

// PlatformSeed configures the in-memory platform.
type PlatformSeed struct {
	// Pairs are the symbol-search catalogue.
	Pairs []model.PairInfo `yaml:"pairs,omitempty"`

	// Orders are the live orders.
	Orders []model.Order `yaml:"orders,omitempty"`

	// DeleteError makes every remote alert deletion fail with this message.
	DeleteError string `yaml:"delete_error,omitempty"`
}

// Step is one operator action. Exactly one field is set.
type Step struct {
	Map            *MapStep      `yaml:"map,omitempty"`
	Stop           *StopStep     `yaml:"stop,omitempty"`
	RecordCategory *CategoryStep `yaml:"record_category,omitempty"`
	UpdateDefault  *struct{}     `yaml:"update_default,omitempty"`
	Clean          *CleanStep    `yaml:"clean,omitempty"`
	Visit          *VisitStep    `yaml:"visit,omitempty"`
	Advance        string        `yaml:"advance,omitempty"`
	Alert          *AlertStep    `yaml:"alert,omitempty"`
	Fix            *FixStep      `yaml:"fix,omitempty"`
	Audit          *AuditStep    `yaml:"audit,omitempty"`
}

// MapStep maps Tv to Pair, or to the first search result for Query.
type MapStep struct {
	Tv    model.TvTicker  `yaml:"tv"`
	Pair  *model.PairInfo `yaml:"pair,omitempty"`
	Query string          `yaml:"query,omitempty"`

	// Confirm answers the guard-rail steps in order. Missing answers
	// default to true.
	Confirm []bool `yaml:"confirm,omitempty"`
}

// StopStep stops tracking by tv or by investing ticker.
type StopStep struct {
	Tv        model.TvTicker        `yaml:"tv,omitempty"`
	Investing model.InvestingTicker `yaml:"investing,omitempty"`
}

// CategoryStep toggles tickers in a category slot.
type CategoryStep struct {
	Family  model.Family     `yaml:"family"`
	Index   int              `yaml:"index"`
	Tickers []model.TvTicker `yaml:"tickers"`
}

// CleanStep prunes category members that left the universe.
type CleanStep struct {
	DryRun bool `yaml:"dry_run,omitempty"`
}

// VisitStep records a visit at the current wall clock.
type VisitStep struct {
	Tv model.TvTicker `yaml:"tv"`
}

// AlertStep creates an alert.
type AlertStep struct {
	Investing model.InvestingTicker `yaml:"investing"`
	Price     string                `yaml:"price"`
}

// FixStep applies a section's fix-all.
type FixStep struct {
	Plugin string `yaml:"plugin"`
}

// AuditStep runs plugins, all of them when Plugins is empty.
type AuditStep struct {
	Plugins []string `yaml:"plugins,omitempty"`
	Targets []string `yaml:"targets,omitempty"`
}

// Kind names the step's action.
func (s Step) Kind() string {
	kinds := s.kinds()
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

func (s Step) kinds() []string {
	var k []string
	add := func(set bool, name string) {
		if set {
			k = append(k, name)
		}
	}
	add(s.Map != nil, StepMap)
	add(s.Stop != nil, StepStop)
	add(s.RecordCategory != nil, StepRecordCategory)
	add(s.UpdateDefault != nil, StepUpdateDefault)
	add(s.Clean != nil, StepClean)
	add(s.Visit != nil, StepVisit)
	add(s.Advance != "", StepAdvance)
	add(s.Alert != nil, StepAlert)
	add(s.Fix != nil, StepFix)
	add(s.Audit != nil, StepAudit)
	return k
}

// Step kinds.
const (
	StepMap            = "map"
	StepStop           = "stop"
	StepRecordCategory = "record_category"
	StepUpdateDefault  = "update_default"
	StepClean          = "clean"
	StepVisit          = "visit"
	StepAdvance        = "advance"
	StepAlert          = "alert"
	StepFix            = "fix"
	StepAudit          = "audit"
)

// Assertion validates findings or final state.
type Assertion struct {
	// Type specifies the assertion type; see the Assert constants.
	Type string `yaml:"type"`

	// Plugin, Code, Target, Severity and Status select findings
	// (finding, no_finding, empty). Status defaults to FAIL.
	Plugin   string `yaml:"plugin,omitempty"`
	Code     string `yaml:"code,omitempty"`
	Target   string `yaml:"target,omitempty"`
	Severity string `yaml:"severity,omitempty"`
	Status   string `yaml:"status,omitempty"`

	// Family, Index and Tv select a category slot (member).
	Family model.Family   `yaml:"family,omitempty"`
	Index  *int           `yaml:"index,omitempty"`
	Tv     model.TvTicker `yaml:"tv,omitempty"`

	// Investing is the expected mapping target (mapped).
	Investing model.InvestingTicker `yaml:"investing,omitempty"`

	// PairID and Count check mirrored alerts (alerts).
	PairID model.PairID `yaml:"pair_id,omitempty"`
	Count  *int         `yaml:"count,omitempty"`

	// AlertID names an alert (remote_deleted, drift).
	AlertID string `yaml:"alert_id,omitempty"`

	// Absent inverts member and drift.
	Absent bool `yaml:"absent,omitempty"`
}

// Assertion type constants.
const (
	AssertFinding       = "finding"
	AssertNoFinding     = "no_finding"
	AssertEmpty         = "empty"
	AssertMember        = "member"
	AssertMapped        = "mapped"
	AssertAlerts        = "alerts"
	AssertRemoteDeleted = "remote_deleted"
	AssertDrift         = "drift"
)

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

// ParseScenario parses and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
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

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Clock != "" {
		if _, err := time.Parse(time.RFC3339, s.Clock); err != nil {
			return fmt.Errorf("clock: %w", err)
		}
	}
	if len(s.Steps) == 0 && len(s.Assertions) == 0 {
		return fmt.Errorf("steps or assertions are required")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	kinds := step.kinds()
	switch len(kinds) {
	case 0:
		return fmt.Errorf("steps[%d]: no action", i)
	case 1:
	default:
		return fmt.Errorf("steps[%d]: exactly one action allowed, got %v", i, kinds)
	}

	switch {
	case step.Map != nil:
		if step.Map.Tv == "" {
			return fmt.Errorf("steps[%d].map: tv is required", i)
		}
		if (step.Map.Pair == nil) == (step.Map.Query == "") {
			return fmt.Errorf("steps[%d].map: exactly one of pair or query is required", i)
		}
	case step.Stop != nil:
		if (step.Stop.Tv == "") == (step.Stop.Investing == "") {
			return fmt.Errorf("steps[%d].stop: exactly one of tv or investing is required", i)
		}
	case step.RecordCategory != nil:
		if _, err := model.ParseFamily(string(step.RecordCategory.Family)); err != nil {
			return fmt.Errorf("steps[%d].record_category: %w", i, err)
		}
	case step.Visit != nil:
		if step.Visit.Tv == "" {
			return fmt.Errorf("steps[%d].visit: tv is required", i)
		}
	case step.Advance != "":
		if _, err := time.ParseDuration(step.Advance); err != nil {
			return fmt.Errorf("steps[%d].advance: %w", i, err)
		}
	case step.Alert != nil:
		if step.Alert.Investing == "" || step.Alert.Price == "" {
			return fmt.Errorf("steps[%d].alert: investing and price are required", i)
		}
	case step.Fix != nil:
		if step.Fix.Plugin == "" {
			return fmt.Errorf("steps[%d].fix: plugin is required", i)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFinding:
		if a.Plugin == "" || a.Code == "" || a.Target == "" {
			return fmt.Errorf("assertions[%d]: plugin, code and target are required for finding", index)
		}
	case AssertNoFinding, AssertEmpty:
		if a.Plugin == "" {
			return fmt.Errorf("assertions[%d]: plugin is required for %s", index, a.Type)
		}
	case AssertMember:
		if a.Family == "" || a.Index == nil || a.Tv == "" {
			return fmt.Errorf("assertions[%d]: family, index and tv are required for member", index)
		}
	case AssertMapped:
		if a.Tv == "" {
			return fmt.Errorf("assertions[%d]: tv is required for mapped", index)
		}
	case AssertAlerts:
		if a.PairID == "" || a.Count == nil {
			return fmt.Errorf("assertions[%d]: pair_id and count are required for alerts", index)
		}
	case AssertRemoteDeleted, AssertDrift:
		if a.AlertID == "" {
			return fmt.Errorf("assertions[%d]: alert_id is required for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
