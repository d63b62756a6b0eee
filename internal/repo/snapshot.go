package repo

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tickerguard/internal/model"
)

// Repository names, also used as persisted record keys.
const (
	NamePair     = "pair"
	NameTicker   = "ticker"
	NameExchange = "exchange"
	NameSequence = "sequence"
	NameRecent   = "recent"
	NameAlert    = "alert"
	NameWatch    = "watch"
	NameFlag     = "flag"
	NameDrift    = "drift"
)

// Names lists every persisted repository in a stable order.
var Names = []string{
	NamePair, NameTicker, NameExchange, NameSequence, NameRecent,
	NameAlert, NameWatch, NameFlag, NameDrift,
}

// Snapshot is the persisted shape of every repository.
type Snapshot struct {
	Pair     map[model.InvestingTicker]model.PairInfo `json:"pair" yaml:"pair"`
	Ticker   map[model.TvTicker]model.InvestingTicker `json:"ticker" yaml:"ticker"`
	Exchange map[model.TvTicker]string                `json:"exchange" yaml:"exchange"`
	Sequence map[model.TvTicker]model.Sequence        `json:"sequence" yaml:"sequence"`
	Recent   map[model.TvTicker]int64                 `json:"recent" yaml:"recent"`
	Alert    map[model.PairID][]model.Alert           `json:"alert" yaml:"alert"`
	Watch    map[int][]model.TvTicker                 `json:"watch" yaml:"watch"`
	Flag     map[int][]model.TvTicker                 `json:"flag" yaml:"flag"`
	Drift    map[string]DriftEntry                    `json:"drift,omitempty" yaml:"drift,omitempty"`
}

// Snapshot captures the current state of every repository.
func (s *Set) Snapshot() Snapshot {
	alerts := s.Alerts.All()
	for pid, list := range alerts {
		out := make([]model.Alert, len(list))
		for i, a := range list {
			a.PairID = ""
			out[i] = a
		}
		alerts[pid] = out
	}
	return Snapshot{
		Pair:     s.Pairs.All(),
		Ticker:   s.Tickers.All(),
		Exchange: s.Exchanges.All(),
		Sequence: s.Sequences.All(),
		Recent:   s.Recent.All(),
		Alert:    alerts,
		Watch:    s.Watch.Lists(),
		Flag:     s.Flags.Lists(),
		Drift:    s.Drift.All(),
	}
}

// Restore replaces every repository with the contents of snap. Nothing is
// replaced unless the whole snapshot is valid. Alerts take their PairID from
// the key they are stored under.
func (s *Set) Restore(snap Snapshot) error {
	if err := validateLists(snap.Watch); err != nil {
		return fmt.Errorf("restore watch: %w", err)
	}
	if err := validateLists(snap.Flag); err != nil {
		return fmt.Errorf("restore flag: %w", err)
	}
	for tv, seq := range snap.Sequence {
		if _, err := model.ParseSequence(string(seq)); err != nil {
			return fmt.Errorf("restore sequence %s: %w", tv, err)
		}
	}

	alerts := make(map[model.PairID][]model.Alert, len(snap.Alert))
	for pid, list := range snap.Alert {
		out := make([]model.Alert, len(list))
		for i, a := range list {
			a.PairID = pid
			out[i] = a
		}
		alerts[pid] = out
	}

	if err := s.Watch.replace(snap.Watch); err != nil {
		return fmt.Errorf("restore watch: %w", err)
	}
	if err := s.Flags.replace(snap.Flag); err != nil {
		return fmt.Errorf("restore flag: %w", err)
	}
	s.Pairs.replace(snap.Pair)
	s.Tickers.replace(snap.Ticker)
	s.Exchanges.replace(snap.Exchange)
	s.Sequences.replace(snap.Sequence)
	s.Recent.replace(snap.Recent)
	s.Alerts.replace(alerts)
	s.Drift.replace(snap.Drift)
	return nil
}

// Blobs encodes each repository as its own JSON record, keyed by name.
func (snap Snapshot) Blobs() (map[string][]byte, error) {
	parts := map[string]any{
		NamePair:     snap.Pair,
		NameTicker:   snap.Ticker,
		NameExchange: snap.Exchange,
		NameSequence: snap.Sequence,
		NameRecent:   snap.Recent,
		NameAlert:    snap.Alert,
		NameWatch:    snap.Watch,
		NameFlag:     snap.Flag,
		NameDrift:    snap.Drift,
	}
	out := make(map[string][]byte, len(parts))
	for name, v := range parts {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		out[name] = data
	}
	return out, nil
}

// SnapshotFromBlobs decodes per-repository records. Missing records leave
// the corresponding repository empty.
func SnapshotFromBlobs(blobs map[string][]byte) (Snapshot, error) {
	var snap Snapshot
	targets := map[string]any{
		NamePair:     &snap.Pair,
		NameTicker:   &snap.Ticker,
		NameExchange: &snap.Exchange,
		NameSequence: &snap.Sequence,
		NameRecent:   &snap.Recent,
		NameAlert:    &snap.Alert,
		NameWatch:    &snap.Watch,
		NameFlag:     &snap.Flag,
		NameDrift:    &snap.Drift,
	}
	for name, data := range blobs {
		target, ok := targets[name]
		if !ok {
			return Snapshot{}, fmt.Errorf("decode snapshot: unknown repository %q", name)
		}
		if err := json.Unmarshal(data, target); err != nil {
			return Snapshot{}, fmt.Errorf("decode %s: %w", name, err)
		}
	}
	return snap, nil
}

// DecodeSnapshot parses a whole snapshot document. JSON input is detected by
// a leading '{'; anything else is read as YAML with unknown fields rejected.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return snap, nil
	}
	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&snap); err != nil {
			return Snapshot{}, fmt.Errorf("failed to parse JSON snapshot: %w", err)
		}
		return snap, nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse YAML snapshot: %w", err)
	}
	return snap, nil
}
