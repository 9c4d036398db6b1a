// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package secrets

import (
	"github.com/juju/errors"
	"gopkg.in/yaml.v2"
)

// State persists the unit's secret consumption bookkeeping between
// hook contexts: which revision each consumed secret is pinned to, and
// any label the unit has assigned to a secret it does not own.
type State struct {
	// ConsumedSecretInfo is a map of secret URI ids
	// to the revision the unit currently tracks.
	ConsumedSecretInfo map[string]int `yaml:"secret-revisions,omitempty"`

	// ConsumerLabels is a map of secret URI ids to
	// the label assigned by the consuming unit.
	ConsumerLabels map[string]string `yaml:"secret-labels,omitempty"`
}

// NewState returns an initial State.
func NewState() *State {
	return &State{
		ConsumedSecretInfo: map[string]int{},
		ConsumerLabels:     map[string]string{},
	}
}

// UnitStateReadWriter encapsulates the methods used to read and write
// the unit's secret state document. The harness supplies an in-memory
// implementation; the real agent writes to the controller.
type UnitStateReadWriter interface {
	SecretsState() (string, error)
	SetSecretsState(string) error
}

// NewMemoryStateReadWriter returns a UnitStateReadWriter backed by a
// plain string, suitable for carrying state between simulated hook
// contexts in one process.
func NewMemoryStateReadWriter() UnitStateReadWriter {
	return &memoryStateReadWriter{}
}

type memoryStateReadWriter struct {
	doc string
}

func (m *memoryStateReadWriter) SecretsState() (string, error) {
	if m.doc == "" {
		return "", errors.NotFoundf("secrets state")
	}
	return m.doc, nil
}

func (m *memoryStateReadWriter) SetSecretsState(doc string) error {
	m.doc = doc
	return nil
}

// stateOps reads and writes the secret state document.
type stateOps struct {
	rw UnitStateReadWriter
}

// NewStateOps returns a new stateOps.
func NewStateOps(rw UnitStateReadWriter) *stateOps {
	return &stateOps{rw: rw}
}

// Read parses the unit's secret state document. A missing document
// yields an empty State along with a NotFound error the caller may
// ignore.
func (o *stateOps) Read() (*State, error) {
	doc, err := o.rw.SecretsState()
	if err != nil {
		return NewState(), errors.Trace(err)
	}
	var st State
	if err := yaml.Unmarshal([]byte(doc), &st); err != nil {
		return nil, errors.Annotate(err, "cannot unmarshal secrets state")
	}
	if st.ConsumedSecretInfo == nil {
		st.ConsumedSecretInfo = map[string]int{}
	}
	if st.ConsumerLabels == nil {
		st.ConsumerLabels = map[string]string{}
	}
	return &st, nil
}

// Write stores the unit's secret state document.
func (o *stateOps) Write(st *State) error {
	if st == nil {
		return errors.NotValidf("nil secrets state")
	}
	data, err := yaml.Marshal(st)
	if err != nil {
		return errors.Annotate(err, "cannot marshal secrets state")
	}
	return o.rw.SetSecretsState(string(data))
}
