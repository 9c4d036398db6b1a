// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package secrets tracks which revision of each consumed secret the
// unit has last read. It is the side table behind the tracked-vs-latest
// indirection: the aggregate secret state stays value-like while the
// per-viewer cursor lives here, persisted as a YAML unit state document
// at hook commit.
package secrets

import (
	"sync"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
)

var logger = loggo.GetLogger("scenario.uniter.secrets")

// Secrets is a tracker of the unit's secret consumption state. It is
// created when a hook context opens, mutated in memory for the
// duration of the context, and written back only on commit. An aborted
// context simply never commits.
type Secrets struct {
	secretsState *State
	stateOps     *stateOps

	mu sync.Mutex
}

// NewSecrets returns a new secrets tracker initialised from the unit
// state read through rw.
func NewSecrets(rw UnitStateReadWriter) (*Secrets, error) {
	s := &Secrets{
		stateOps: NewStateOps(rw),
	}
	existing, err := s.stateOps.Read()
	if err != nil && !errors.Is(err, errors.NotFound) {
		return nil, errors.Annotate(err, "reading secrets state")
	}
	s.secretsState = existing
	return s, nil
}

// ConsumedRevision returns the revision the unit tracks for the given
// secret, and whether any revision is tracked at all.
func (s *Secrets) ConsumedRevision(uri string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rev, ok := s.secretsState.ConsumedSecretInfo[uri]
	return rev, ok
}

// SetConsumedRevision pins the tracked revision for the given secret.
func (s *Secrets) SetConsumedRevision(uri string, revision int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Debugf("tracking revision %d for secret %q", revision, uri)
	s.secretsState.ConsumedSecretInfo[uri] = revision
}

// ConsumerLabel returns the label the unit has assigned to the secret.
func (s *Secrets) ConsumerLabel(uri string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	label, ok := s.secretsState.ConsumerLabels[uri]
	return label, ok
}

// SetConsumerLabel records a label for the secret as seen by this unit.
func (s *Secrets) SetConsumerLabel(uri, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.secretsState.ConsumerLabels[uri] = label
}

// URIForLabel returns the URI id of the secret the unit labelled, if any.
func (s *Secrets) URIForLabel(label string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for uri, l := range s.secretsState.ConsumerLabels {
		if l == label {
			return uri, true
		}
	}
	return "", false
}

// SecretRemoved drops all bookkeeping for a secret that no longer
// exists.
func (s *Secrets) SecretRemoved(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.secretsState.ConsumedSecretInfo, uri)
	delete(s.secretsState.ConsumerLabels, uri)
}

// Commit writes the tracker state back to the unit state document.
func (s *Secrets) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.stateOps.Write(s.secretsState); err != nil {
		return errors.Annotate(err, "writing secrets state")
	}
	return nil
}

// Report provides information for the engine report.
func (s *Secrets) Report() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	consumed := make(map[string]int)
	for u, v := range s.secretsState.ConsumedSecretInfo {
		consumed[u] = v
	}
	return map[string]interface{}{
		"consumed-revisions": consumed,
	}
}
