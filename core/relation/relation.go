// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package relation holds the minimal relation topology the secret
// simulation needs: which relations exist, which remote application
// sits on the other side, and which of its units are currently known.
package relation

import (
	"github.com/juju/errors"
)

// RelationNotFound is returned when an operation references a relation
// id not present in the current topology.
const RelationNotFound = errors.ConstError("relation not found")

// UnitRelation describes one established relation as seen from the
// local unit.
type UnitRelation struct {
	// ID identifies the relation. Do not use omitempty, 0 is a valid id.
	ID int `yaml:"id"`

	// Endpoint is the local endpoint name of the relation.
	Endpoint string `yaml:"endpoint,omitempty"`

	// RemoteApplication is the application on the other side.
	RemoteApplication string `yaml:"remote-application"`

	// RemoteUnits are the remote units currently known to be present,
	// e.g. "remote/0". Units joining later are not retroactively added.
	RemoteUnits []string `yaml:"remote-units,omitempty"`
}

// Topology is the set of established relations, keyed by relation id.
type Topology map[int]UnitRelation

// NewTopology builds a Topology from the given relations.
func NewTopology(relations ...UnitRelation) Topology {
	t := make(Topology, len(relations))
	for _, r := range relations {
		t[r.ID] = r
	}
	return t
}

// Get returns the relation with the given id, or RelationNotFound.
func (t Topology) Get(id int) (UnitRelation, error) {
	r, ok := t[id]
	if !ok {
		return UnitRelation{}, errors.Annotatef(RelationNotFound, "relation %d", id)
	}
	return r, nil
}
