// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package vertical

import (
	"fmt"
	"maps"
	"slices"
)

// Router holds the verticals by name.
type Router struct {
	verticals map[string]*Vertical
}

func NewRouter(verticals ...*Vertical) *Router {
	router := &Router{verticals: make(map[string]*Vertical, len(verticals))}
	for _, v := range verticals {
		router.verticals[v.Name()] = v
	}
	return router
}

// Vertical returns the vertical registered under name.
func (r *Router) Vertical(name string) (*Vertical, error) {
	v, ok := r.verticals[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVertical, name)
	}
	return v, nil
}

func (r *Router) Names() []string {
	return slices.Sorted(maps.Keys(r.verticals))
}

// Resolve returns the vertical and the name of the operation exposed as
// /<vertical>/<object>, or /<vertical>/<object>/<id> for point reads.
func (r *Router) Resolve(verticalName, object string, pointRead bool) (*Vertical, string, error) {
	v, err := r.Vertical(verticalName)
	if err != nil {
		return nil, "", err
	}

	operation, ok := v.OperationFor(object, pointRead)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s/%s", ErrUnknownOperation, verticalName, object)
	}
	return v, operation, nil
}

// RegisterAdapter registers adapter on every vertical it implements operations of. It
// fails when the adapter implements no operation of any vertical.
func (r *Router) RegisterAdapter(connectorName string, adapter any) ([]string, error) {
	registered := make([]string, 0)
	for _, name := range r.Names() {
		v := r.verticals[name]
		if len(v.Implemented(adapter)) == 0 {
			continue
		}
		if err := v.Register(connectorName, adapter); err != nil {
			return nil, err
		}
		registered = append(registered, name)
	}

	if len(registered) == 0 {
		return nil, fmt.Errorf("%w: %T implements no vertical operation", ErrInvalidAdapter, adapter)
	}
	return registered, nil
}
