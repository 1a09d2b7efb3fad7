// Copyright 2026 The CQLFHIR Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package local is an in-memory implementation of retriever.Retriever, initialized from a FHIR
// JSON Bundle (or any slice of already-decoded resource documents) rather than from a persistent
// store.
package local

import (
	"context"
	"fmt"

	"github.com/buger/jsonparser"

	"github.com/clinical-lang/cqlfhir/navigator"
)

// Retriever implements retriever.Retriever over FHIR resources held entirely in memory.
type Retriever struct {
	resources map[string][][]byte
}

// NewFromResources builds a Retriever directly from already-decoded FHIR resource documents,
// bucketing each by its resourceType.
func NewFromResources(docs [][]byte) (*Retriever, error) {
	r := &Retriever{resources: make(map[string][][]byte)}
	for _, doc := range docs {
		rt, err := navigator.ResourceType(doc)
		if err != nil {
			return nil, err
		}
		r.resources[rt] = append(r.resources[rt], doc)
	}
	return r, nil
}

// NewFromBundle builds a Retriever from a FHIR JSON Bundle document, unpacking each entry.resource.
func NewFromBundle(bundleJSON []byte) (*Retriever, error) {
	entries, _, _, err := jsonparser.Get(bundleJSON, "entry")
	if err != nil {
		return nil, fmt.Errorf("FHIR Bundle missing entry array: %w", err)
	}
	var docs [][]byte
	var iterErr error
	jsonparser.ArrayEach(entries, func(entry []byte, _ jsonparser.ValueType, _ int, _ error) {
		if iterErr != nil {
			return
		}
		res, _, _, err := jsonparser.Get(entry, "resource")
		if err != nil {
			iterErr = fmt.Errorf("Bundle entry missing resource: %w", err)
			return
		}
		docs = append(docs, res)
	})
	if iterErr != nil {
		return nil, iterErr
	}
	return NewFromResources(docs)
}

// Retrieve implements retriever.Retriever.
func (r *Retriever) Retrieve(ctx context.Context, fhirResourceType string) ([][]byte, error) {
	return r.resources[fhirResourceType], nil
}
