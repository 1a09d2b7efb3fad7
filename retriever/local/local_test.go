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

package local

import (
	"context"
	"testing"
)

func TestNewFromResources_BucketsByResourceType(t *testing.T) {
	docs := [][]byte{
		[]byte(`{"resourceType": "Patient", "id": "1"}`),
		[]byte(`{"resourceType": "Condition", "id": "2"}`),
		[]byte(`{"resourceType": "Condition", "id": "3"}`),
	}
	r, err := NewFromResources(docs)
	if err != nil {
		t.Fatalf("NewFromResources() unexpected error: %v", err)
	}
	conditions, err := r.Retrieve(context.Background(), "Condition")
	if err != nil {
		t.Fatalf("Retrieve(Condition) unexpected error: %v", err)
	}
	if len(conditions) != 2 {
		t.Errorf("Retrieve(Condition) returned %d resources, want 2", len(conditions))
	}
	patients, err := r.Retrieve(context.Background(), "Patient")
	if err != nil {
		t.Fatalf("Retrieve(Patient) unexpected error: %v", err)
	}
	if len(patients) != 1 {
		t.Errorf("Retrieve(Patient) returned %d resources, want 1", len(patients))
	}
}

func TestRetrieve_UnknownResourceTypeReturnsEmpty(t *testing.T) {
	r, err := NewFromResources(nil)
	if err != nil {
		t.Fatalf("NewFromResources(nil) unexpected error: %v", err)
	}
	docs, err := r.Retrieve(context.Background(), "Observation")
	if err != nil {
		t.Fatalf("Retrieve() unexpected error: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("Retrieve() for an unseen resource type returned %d documents, want 0", len(docs))
	}
}

func TestNewFromResources_MissingResourceTypeErrors(t *testing.T) {
	docs := [][]byte{[]byte(`{"id": "1"}`)}
	if _, err := NewFromResources(docs); err == nil {
		t.Error("NewFromResources() with no resourceType: want error, got nil")
	}
}

func TestNewFromBundle(t *testing.T) {
	bundle := []byte(`{
		"resourceType": "Bundle",
		"entry": [
			{"resource": {"resourceType": "Patient", "id": "1"}},
			{"resource": {"resourceType": "Condition", "id": "2"}}
		]
	}`)
	r, err := NewFromBundle(bundle)
	if err != nil {
		t.Fatalf("NewFromBundle() unexpected error: %v", err)
	}
	patients, err := r.Retrieve(context.Background(), "Patient")
	if err != nil {
		t.Fatalf("Retrieve(Patient) unexpected error: %v", err)
	}
	if len(patients) != 1 {
		t.Errorf("Retrieve(Patient) returned %d resources, want 1", len(patients))
	}
}

func TestNewFromBundle_MissingEntryErrors(t *testing.T) {
	bundle := []byte(`{"resourceType": "Bundle"}`)
	if _, err := NewFromBundle(bundle); err == nil {
		t.Error("NewFromBundle() with no entry array: want error, got nil")
	}
}

func TestNewFromBundle_MissingResourceInEntryErrors(t *testing.T) {
	bundle := []byte(`{"resourceType": "Bundle", "entry": [{"fullUrl": "x"}]}`)
	if _, err := NewFromBundle(bundle); err == nil {
		t.Error("NewFromBundle() with an entry missing resource: want error, got nil")
	}
}
