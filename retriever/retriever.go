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

// Package retriever defines the interface between the evaluator and the data source a
// [Retrieve] expression is computed over. Callers of the engine provide an implementation.
package retriever

import "context"

// Retriever returns FHIR resources of a given type, each as a raw decoded FHIR JSON document.
type Retriever interface {
	// Retrieve returns every resource of type fhirResourceType currently in scope (e.g. belonging
	// to the patient the engine is evaluating against).
	Retrieve(ctx context.Context, fhirResourceType string) ([][]byte, error)
}
