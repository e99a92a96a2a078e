// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package services contains the business logic for interacting with data
// sources. This file centralizes the BigQuery SQL query strings used by the
// manifest service. The `%s` placeholder is always the fully qualified
// manifest table name; user-supplied values go through query parameters,
// never string formatting.
package services

const (
	// QryFindManifestByJobId looks up the manifest of a single job. Jobs may
	// be re-run against the same source; job_id is unique per run, so at
	// most one row comes back.
	QryFindManifestByJobId = "SELECT * FROM `%s` WHERE job_id = @job_id"

	// QryListManifestsBySource returns every extraction run recorded against
	// one source object, newest first. This is the query behind "what has
	// already been extracted from this recording".
	QryListManifestsBySource = "SELECT * FROM `%s` WHERE source_bucket = @source_bucket AND source_object = @source_object ORDER BY created_at DESC"
)
