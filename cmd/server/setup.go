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

// Package main contains the setup and initialization logic for the server's
// state: configuration loading, Google Cloud service clients, the job and
// manifest services, and the running-job registry the API uses to cancel
// extractions.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/slidecast/media-extract/internal/cloud"
	"github.com/slidecast/media-extract/internal/core/services"
	"github.com/slidecast/media-extract/internal/core/workflow"
)

// StateManager holds the shared dependencies of the server process.
type StateManager struct {
	config    *cloud.Config
	cloud     *cloud.ServiceClients
	jobs      *services.JobStore
	manifests *services.ManifestService
	signer    *services.URLSigner
	registry  *workflow.Registry
}

var state = &StateManager{}

// SetupOS points the configuration loader at the configs directory with the
// "local" runtime overlay.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "local")
	return err
}

// GetConfig is the singleton accessor for the server configuration. The
// first call loads the TOML files; later calls return the cached struct.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup os environment: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// InitState creates the cloud service clients, wires the job, manifest, and
// signing services, and starts the Pub/Sub listeners that drive the two
// extraction pipelines.
func InitState(ctx context.Context) {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	state.jobs = services.NewJobStore(cloudClients.RedisClient)
	if config.Redis.JobTTLHours > 0 {
		state.jobs.TTL = time.Duration(config.Redis.JobTTLHours) * time.Hour
	}
	state.manifests = &services.ManifestService{
		BigqueryClient: cloudClients.BigQueryClient,
		DatasetName:    config.BigQueryDataSource.DatasetName,
		ManifestTable:  config.BigQueryDataSource.ManifestTable,
	}
	state.signer = &services.URLSigner{
		StorageClient: cloudClients.StorageClient,
		IAMClient:     cloudClients.IAMClient,
		SignerEmail:   config.Application.SignerServiceAccountEmail,
	}
	state.registry = workflow.NewRegistry()

	SetupListeners(config, cloudClients, state.registry, ctx)
}
