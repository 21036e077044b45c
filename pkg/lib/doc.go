// Package lib provides a Go SDK to drive XL Deploy deployments programmatically.
//
// It runs the same deploy, undeploy and control task flows as the xld CLI,
// including the task driver that starts, polls, archives and cancels the
// server tasks.
//
// # Quick Start
//
//	client, err := lib.New(ctx, lib.Config{
//	    Server: lib.ServerConfig{
//	        URL:      "http://localhost:4516",
//	        Username: "admin",
//	        Password: "admin",
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	res, err := client.Deploy(ctx, lib.DeployOpts{
//	    PackageID:     "Applications/PetClinic/1.0",
//	    EnvironmentID: "Environments/Dev",
//	})
//
// # Run History
//
// Deploy, undeploy and control runs are recorded in a local SQLite database
// (~/.xld/history.db by default). Set [Config].NoHistory to disable it,
// [Config].InMemoryHistory keeps it only for the client lifetime. Use
// [Client.ListRuns] to read it.
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: Resource does not exist.
//   - [ErrAlreadyExists]: Resource with the same ID already exists.
//   - [ErrNotValid]: Invalid input or operation.
//
// Errors raised by the deployment flows are prefixed with "XL Deploy: ".
//
// # Testing
//
// Use [BackendFake] to run against an in-memory server seeded with
// [Config].Repository:
//
//	client, _ := lib.New(ctx, lib.Config{
//	    Backend:   lib.BackendFake,
//	    NoHistory: true,
//	    Repository: []lib.ConfigurationItem{
//	        {ID: "Environments/Dev", Type: "udm.Environment"},
//	    },
//	})
package lib
