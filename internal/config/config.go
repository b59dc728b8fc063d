// Package config loads the HCL scenario file: stepping parameters and the
// external interfaces to attach. Circuit topology is deliberately not part
// of the scenario; circuits are built in code against the components API.
package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Simulation is the stepping block of a scenario.
type Simulation struct {
	Name     string  `hcl:"name"`
	TimeStep float64 `hcl:"time_step"`
	Duration float64 `hcl:"duration"`
}

// Interface describes one external interface endpoint.
type Interface struct {
	Name               string `hcl:"name,label"`
	URL                string `hcl:"url"`
	Namespace          string `hcl:"namespace,optional"`
	Downsampling       uint64 `hcl:"downsampling,optional"`
	BlockOnRead        bool   `hcl:"block_on_read,optional"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
}

// Model is the decoded scenario.
type Model struct {
	Simulation *Simulation  `hcl:"simulation,block"`
	Interfaces []*Interface `hcl:"interface,block"`
}

// Load parses and validates a scenario file.
func Load(path string) (*Model, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", path, diags)
	}

	var model Model
	if diags := gohcl.DecodeBody(file.Body, nil, &model); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode scenario %s: %w", path, diags)
	}

	if model.Simulation == nil {
		return nil, fmt.Errorf("scenario %s: missing simulation block", path)
	}
	if model.Simulation.TimeStep <= 0 {
		return nil, fmt.Errorf("scenario %s: time_step must be positive", path)
	}
	if model.Simulation.Duration <= 0 {
		return nil, fmt.Errorf("scenario %s: duration must be positive", path)
	}
	for _, intf := range model.Interfaces {
		if intf.URL == "" {
			return nil, fmt.Errorf("scenario %s: interface %q: url is required", path, intf.Name)
		}
		if intf.Downsampling == 0 {
			intf.Downsampling = 1
		}
	}
	return &model, nil
}
