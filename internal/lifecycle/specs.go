package lifecycle

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/agentteam/internal/errors"
)

// AgentSpec describes a teammate requested at team creation.
type AgentSpec struct {
	Name   string `yaml:"name" json:"name"`
	Model  string `yaml:"model,omitempty" json:"model,omitempty"`
	Prompt string `yaml:"prompt,omitempty" json:"prompt,omitempty"`
}

// specFile is the on-disk layout read by LoadAgentSpecs.
//
//	team: proj
//	agents:
//	  - name: tester
//	    model: sonnet
//	    prompt: Write the integration tests.
type specFile struct {
	Team   string      `yaml:"team"`
	Lead   string      `yaml:"lead"`
	Agents []AgentSpec `yaml:"agents"`
}

// TeamFile is a parsed team definition file.
type TeamFile struct {
	TeamName string
	LeadName string
	Agents   []AgentSpec
}

// LoadAgentSpecs reads a YAML team definition. Team and lead names are
// optional in the file; every agent must have a unique, non-empty name.
func LoadAgentSpecs(path string) (TeamFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TeamFile{}, fmt.Errorf("failed to read team file: %w", err)
	}

	var f specFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return TeamFile{}, errors.NewValidationError("invalid team file").WithField("file").WithValue(path).WithCause(err)
	}
	if err := ValidateSpecs(f.Agents); err != nil {
		return TeamFile{}, err
	}
	return TeamFile{TeamName: f.Team, LeadName: f.Lead, Agents: f.Agents}, nil
}

// ValidateSpecs checks that every requested teammate has a distinct name.
func ValidateSpecs(specs []AgentSpec) error {
	seen := make(map[string]bool, len(specs))
	for i, s := range specs {
		if s.Name == "" {
			return errors.NewValidationError(fmt.Sprintf("agent %d has no name", i+1)).WithField("agents")
		}
		if seen[s.Name] {
			return errors.NewValidationError("duplicate agent name").WithField("agents").WithValue(s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}
