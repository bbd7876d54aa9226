package registry

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// OverlayVersion is the latest supported overlay file format version.
const OverlayVersion = 1

// overlayFile is the on-disk shape of a registry overlay: extra agents
// to register on top of the built-in defaults, e.g. for a deployment
// that wants a business-domain specialist the defaults don't ship.
type overlayFile struct {
	Version int            `yaml:"version"`
	Agents  []overlayAgent `yaml:"agents"`
}

type overlayAgent struct {
	AgentID              string             `yaml:"agent_id"`
	Name                 string             `yaml:"name"`
	Tier                 string             `yaml:"tier"`
	ModelTag             string             `yaml:"model_tag"`
	MaxTokens            int                `yaml:"max_tokens"`
	Temperature          float64            `yaml:"temperature"`
	CoordinationPriority int                `yaml:"coordination_priority"`
	Capability           overlayCapability  `yaml:"capability"`
	ResourceRequirements map[string]any     `yaml:"resource_requirements"`
	QualityGates         map[string]float64 `yaml:"quality_gates"`
}

type overlayCapability struct {
	Name                  string   `yaml:"name"`
	Description           string   `yaml:"description"`
	Tools                 []string `yaml:"tools"`
	SpecializationDomains []string `yaml:"specialization_domains"`
	CoordinationPatterns  []string `yaml:"coordination_patterns"`
	ActivationTriggers    []string `yaml:"activation_triggers"`
}

// LoadOverlay reads path and registers every agent it lists on reg, in
// addition to whatever the registry already holds. The file's version
// must not exceed OverlayVersion.
func LoadOverlay(reg *Registry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read registry overlay: %w", err)
	}

	var overlay overlayFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&overlay); err != nil {
		return fmt.Errorf("parse registry overlay: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("parse registry overlay: expected single document")
	}

	if overlay.Version <= 0 || overlay.Version > OverlayVersion {
		return fmt.Errorf("registry overlay version %d is unsupported (current: %d)", overlay.Version, OverlayVersion)
	}

	for _, a := range overlay.Agents {
		if err := reg.Register(toAgentConfig(a)); err != nil {
			return fmt.Errorf("register overlay agent %s: %w", a.AgentID, err)
		}
	}
	return nil
}

func toAgentConfig(a overlayAgent) AgentConfig {
	return AgentConfig{
		AgentID:     a.AgentID,
		Name:        a.Name,
		Tier:        Tier(a.Tier),
		ModelTag:    a.ModelTag,
		MaxTokens:   a.MaxTokens,
		Temperature: a.Temperature,
		Capability: Capability{
			Name:                  a.Capability.Name,
			Description:           a.Capability.Description,
			Tools:                 a.Capability.Tools,
			SpecializationDomains: a.Capability.SpecializationDomains,
			CoordinationPatterns:  a.Capability.CoordinationPatterns,
			ActivationTriggers:    a.Capability.ActivationTriggers,
		},
		CoordinationPriority: a.CoordinationPriority,
		ResourceRequirements: a.ResourceRequirements,
		QualityGates:         a.QualityGates,
	}
}
