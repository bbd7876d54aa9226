package registry

// defaultAgent is a compact row used to build the built-in registry;
// ids and priorities are fixed because tests key off them.
type defaultAgent struct {
	id       string
	name     string
	tier     Tier
	priority int
	domains  []string
}

var defaultAgents = []defaultAgent{
	{
		id: "project_supervisor_orchestrator", name: "Project Supervisor Orchestrator",
		tier: TierCore, priority: 95,
		domains: []string{"planning", "orchestration", "task_delegation", "status_reporting"},
	},
	{
		id: "research_orchestrator", name: "Research Orchestrator",
		tier: TierCore, priority: 90,
		domains: []string{"research", "synthesis", "source_evaluation", "orchestration"},
	},
	{
		id: "context_manager", name: "Context Manager",
		tier: TierCore, priority: 85,
		domains: []string{"context_management", "memory", "summarization"},
	},
	{
		id: "ai_engineer", name: "AI Engineer",
		tier: TierSpecialists, priority: 85,
		domains: []string{"model_integration", "prompt_engineering", "evaluation"},
	},
	{
		id: "backend_architect", name: "Backend Architect",
		tier: TierSpecialists, priority: 75,
		domains: []string{"api_design", "data_modeling", "scalability"},
	},
	{
		id: "ios_developer", name: "iOS Developer",
		tier: TierTaskSpecific, priority: 80,
		domains: []string{"swift", "mobile_ui", "app_store_release"},
	},
	{
		id: "tree_analysis_specialist", name: "Tree Analysis Specialist",
		tier: TierTaskSpecific, priority: 70,
		domains: []string{"tree_inventory", "canopy_analysis", "risk_assessment"},
	},
	{
		id: "forestry_business_analyst", name: "Forestry Business Analyst",
		tier: TierBusinessDomain, priority: 65,
		domains: []string{"forestry_economics", "land_valuation", "reporting"},
	},
}

// Defaults returns the eight built-in agent configs spanning tiers 1-4,
// used to populate a Registry at startup before any overlay file is
// applied.
func Defaults() []AgentConfig {
	out := make([]AgentConfig, 0, len(defaultAgents))
	for _, d := range defaultAgents {
		out = append(out, AgentConfig{
			AgentID:              d.id,
			Name:                 d.name,
			Tier:                 d.tier,
			ModelTag:             "default",
			MaxTokens:            4096,
			Temperature:          0.7,
			CoordinationPriority: d.priority,
			Capability: Capability{
				Name:                  d.name,
				SpecializationDomains: append([]string(nil), d.domains...),
			},
			ResourceRequirements: map[string]any{},
			QualityGates:         map[string]float64{},
		})
	}
	return out
}

// LoadDefaults registers every built-in agent into r. Intended for use
// at startup before any overlay file is read.
func LoadDefaults(r *Registry) error {
	for _, cfg := range Defaults() {
		if err := r.Register(cfg); err != nil {
			return err
		}
	}
	return nil
}
