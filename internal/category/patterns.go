package category

// Pattern is a detection rule: literal keywords, regular expressions and a
// weight multiplier applied to the accumulated score.
type Pattern struct {
	Category Category `json:"category" yaml:"category"`
	Keywords []string `json:"keywords" yaml:"keywords"`
	Patterns []string `json:"patterns" yaml:"patterns"`
	Weight   float64  `json:"weight" yaml:"weight"`
}

// Critical and Security are over-weighted and Documentation under-weighted to
// bias extraction toward urgent and sensitive content.
func builtinPatterns() []Pattern {
	return []Pattern{
		{
			Category: Of(Architecture),
			Keywords: []string{"architecture", "design", "structure", "pattern", "component", "module", "system design"},
			Patterns: []string{
				`architect(?:ure|ural)`,
				`design\s+pattern`,
				`system\s+(?:design|architecture)`,
				`(?:micro)?service`,
				`component\s+(?:design|structure)`,
			},
			Weight: 1.0,
		},
		{
			Category: Of(Database),
			Keywords: []string{"database", "sql", "nosql", "schema", "migration", "query", "index"},
			Patterns: []string{
				`database`,
				`(?:sql|nosql)`,
				`schema`,
				`migration`,
				`(?:table|index|query)`,
				`(?:postgres|mysql|mongodb|redis)`,
			},
			Weight: 1.0,
		},
		{
			Category: Of(Security),
			Keywords: []string{"security", "authentication", "authorization", "encryption", "vulnerability", "attack"},
			Patterns: []string{
				`secur(?:e|ity)`,
				`auth(?:entication|orization)`,
				`encrypt(?:ion)?`,
				`vulnerabilit(?:y|ies)`,
				`(?:xss|csrf|sql\s*injection)`,
				`(?:password|token|credential)`,
			},
			Weight: 1.2,
		},
		{
			Category: Of(Features),
			Keywords: []string{"feature", "functionality", "requirement", "user story", "use case"},
			Patterns: []string{
				`feature`,
				`functionalit(?:y|ies)`,
				`requirement`,
				`user\s+stor(?:y|ies)`,
				`use\s+case`,
				`capabilit(?:y|ies)`,
			},
			Weight: 0.9,
		},
		{
			Category: Of(Monitoring),
			Keywords: []string{"monitoring", "logging", "metrics", "observability", "alerting", "dashboard"},
			Patterns: []string{
				`monitor(?:ing)?`,
				`logg(?:ing|er)`,
				`metric(?:s)?`,
				`observability`,
				`alert(?:ing|s)?`,
				`dashboard`,
				`(?:prometheus|grafana|elk)`,
			},
			Weight: 1.0,
		},
		{
			Category: Of(Critical),
			Keywords: []string{"critical", "urgent", "emergency", "breaking", "severe", "blocker"},
			Patterns: []string{
				`critical`,
				`urgent`,
				`emergency`,
				`breaking\s+change`,
				`severe`,
				`blocker`,
				`high\s+priority`,
			},
			Weight: 1.5,
		},
		{
			Category: Of(Setup),
			Keywords: []string{"setup", "installation", "configuration", "initialization", "bootstrap"},
			Patterns: []string{
				`setup`,
				`install(?:ation)?`,
				`configur(?:e|ation)`,
				`initializ(?:e|ation)`,
				`bootstrap`,
				`getting\s+started`,
			},
			Weight: 0.8,
		},
		{
			Category: Of(API),
			Keywords: []string{"api", "endpoint", "rest", "graphql", "webhook", "integration"},
			Patterns: []string{
				`api`,
				`endpoint`,
				`rest(?:ful)?`,
				`graphql`,
				`webhook`,
				`integration`,
				`(?:get|post|put|delete|patch)`,
			},
			Weight: 1.0,
		},
		{
			Category: Of(Testing),
			Keywords: []string{"test", "testing", "unit test", "integration test", "e2e", "coverage"},
			Patterns: []string{
				`test(?:s|ing)?`,
				`unit\s+test`,
				`integration\s+test`,
				`e2e`,
				`coverage`,
				`(?:jest|pytest|mocha|jasmine)`,
			},
			Weight: 0.9,
		},
		{
			Category: Of(Performance),
			Keywords: []string{"performance", "optimization", "speed", "latency", "throughput", "scalability"},
			Patterns: []string{
				`performance`,
				`optimi(?:z|s)(?:e|ation)`,
				`speed`,
				`latency`,
				`throughput`,
				`scalability`,
				`(?:fast|slow|quick)`,
			},
			Weight: 1.1,
		},
		{
			Category: Of(Documentation),
			Keywords: []string{"documentation", "docs", "readme", "guide", "tutorial", "reference"},
			Patterns: []string{
				`documentation`,
				`docs?`,
				`readme`,
				`guide`,
				`tutorial`,
				`reference`,
				`example`,
			},
			Weight: 0.7,
		},
		{
			Category: Of(Deployment),
			Keywords: []string{"deployment", "deploy", "release", "ci/cd", "pipeline", "production"},
			Patterns: []string{
				`deploy(?:ment)?`,
				`release`,
				`ci/?cd`,
				`pipeline`,
				`production`,
				`(?:docker|kubernetes|k8s)`,
			},
			Weight: 1.0,
		},
		{
			Category: Of(Configuration),
			Keywords: []string{"configuration", "config", "settings", "environment", "variables", "options"},
			Patterns: []string{
				`configur(?:e|ation)`,
				`config`,
				`settings?`,
				`environment`,
				`variable`,
				`option`,
				`parameter`,
			},
			Weight: 0.8,
		},
		{
			Category: Of(Dependencies),
			Keywords: []string{"dependency", "dependencies", "package", "library", "module", "import"},
			Patterns: []string{
				`dependenc(?:y|ies)`,
				`package`,
				`library`,
				`module`,
				`import`,
				`require`,
				`(?:npm|pip|maven|gradle)`,
			},
			Weight: 0.8,
		},
	}
}
