package vulnscan

// classifiedFileSchema is the shape shared by the high, medium, and low
// risk buckets of the scanner output.
func classifiedFileSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":          map[string]any{"type": "string"},
			"path":          map[string]any{"type": "string"},
			"parent_folder": map[string]any{"type": "string"},
			"file_type": map[string]any{
				"type": "string",
				"enum": []any{"WEB_APP", "API", "CONFIG", "DATABASE", "FRONTEND", "OTHER"},
			},
			"language":    map[string]any{"type": "string"},
			"risk_reason": map[string]any{"type": "string"},
		},
		"required": []any{"name", "path", "parent_folder", "file_type", "language", "risk_reason"},
	}
}

// ScannerSchema constrains the classification output of the scanner
// prompt: files bucketed by risk level plus a summary with counts.
func ScannerSchema() map[string]any {
	return map[string]any{
		"type":        "object",
		"title":       "File Classification Output",
		"description": "Output schema for the file classification and filtering block",
		"properties": map[string]any{
			"high_risk_files": map[string]any{
				"type":  "array",
				"items": classifiedFileSchema(),
			},
			"medium_risk_files": map[string]any{
				"type":  "array",
				"items": classifiedFileSchema(),
			},
			"low_risk_files": map[string]any{
				"type":  "array",
				"items": classifiedFileSchema(),
			},
			"ignored_files": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":          map[string]any{"type": "string"},
						"path":          map[string]any{"type": "string"},
						"ignore_reason": map[string]any{"type": "string"},
					},
					"required": []any{"name", "path", "ignore_reason"},
				},
			},
			"classification_summary": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"total_files":       map[string]any{"type": "integer"},
					"high_risk_count":   map[string]any{"type": "integer"},
					"medium_risk_count": map[string]any{"type": "integer"},
					"low_risk_count":    map[string]any{"type": "integer"},
					"ignored_count":     map[string]any{"type": "integer"},
				},
				"required": []any{
					"total_files", "high_risk_count", "medium_risk_count",
					"low_risk_count", "ignored_count",
				},
			},
		},
		"required": []any{
			"high_risk_files", "medium_risk_files", "low_risk_files",
			"ignored_files", "classification_summary",
		},
	}
}

// FixesSchema constrains the patcher output: one entry per generated
// fix plus a summary and an optional implementation guide.
func FixesSchema() map[string]any {
	return map[string]any{
		"type":        "object",
		"title":       "Security Fix Generator Output",
		"description": "Output schema for the security fix generation block",
		"properties": map[string]any{
			"fixes": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"file_path": map[string]any{"type": "string"},
						"vulnerability_type": map[string]any{
							"type": "string",
							"enum": []any{
								"SQL_INJECTION", "NOSQL_INJECTION", "CODE_INJECTION",
								"COMMAND_INJECTION", "XSS", "CSRF",
								"AUTHENTICATION_BYPASS", "AUTHORIZATION_FAILURE",
								"INFORMATION_DISCLOSURE", "HARDCODED_CREDENTIALS",
								"INSECURE_DESERIALIZATION", "PATH_TRAVERSAL",
								"WEAK_CRYPTOGRAPHY", "INSECURE_CONFIGURATION",
								"INPUT_VALIDATION_FAILURE", "SESSION_MANAGEMENT_FLAW",
								"PRIVILEGE_ESCALATION", "BUFFER_OVERFLOW",
								"RACE_CONDITION", "OTHER",
							},
						},
						"fixed_code":  map[string]any{"type": "string"},
						"explanation": map[string]any{"type": "string"},
						"security_notes": map[string]any{
							"type": "string",
						},
						"fix_confidence": map[string]any{
							"type": "string",
							"enum": []any{"HIGH", "MEDIUM", "LOW"},
						},
						"breaking_changes": map[string]any{"type": "boolean"},
						"additional_imports": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
						"testing_recommendations": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
					},
					"required": []any{
						"file_path", "vulnerability_type", "fixed_code",
						"explanation", "security_notes", "fix_confidence",
					},
				},
			},
			"fix_summary": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"total_fixes":             map[string]any{"type": "integer", "minimum": 0},
					"files_modified":          map[string]any{"type": "integer", "minimum": 0},
					"priority_order":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"estimated_fix_time":      map[string]any{"type": "string"},
					"high_confidence_fixes":   map[string]any{"type": "integer", "minimum": 0},
					"medium_confidence_fixes": map[string]any{"type": "integer", "minimum": 0},
					"low_confidence_fixes":    map[string]any{"type": "integer", "minimum": 0},
					"breaking_changes_count":  map[string]any{"type": "integer", "minimum": 0},
				},
				"required": []any{
					"total_fixes", "files_modified", "high_confidence_fixes",
					"medium_confidence_fixes", "low_confidence_fixes",
					"breaking_changes_count",
				},
			},
			"implementation_guide": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"prerequisites": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
					"rollback_plan": map[string]any{"type": "string"},
					"monitoring_recommendations": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
				},
			},
		},
		"required": []any{"fixes", "fix_summary"},
	}
}
