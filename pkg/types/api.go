package types

// UserProfile describes the person asking, used to personalize the prompt.
type UserProfile struct {
	// First name of the user.
	// example: Ada
	FirstName string `json:"first_name" validate:"required" example:"Ada"`
	// Last name of the user.
	// example: Lovelace
	LastName string `json:"last_name,omitempty" example:"Lovelace"`
	// Date of birth, formatted YYYY-MM-DD.
	// example: 1990-04-12
	DOB string `json:"dob" validate:"required,datetime=2006-01-02" example:"1990-04-12"`
	// Gender as reported by the user.
	// example: female
	Gender string `json:"gender" validate:"required" example:"female"`
	// Free-text medical conditions; "none" or empty means none.
	// example: asthma
	MedicalConditions string `json:"medical_conditions,omitempty" example:"asthma"`
	// Free-text current medications; "none" or empty means none.
	// example: albuterol
	Medications string `json:"medications,omitempty" example:"albuterol"`
	// Free-text health goals; "none" or empty means none.
	// example: improve sleep
	HealthGoals string `json:"health_goals,omitempty" example:"improve sleep"`
}

// ChatRequest is the payload of POST /chat/stream.
type ChatRequest struct {
	// The user's question.
	// example: How much water should I drink per day?
	Prompt string `json:"newPrompt" example:"How much water should I drink per day?"`
	// Profile of the user asking the question.
	Profile *UserProfile `json:"userProfile"`
	// Optional cap on generated fragments; bounded by the server maximum.
	// example: 256
	MaxTokens int `json:"max_tokens,omitempty" validate:"gte=0" example:"256"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// HealthResponse is returned by GET /health. Producing it never loads the engine.
type HealthResponse struct {
	// Always "ok" when the process is serving.
	// example: ok
	Status string `json:"status" example:"ok"`
	// Host memory in use, percent of total. Zero when unknown.
	// example: 63.5
	MemoryUsedPercent float64 `json:"memory_used_percent" example:"63.5"`
	// Resident memory of this process in bytes.
	// example: 5368709120
	ResidentBytes uint64 `json:"resident_bytes" example:"5368709120"`
	// Resident memory of this process in MB.
	// example: 5120
	ResidentMB uint64 `json:"resident_mb" example:"5120"`
	// Host memory available for new allocations in MB.
	// example: 8192
	AvailableMB uint64 `json:"available_mb" example:"8192"`
	// Whether the inference engine is currently resident.
	// example: true
	EngineLoaded bool `json:"engine_loaded" example:"true"`
	// Last time the engine was used (unix seconds); 0 if never.
	// example: 1700000000
	LastUsedUnix int64 `json:"last_used_unix" example:"1700000000"`
	// Seconds since the engine was last used; 0 if never.
	// example: 42
	IdleSeconds int64 `json:"idle_seconds" example:"42"`
	// Generations currently streaming.
	// example: 1
	Inflight int64 `json:"inflight" example:"1"`
	// Generations waiting for admission.
	// example: 0
	Waiting int64 `json:"waiting" example:"0"`
	// Generation admission mode (serialized or concurrent).
	// example: serialized
	GenerationMode string `json:"generation_mode" example:"serialized"`
	// Total number of successful engine loads.
	// example: 3
	LoadsTotal uint64 `json:"loads_total" example:"3"`
	// Total number of failed engine loads.
	// example: 0
	LoadFailuresTotal uint64 `json:"load_failures_total" example:"0"`
	// Total number of engine evictions.
	// example: 2
	EvictionsTotal uint64 `json:"evictions_total" example:"2"`
	// Whether the service is draining for shutdown.
	// example: false
	Draining bool `json:"draining" example:"false"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Optional error from memory sampling.
	MemoryError string `json:"memory_error,omitempty"`
}

// PreflightReport summarizes startup checks.
type PreflightReport struct {
	// Resolved model artifact path.
	ModelPath string `json:"model_path"`
	// Whether the artifact exists and is a regular file.
	ModelFound bool `json:"model_found"`
	// Artifact size in MB.
	ModelSizeMB uint64 `json:"model_size_mb"`
	// Host memory available in MB (0 when unknown).
	AvailableMB uint64 `json:"available_mb"`
	// Minimum available memory required to load, in MB.
	RequiredMB uint64 `json:"required_mb"`
	// Whether the binary was compiled with the in-process engine.
	EngineBuilt bool `json:"engine_built"`
	// Error describing the first failed check, if any.
	Error string `json:"error,omitempty"`
}
