package types

// Model describes a model artifact found on disk.
type Model struct {
	// File name of the artifact.
	// example: Mistral-7B-Instruct-v0.3.Q5_K_S.gguf
	ID string `json:"id" example:"Mistral-7B-Instruct-v0.3.Q5_K_S.gguf"`
	// Absolute path to the model file on disk.
	// example: /srv/models/Mistral-7B-Instruct-v0.3.Q5_K_S.gguf
	Path string `json:"path" example:"/srv/models/Mistral-7B-Instruct-v0.3.Q5_K_S.gguf"`
	// Size of the artifact in bytes.
	// example: 5002000000
	SizeBytes int64 `json:"size_bytes" example:"5002000000"`
	// Quantization variant parsed from the file name, if any.
	// example: Q5_K_S
	Quant string `json:"quant,omitempty" example:"Q5_K_S"`
}
