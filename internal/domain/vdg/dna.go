// Package vdg holds the value types the analysis pipeline normalizes
// heterogeneous VDG (video-DNA-genome) schema blobs into. Unlike most of
// internal/domain, NormalizedDNA is never persisted as its own table — it is
// inlined into Artifact.DataJSON and PatternNode.GeminiAnalysis-derived rows,
// so it carries json tags only, no gorm tags.
package vdg

// PatternType classifies a NormalizedDNA by which modality carries its hook.
type PatternType string

const (
	PatternTypeSemantic PatternType = "semantic"
	PatternTypeVisual   PatternType = "visual"
	PatternTypeAudio    PatternType = "audio"
	PatternTypeHybrid   PatternType = "hybrid"
)

// Hook is the opening-beat descriptor every NormalizedDNA carries.
type Hook struct {
	Type        string  `json:"type"`
	DurationSec float64 `json:"duration_sec"`
	Delivery    string  `json:"delivery,omitempty"`
}

// AudioFlags summarizes the audio track's format signals.
type AudioFlags struct {
	IsTrending     bool     `json:"is_trending"`
	DominantStems  []string `json:"dominant_stems,omitempty"`
}

// NormalizedDNA is the single normalized shape every supported VDG schema
// version is mapped down to (spec §4.2). Clustering, STPF, and the coaching
// rule evaluator never see a raw VDG blob — only this.
type NormalizedDNA struct {
	Hook             Hook        `json:"hook"`
	MicrobeatSequence []string   `json:"microbeat_sequence"`
	VisualPatterns    []string   `json:"visual_patterns"`
	AudioFlags        AudioFlags `json:"audio_flags"`
	PatternType       PatternType `json:"pattern_type"`
}
