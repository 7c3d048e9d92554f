// Package normalize maps a VDG analysis_schema blob (any supported
// schema_version, v3.0 through v4.x) down to a single internal/domain/vdg
// NormalizedDNA shape (spec.md §4.2). It is the only code in the module
// that branches on schema_version; everything downstream only ever sees a
// NormalizedDNA.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	domainvdg "github.com/ds4psb/komission-core/internal/domain/vdg"
)

// Normalize accepts a raw VDG analysis_schema blob and produces a
// NormalizedDNA. It never errors on shape drift: missing sections degrade to
// empty/default values, and unknown keys are ignored. The one error path is
// malformed JSON, which callers should log and skip rather than abort a batch
// (spec.md §4.2 "Failure").
func Normalize(raw json.RawMessage) (*domainvdg.NormalizedDNA, error) {
	var tree map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("normalize: malformed vdg schema: %w", err)
		}
	}
	if tree == nil {
		tree = map[string]any{}
	}

	hook := normalizeHook(tree)
	microbeats := normalizeMicrobeats(tree)
	visual := normalizeVisualPatterns(tree)
	audio := normalizeAudioFlags(tree)

	dna := &domainvdg.NormalizedDNA{
		Hook:              hook,
		MicrobeatSequence: microbeats,
		VisualPatterns:    visual,
		AudioFlags:        audio,
	}
	dna.PatternType = classifyPatternType(dna)
	return dna, nil
}

func normalizeHook(tree map[string]any) domainvdg.Hook {
	hookGenome := objectAt(tree, "hook_genome")
	hookSection := objectAt(tree, "hook")

	hookType := stringAt(hookGenome, "pattern")
	if hookType == "" {
		hookType = stringAt(hookSection, "attention_technique")
	}

	duration := 0.0
	if start, ok := floatAtOK(hookGenome, "start_sec"); ok {
		if end, ok := floatAtOK(hookGenome, "end_sec"); ok {
			duration = end - start
		}
	}
	if duration == 0 {
		duration = floatAt(hookSection, "hook_duration_sec")
	}

	return domainvdg.Hook{
		Type:        hookType,
		DurationSec: duration,
		Delivery:    stringAt(hookSection, "delivery"),
	}
}

// normalizeMicrobeats prefers hook_genome.microbeats, each concatenated as
// "role:cue". When absent, it synthesizes a sequence from scenes[].shots[]
// by pairing each shot's visual_pattern with its audio_pattern.
func normalizeMicrobeats(tree map[string]any) []string {
	hookGenome := objectAt(tree, "hook_genome")
	if beats, ok := sliceAt(hookGenome, "microbeats"); ok {
		out := make([]string, 0, len(beats))
		for _, b := range beats {
			bm, ok := b.(map[string]any)
			if !ok {
				continue
			}
			role := stringAt(bm, "role")
			cue := stringAt(bm, "cue")
			out = append(out, role+":"+cue)
		}
		if len(out) > 0 {
			return out
		}
	}

	out := []string{}
	scenes, _ := sliceAt(tree, "scenes")
	for _, s := range scenes {
		scene, ok := s.(map[string]any)
		if !ok {
			continue
		}
		shots, _ := sliceAt(scene, "shots")
		for _, sh := range shots {
			shot, ok := sh.(map[string]any)
			if !ok {
				continue
			}
			visual := stringAt(shot, "visual_pattern")
			audio := stringAt(shot, "audio_pattern")
			if visual == "" && audio == "" {
				continue
			}
			out = append(out, visual+":"+audio)
		}
	}
	return out
}

// normalizeVisualPatterns flattens scenes[].shots[].camera.move, preserving
// insertion order.
func normalizeVisualPatterns(tree map[string]any) []string {
	out := []string{}
	scenes, _ := sliceAt(tree, "scenes")
	for _, s := range scenes {
		scene, ok := s.(map[string]any)
		if !ok {
			continue
		}
		shots, _ := sliceAt(scene, "shots")
		for _, sh := range shots {
			shot, ok := sh.(map[string]any)
			if !ok {
				continue
			}
			camera := objectAt(shot, "camera")
			if move := stringAt(camera, "move"); move != "" {
				out = append(out, move)
			}
		}
	}
	return out
}

func normalizeAudioFlags(tree map[string]any) domainvdg.AudioFlags {
	reaction := objectAt(tree, "audience_reaction")
	audio := objectAt(tree, "audio")
	trending := boolAt(audio, "is_trending")
	if !trending {
		trending = boolAt(reaction, "audio_is_trending")
	}

	var stems []string
	if raw, ok := sliceAt(audio, "dominant_stems"); ok {
		for _, s := range raw {
			if str, ok := s.(string); ok {
				stems = append(stems, str)
			}
		}
	}

	return domainvdg.AudioFlags{
		IsTrending:    trending,
		DominantStems: stems,
	}
}

// classifyPatternType applies spec.md §4.2's rules over normalized fields:
// a text hook is semantic, a camera-move hook is visual, trending audio is
// audio, and any combination of those signals is hybrid.
func classifyPatternType(dna *domainvdg.NormalizedDNA) domainvdg.PatternType {
	isText := isTextHook(dna.Hook.Type)
	isCameraMove := len(dna.VisualPatterns) > 0 && !isText
	isAudio := dna.AudioFlags.IsTrending

	signals := 0
	if isText {
		signals++
	}
	if isCameraMove {
		signals++
	}
	if isAudio {
		signals++
	}

	switch {
	case signals > 1:
		return domainvdg.PatternTypeHybrid
	case isText:
		return domainvdg.PatternTypeSemantic
	case isCameraMove:
		return domainvdg.PatternTypeVisual
	case isAudio:
		return domainvdg.PatternTypeAudio
	default:
		return domainvdg.PatternTypeSemantic
	}
}

func isTextHook(hookType string) bool {
	lower := strings.ToLower(hookType)
	return strings.Contains(lower, "text") || strings.Contains(lower, "caption") || strings.Contains(lower, "overlay")
}

// --- map[string]any traversal helpers (schema-version tolerant extraction) ---

func objectAt(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

func sliceAt(m map[string]any, key string) ([]any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key].([]any)
	return v, ok
}

func stringAt(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func floatAt(m map[string]any, key string) float64 {
	v, _ := floatAtOK(m, key)
	return v
}

func floatAtOK(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func boolAt(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	v, _ := m[key].(bool)
	return v
}
