package audio

// AudioSignalResult is the verdict for one audio buffer
type AudioSignalResult struct {
	HasAudio          bool    `json:"hasAudio"`
	AudioLevel        float64 `json:"audioLevel"`
	MultipleSpeakers  bool    `json:"multipleSpeakers"`
	SuspiciousPattern bool    `json:"suspiciousPattern"`
	Confidence        float64 `json:"confidence"`
}

// Flags returns the names of the raised flags
func (r *AudioSignalResult) Flags() []string {
	var flags []string
	if r.MultipleSpeakers {
		flags = append(flags, "multiple_speakers")
	}
	if r.SuspiciousPattern {
		flags = append(flags, "sudden_spike")
	}
	return flags
}
