package playback

import "strings"

// SelectVoice picks a voice name for preferences.
//
// Each preference is tried in order against voice names and descriptions, case-insensitively.
// With no match it falls back to the synthesizer default, then the first voice, then "".
func SelectVoice(voices []Voice, preferences []string) string {
	for _, pref := range preferences {
		pref = strings.ToLower(strings.TrimSpace(pref))
		if pref == "" {
			continue
		}
		for _, v := range voices {
			if strings.Contains(strings.ToLower(v.Name), pref) ||
				strings.Contains(strings.ToLower(v.Description), pref) {
				return v.Name
			}
		}
	}

	for _, v := range voices {
		if v.Default {
			return v.Name
		}
	}
	if len(voices) > 0 {
		return voices[0].Name
	}
	return ""
}
