package espeak

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/dgnsrekt/readalong/tts"
	"github.com/dgnsrekt/readalong/tts/voices"
)

// espeakDefaultVoice is the voice espeak-ng uses without -v.
const espeakDefaultVoice = "en"

// parseEspeakVoices parses `espeak-ng --voices`:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  af              --/M      Afrikaans          gmw/af
//	 2  en-us           --/M      English_(America)  gmw/en-US     (en 3)
func parseEspeakVoices(out string) []tts.Voice {
	var list []tts.Voice
	seen := make(map[string]bool)
	hasDefault := false

	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 5 || fields[0] == "Pty" {
			continue
		}

		id := fields[1]
		if seen[id] {
			continue
		}
		seen[id] = true

		v := tts.Voice{
			ID:       id,
			Name:     strings.ReplaceAll(fields[3], "_", " "),
			Language: voices.CanonicalTag(id),
			Local:    true,
			Default:  id == espeakDefaultVoice,
		}
		hasDefault = hasDefault || v.Default
		list = append(list, v)
	}

	if !hasDefault {
		for i := range list {
			if strings.HasPrefix(list[i].ID, "en") {
				list[i].Default = true
				break
			}
		}
	}
	return list
}

var sayVoiceLine = regexp.MustCompile(`^(.+?)\s+([a-z]{2,3}[_-][A-Za-z0-9]+)\s+#`)

// parseSayVoices parses `say -v '?'`:
//
//	Alex                en_US    # Most people recognize me by my voice.
//	Eddy (English (US)) en_US    # Hello! My name is Eddy.
//
// say speaks with the system voice when none is given, so no voice is
// marked as the default.
func parseSayVoices(out string) []tts.Voice {
	var list []tts.Voice

	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		m := sayVoiceLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		list = append(list, tts.Voice{
			ID:       name,
			Name:     name,
			Language: voices.CanonicalTag(m[2]),
			Local:    true,
		})
	}
	return list
}
