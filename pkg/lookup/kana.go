package lookup

// ToHiragana converts katakana ァ through ヴ to hiragana, leaving other
// runes unchanged. The counters ヵ and ヶ keep their katakana form.
func ToHiragana(s string) string {
	runes := []rune(s)
	changed := false
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F4 {
			runes[i] = r - 0x60
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(runes)
}
