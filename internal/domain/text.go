package domain

import "strings"

func titleWords(title string, from, to int) string {
	words := strings.Fields(title)
	if from >= len(words) {
		return ""
	}
	if to > len(words) {
		to = len(words)
	}
	return strings.Join(words[from:to], " ")
}
