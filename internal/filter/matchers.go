package filter

import (
	"strconv"
	"strings"

	"ygnbus/internal/domain"
)

// MatchStop matches on the localized and English stop names.
func MatchStop(stop domain.Stop, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(stop.NameMM), lowerQuery) ||
		strings.Contains(strings.ToLower(stop.NameEN), lowerQuery)
}

// MatchLine matches on the line number and the line id.
func MatchLine(line domain.Line, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(line.LineNumber), lowerQuery) ||
		strings.Contains(strconv.Itoa(line.ID), lowerQuery)
}

func StopKey(stop domain.Stop) string {
	return strconv.Itoa(stop.ID)
}

func LineKey(line domain.Line) string {
	return strconv.Itoa(line.ID)
}

func NewStopList(batchSize int) *List[domain.Stop] {
	return New(batchSize, MatchStop, StopKey)
}

func NewLineList(batchSize int) *List[domain.Line] {
	return New(batchSize, MatchLine, LineKey)
}
