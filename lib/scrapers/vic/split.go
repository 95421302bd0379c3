package vic

import "strings"

// CatalystMarker is the word that starts the catalyst section of an idea.
const CatalystMarker = "Catalyst"

// SplitLastOccurrence splits text at the last occurrence of marker.
//
// Everything before the last occurrence is the head, earlier occurrences of
// the marker stay in it as they are. Everything after it is the tail with a
// leading ":" separator removed. Both are trimmed. When marker does not occur
// the whole text is the head and the tail is empty.
//
// The marker can show up inside the description prose, only the last one is
// treated as the section boundary. A catalyst section that repeats the marker
// itself will be split too late. The marker is matched as a plain substring,
// so a "Catalysts" heading leaves "s" at the start of the tail.
func SplitLastOccurrence(text, marker string) (head, tail string) {
	idx := strings.LastIndex(text, marker)
	if marker == "" || idx < 0 {
		return strings.TrimSpace(text), ""
	}
	head = strings.TrimSpace(text[:idx])
	tail = strings.TrimSpace(text[idx+len(marker):])
	tail = strings.TrimSpace(strings.TrimPrefix(tail, ":"))
	return head, tail
}
