// Package invite extracts meeting fields from pasted video-conferencing invite text.
package invite

import (
	"regexp"
	"strings"
)

// ParsedInvite holds the fields found in an invite. Each field is nil when it was not found.
type ParsedInvite struct {
	MeetingURL *string `json:"meetingUrl"`
	MeetingID  *string `json:"meetingId"`
	Passcode   *string `json:"passcode"`
	Topic      *string `json:"topic"`
	DateTime   *string `json:"dateTime"`
}

// IsEmpty reports whether no field was found.
func (p ParsedInvite) IsEmpty() bool {
	return p.MeetingURL == nil && p.MeetingID == nil && p.Passcode == nil && p.Topic == nil && p.DateTime == nil
}

var (
	// join link: scheme, a zoom.us host (any subdomain), a lettered path segment, a numeric meeting segment
	meetingURLPattern = regexp.MustCompile(`https?://[A-Za-z0-9.-]*zoom\.us/[A-Za-z]+/\d+(?:\?[^\s)\]>,]*)?`)
	// digit run may be space-grouped but never crosses a line break
	meetingIDPattern = regexp.MustCompile(`(?i)meeting\s+id:[ \t]*(\d[\d \t]*)`)
	passcodePattern  = regexp.MustCompile(`(?i)\b(?:passcode|password):[ \t]*(\S+)`)
	topicPattern     = regexp.MustCompile(`(?i)\btopic:([^\r\n]*)`)
	timePattern      = regexp.MustCompile(`(?i)\btime:([^\r\n]*)`)
	digitSpacing     = regexp.MustCompile(`[ \t]+`)
)

// Parse extracts invite fields from arbitrary text. It never fails; absent labels leave fields nil.
// Fields are matched independently and the first match wins for each.
func Parse(text string) ParsedInvite {
	var p ParsedInvite
	if strings.TrimSpace(text) == "" {
		return p
	}

	if url := meetingURLPattern.FindString(text); url != "" {
		p.MeetingURL = &url
	}

	if m := meetingIDPattern.FindStringSubmatch(text); m != nil {
		if id := digitSpacing.ReplaceAllString(m[1], ""); id != "" {
			p.MeetingID = &id
		}
	}

	if m := passcodePattern.FindStringSubmatch(text); m != nil {
		code := m[1]
		p.Passcode = &code
	}

	p.Topic = lineValue(topicPattern, text)
	p.DateTime = lineValue(timePattern, text)

	return p
}

// lineValue returns the trimmed rest of the line after the first label match, or nil when empty.
func lineValue(pattern *regexp.Regexp, text string) *string {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	value := strings.TrimSpace(m[1])
	if value == "" {
		return nil
	}
	return &value
}
