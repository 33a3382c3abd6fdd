package requests

import "regexp"

// Accepted showcase hosts and path shapes; the capture group is the
// 11-character video id used for the card thumbnail.
var showcasePattern = regexp.MustCompile(
	`(?i)^((?:https?:)?//)?((?:www|m)\.)?((?:youtube(?:-nocookie)?\.com|youtu\.be))(/(?:[\w\-]+\?v=|embed/|live/|v/)?)([\w\-]{11})([?&]\S+)?$`,
)

// ShowcaseVideoID extracts the video id from a showcase link, or returns
// ErrInvalidShowcaseLink when the link doesn't match the accepted shape.
func ShowcaseVideoID(link string) (string, error) {
	match := showcasePattern.FindStringSubmatch(link)
	if match == nil {
		return "", ErrInvalidShowcaseLink
	}
	return match[5], nil
}
