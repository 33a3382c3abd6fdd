package discord

import (
	"fmt"
	"time"
)

type TimestampStyle string

const (
	TimestampShort        TimestampStyle = "f"
	TimestampLongDatetime TimestampStyle = "F"
	TimestampRelative     TimestampStyle = "R"
)

func AsCode(s string) string {
	return fmt.Sprintf("`%s`", s)
}

func AsCodeBlock(s string) string {
	return fmt.Sprintf("```\n%s\n```", s)
}

func AsLink(url, label string) string {
	return fmt.Sprintf("[%s](%s)", label, url)
}

func AsUser(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

func AsRole(roleID string) string {
	return fmt.Sprintf("<@&%s>", roleID)
}

func AsTimestamp(t time.Time, style TimestampStyle) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}
