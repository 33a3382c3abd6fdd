// Package catalog looks up submitted-level metadata from the upstream
// level server. The upstream is aggressively rate limited, so all calls
// are serialized behind one mutex with a fixed minimum spacing: at most
// one request in flight, regardless of how many callers are waiting.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultEndpoint    = "http://www.boomlings.com/database/getGJLevels21.php"
	defaultMinInterval = 600 * time.Millisecond
	apiSecret          = "Wmfd2893gb7"
)

type Client struct {
	http        *http.Client
	endpoint    string
	minInterval time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

func NewClient() *Client {
	return &Client{
		http:        &http.Client{Timeout: 30 * time.Second},
		endpoint:    defaultEndpoint,
		minInterval: defaultMinInterval,
	}
}

// GetLevel fetches a level by id. A (nil, nil) return means the level does
// not exist upstream.
func (c *Client) GetLevel(ctx context.Context, levelID uint64) (*Level, error) {
	raw, err := c.perform(ctx, url.Values{
		"type": {"19"},
		"str":  {strconv.FormatUint(levelID, 10)},
	})
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	return parseLevel(raw)
}

func (c *Client) perform(ctx context.Context, form url.Values) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if wait := c.minInterval - time.Since(c.lastCall); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	form.Set("secret", apiSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// The upstream rejects requests with a default Go user agent.
	req.Header.Set("User-Agent", "")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.lastCall = time.Now()
	if err != nil {
		return "", fmt.Errorf("catalog response: %w", err)
	}

	text := string(body)
	if text == "-1" {
		return "", nil
	}
	return text, nil
}

func parseLevel(raw string) (*Level, error) {
	parts := strings.Split(raw, "#")
	fields := parseFields(parts[0])
	if len(fields) == 0 {
		return nil, fmt.Errorf("catalog: malformed level payload")
	}

	authorName := "Anonymous Creator"
	if len(parts) > 1 {
		if segments := strings.Split(parts[1], ":"); len(segments) > 1 {
			authorName = segments[1]
		}
	}

	stars := atoiField(fields, fieldStars)
	copiedID := atoiField(fields, fieldCopiedID)

	return &Level{
		Name:           fields[fieldLevelName],
		AuthorName:     authorName,
		Difficulty:     parseDifficulty(fields),
		Stars:          stars,
		StarsRequested: atoiField(fields, fieldRequestedStars),
		GameVersion:    parseGameVersion(atoiField(fields, fieldGameVersion)),
		Length:         Length(atoiField(fields, fieldLength)),
		Grade:          parseGrade(fields, stars),
		CopiedLevelID:  uint64(copiedID),
	}, nil
}

func parseFields(segment string) map[int]string {
	tokens := strings.Split(segment, ":")
	fields := make(map[int]string, len(tokens)/2)
	for i := 0; i+1 < len(tokens); i += 2 {
		key, err := strconv.Atoi(tokens[i])
		if err != nil {
			continue
		}
		fields[key] = tokens[i+1]
	}
	return fields
}

func atoiField(fields map[int]string, key int) int {
	n, _ := strconv.Atoi(fields[key])
	return n
}

func parseDifficulty(fields map[int]string) Difficulty {
	if fields[fieldAuto] == "1" {
		return DifficultyAuto
	}
	if fields[fieldDemon] == "1" {
		switch fields[fieldDemonDifficulty] {
		case "3":
			return DifficultyEasyDemon
		case "4":
			return DifficultyMediumDemon
		case "5":
			return DifficultyInsaneDemon
		case "6":
			return DifficultyExtremeDemon
		default:
			return DifficultyHardDemon
		}
	}
	switch fields[fieldDifficultyNum] {
	case "10":
		return DifficultyEasy
	case "20":
		return DifficultyNormal
	case "30":
		return DifficultyHard
	case "40":
		return DifficultyHarder
	case "50":
		return DifficultyInsane
	default:
		return DifficultyUnrated
	}
}

// parseGameVersion decodes the packed version number: 1.0-1.6 are stored
// as 1-7, 1.7 as 10, everything newer as tens.
func parseGameVersion(n int) string {
	switch {
	case n <= 7:
		return fmt.Sprintf("1.%d", n-1)
	case n == 10:
		return "1.7"
	default:
		return fmt.Sprintf("%.1f", float64(n)/10)
	}
}

func parseGrade(fields map[int]string, stars int) Grade {
	if stars == 0 {
		return GradeUnrated
	}
	if fields[fieldFeatureScore] == "0" {
		return GradeRated
	}
	switch fields[fieldEpic] {
	case "1":
		return GradeEpic
	case "2":
		return GradeLegendary
	case "3":
		return GradeMythic
	default:
		return GradeFeatured
	}
}
