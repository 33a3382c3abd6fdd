package types

import (
	"fmt"
	"time"
)

// Review languages
type Language string

const (
	LanguageEnglish Language = "eng"
	LanguageRussian Language = "rus"
)

// Verdict of a single reviewer or moderator
type Verdict string

const (
	VerdictApproved Verdict = "approved"
	VerdictRejected Verdict = "rejected"
)

// Grade requested when a level is approved
type GradeType string

const (
	GradeStarrate  GradeType = "s"
	GradeFeature   GradeType = "f"
	GradeEpic      GradeType = "e"
	GradeMythic    GradeType = "m"
	GradeLegendary GradeType = "l"
)

// Kinds of entities a cooldown can be cast on
type CooldownEntity string

const (
	CooldownEntityUser  CooldownEntity = "user"
	CooldownEntityLevel CooldownEntity = "level"
)

// Level review requests
type Request struct {
	ID                uint64   `gorm:"primaryKey"`
	LevelID           uint64   `gorm:"index;not null"`
	Language          Language `gorm:"size:8;not null"`
	LevelName         string   `gorm:"size:64"`
	ShowcaseLink      string   `gorm:"size:128"`
	AdditionalComment string   `gorm:"size:512"`
	RequestAuthor     string   `gorm:"size:64;not null"`
	IsAuthorUserID    bool     `gorm:"not null"`
	CreatedAt         time.Time
	RequestedAt       *time.Time `gorm:"index"`

	// Weak references to externally rendered messages. Their lifetime is
	// owned by Discord, not by this table.
	DetailsChannelID    string `gorm:"size:64"`
	DetailsMessageID    string `gorm:"size:64"`
	ResolutionChannelID string `gorm:"size:64"`
	ResolutionMessageID string `gorm:"size:64"`

	// Claim markers. Each is set at most once via a conditional update so
	// that "first opinion" and "first resolution" are decided exactly once.
	WidgetClaimedAt *time.Time
	ResolvedAt      *time.Time

	Opinions []RequestOpinion `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
	Reviews  []RequestReview  `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
}

// AuthorMention renders the request author either as a Discord mention or
// as the opaque display string it was recorded as.
func (r *Request) AuthorMention() string {
	if r.IsAuthorUserID {
		return fmt.Sprintf("<@%s>", r.RequestAuthor)
	}
	return r.RequestAuthor
}

// Reviewer verdicts, append-only. Reason keeps the short free-form
// reasoning so tally renderings can be regenerated from rows alone.
type RequestOpinion struct {
	ID           uint64 `gorm:"primaryKey"`
	RequestID    uint64 `gorm:"index;not null"`
	AuthorUserID string `gorm:"size:64;not null"`
	Verdict      Verdict `gorm:"size:16;not null"`
	IsResolution bool    `gorm:"not null;default:false"`
	Reason       string  `gorm:"size:256"`
	ReviewID     *uint64
	CreatedAt    time.Time
}

// Full-text reviews accompanying an opinion
type RequestReview struct {
	ID               uint64 `gorm:"primaryKey"`
	RequestID        uint64 `gorm:"index;not null"`
	AuthorUserID     string `gorm:"size:64;not null"`
	Text             string `gorm:"type:text;not null"`
	Verdict          Verdict `gorm:"size:16;not null"`
	MessageChannelID string  `gorm:"size:64"`
	MessageID        string  `gorm:"size:64"`
	CreatedAt        time.Time
}

// Cooldowns; at most one row per (entity, entity id). A missing row means
// the entity is unrestricted. EndsAt == nil means the cooldown is endless.
type Cooldown struct {
	Entity           CooldownEntity `gorm:"primaryKey;size:16"`
	EntityID         string         `gorm:"primaryKey;size:64"`
	CastAt           time.Time      `gorm:"not null"`
	EndsAt           *time.Time     `gorm:"index"`
	Reason           string         `gorm:"size:256"`
	CasterUserID     string         `gorm:"size:64"`
	CausingRequestID *uint64
}

func (c *Cooldown) Endless() bool {
	return c.EndsAt == nil
}

// Parameter overrides; defaults live in code
type ParameterValue struct {
	ID    string `gorm:"primaryKey;size:64"`
	Value string `gorm:"size:256;not null"`
}

// Message routes
type Route struct {
	ID        string `gorm:"primaryKey;size:64"`
	ChannelID string `gorm:"size:64"`
	Enabled   bool   `gorm:"not null;default:true"`
}

// Permission flag to role bindings
type PermissionFlag struct {
	ID     string `gorm:"primaryKey;size:64"`
	RoleID string `gorm:"primaryKey;size:64"`
}

// Audit log entries
type LoggedEvent struct {
	ID         uint64    `gorm:"primaryKey"`
	Timestamp  time.Time `gorm:"index;not null"`
	EventType  string    `gorm:"size:64;index;not null"`
	UserID     string    `gorm:"size:64"`
	CustomData string    `gorm:"type:text;not null;default:'{}'"`
}

// Settings
type Setting struct {
	ID    uint8  `gorm:"primaryKey"`
	Name  string `gorm:"size:32;not null"`
	Value string `gorm:"size:256;not null"`
}
