package widget

import (
	"strings"

	"github.com/sendcrew/reqbot/src/discord"
	"github.com/sendcrew/reqbot/src/shared/types"
)

// Entry is one reviewer's contribution to a tally side. ReviewRef points
// at the posted review message when the opinion came with one; Reason is
// the short free-form justification otherwise.
type Entry struct {
	AuthorUserID string
	ReviewRef    discord.Ref
	Reason       string
}

// Resolution is a tally entry that ended the pending phase.
type Resolution struct {
	Entry
	Verdict types.Verdict
}

// Tally is the structured consensus state of one request, regenerated
// from Opinion rows on every rendering. The rendered card is a pure
// projection of it and is never parsed back.
type Tally struct {
	Approvals   []Entry
	Rejections  []Entry
	Resolutions []Resolution
}

// Resolved reports whether any resolution has been recorded.
func (t Tally) Resolved() bool {
	return len(t.Resolutions) > 0
}

// BuildTally projects opinion rows into a tally. Reviews are matched to
// opinions through the opinion's review id.
func BuildTally(opinions []types.RequestOpinion, reviews []types.RequestReview) Tally {
	byID := make(map[uint64]types.RequestReview, len(reviews))
	for _, review := range reviews {
		byID[review.ID] = review
	}

	var tally Tally
	for _, opinion := range opinions {
		entry := Entry{
			AuthorUserID: opinion.AuthorUserID,
			Reason:       opinion.Reason,
		}
		if opinion.ReviewID != nil {
			if review, ok := byID[*opinion.ReviewID]; ok {
				entry.ReviewRef = discord.Ref{
					ChannelID: review.MessageChannelID,
					MessageID: review.MessageID,
				}
			}
		}

		if opinion.IsResolution {
			tally.Resolutions = append(tally.Resolutions, Resolution{Entry: entry, Verdict: opinion.Verdict})
			continue
		}
		if opinion.Verdict == types.VerdictApproved {
			tally.Approvals = append(tally.Approvals, entry)
		} else {
			tally.Rejections = append(tally.Rejections, entry)
		}
	}
	return tally
}

func (r *Reconciler) renderEntry(entry Entry) string {
	text := discord.AsUser(entry.AuthorUserID)
	switch {
	case !entry.ReviewRef.IsZero():
		text += " (" + discord.AsLink(r.notifier.JumpURL(entry.ReviewRef), "Review") + ")"
	case entry.Reason != "":
		text += " (" + discord.AsCode(entry.Reason) + ")"
	}
	return text
}

func (r *Reconciler) renderSide(entries []Entry) string {
	if len(entries) == 0 {
		return "No votes yet"
	}
	rendered := make([]string, len(entries))
	for i, entry := range entries {
		rendered[i] = r.renderEntry(entry)
	}
	return strings.Join(rendered, ", ")
}

// renderConsensus renders the non-resolution verdict lines, one per side.
func (r *Reconciler) renderConsensus(tally Tally) string {
	return emojiYes + ": " + r.renderSide(tally.Approvals) + "\n" +
		emojiNo + ": " + r.renderSide(tally.Rejections)
}

// renderResolutions renders the resolution list; empty when none exist.
func (r *Reconciler) renderResolutions(tally Tally) string {
	if len(tally.Resolutions) == 0 {
		return ""
	}
	rendered := make([]string, len(tally.Resolutions))
	for i, resolution := range tally.Resolutions {
		emoji := emojiYes
		if resolution.Verdict == types.VerdictRejected {
			emoji = emojiNo
		}
		rendered[i] = emoji + ": " + r.renderEntry(resolution.Entry)
	}
	return strings.Join(rendered, ", ")
}
