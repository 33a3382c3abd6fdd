// Package texts renders user-facing message templates. Template storage
// and full localization live outside this bot; this table only carries the
// pieces the engines themselves post.
package texts

import (
	"strings"

	"github.com/sendcrew/reqbot/src/shared/types"
)

type PieceID string

const (
	RequestReview           PieceID = "request_review"
	RequestSummaryGood      PieceID = "request_summary_good"
	RequestSummaryBad       PieceID = "request_summary_bad"
	RequestApproved         PieceID = "request_approved"
	RequestApprovalAddendum PieceID = "request_approval_addendum"
	RequestRejected         PieceID = "request_rejected"
	GradeStarrate           PieceID = "grade_starrate"
	GradeFeatured           PieceID = "grade_featured"
	GradeEpic               PieceID = "grade_epic"
	GradeMythic             PieceID = "grade_mythic"
	GradeLegendary          PieceID = "grade_legendary"
	CommonNotSpecified      PieceID = "common_not_specified"
)

var templates = map[PieceID]map[types.Language]string{
	RequestReview: {
		types.LanguageEnglish: "${request_author}, your level ${level_name} (${level_id}) was reviewed by ${reviewer_mention}:\n${review_text}${summary}",
		types.LanguageRussian: "${request_author}, ваш уровень ${level_name} (${level_id}) был проверен ${reviewer_mention}:\n${review_text}${summary}",
	},
	RequestSummaryGood: {
		types.LanguageEnglish: "The level is recommended for a rate.",
		types.LanguageRussian: "Уровень рекомендован к оценке.",
	},
	RequestSummaryBad: {
		types.LanguageEnglish: "The level is not recommended for a rate.",
		types.LanguageRussian: "Уровень не рекомендован к оценке.",
	},
	RequestApproved: {
		types.LanguageEnglish: "${request_author}, your level ${level_name} (${level_id}) was approved and sent for ${grade} by ${responsible_mod_mention}!",
		types.LanguageRussian: "${request_author}, ваш уровень ${level_name} (${level_id}) одобрен и отправлен на ${grade} модератором ${responsible_mod_mention}!",
	},
	RequestApprovalAddendum: {
		types.LanguageEnglish: "Moderator's comment: ${comment}",
		types.LanguageRussian: "Комментарий модератора: ${comment}",
	},
	RequestRejected: {
		types.LanguageEnglish: "${request_author}, your level ${level_name} (${level_id}) was rejected by ${responsible_mod_mention}. Reason: ${reason}",
		types.LanguageRussian: "${request_author}, ваш уровень ${level_name} (${level_id}) отклонён модератором ${responsible_mod_mention}. Причина: ${reason}",
	},
	GradeStarrate: {
		types.LanguageEnglish: "a star rate",
		types.LanguageRussian: "звёзды",
	},
	GradeFeatured: {
		types.LanguageEnglish: "a feature",
		types.LanguageRussian: "фичер",
	},
	GradeEpic: {
		types.LanguageEnglish: "an epic rate",
		types.LanguageRussian: "эпик",
	},
	GradeMythic: {
		types.LanguageEnglish: "a mythic rate",
		types.LanguageRussian: "мифик",
	},
	GradeLegendary: {
		types.LanguageEnglish: "a legendary rate",
		types.LanguageRussian: "легендарный рейт",
	},
	CommonNotSpecified: {
		types.LanguageEnglish: "not specified",
		types.LanguageRussian: "не указана",
	},
}

// Render substitutes ${key} placeholders in the requested language,
// falling back to English for missing translations.
func Render(id PieceID, lang types.Language, subs map[string]string) string {
	byLang, ok := templates[id]
	if !ok {
		return string(id)
	}

	template, ok := byLang[lang]
	if !ok {
		template = byLang[types.LanguageEnglish]
	}

	if len(subs) == 0 {
		return template
	}

	pairs := make([]string, 0, len(subs)*2)
	for key, value := range subs {
		pairs = append(pairs, "${"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// GradePiece maps a requested grade to its wording.
func GradePiece(grade types.GradeType) PieceID {
	switch grade {
	case types.GradeFeature:
		return GradeFeatured
	case types.GradeEpic:
		return GradeEpic
	case types.GradeMythic:
		return GradeMythic
	case types.GradeLegendary:
		return GradeLegendary
	default:
		return GradeStarrate
	}
}
