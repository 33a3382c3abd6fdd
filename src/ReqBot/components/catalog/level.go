package catalog

// Numeric keys of the colon-delimited level payload.
const (
	fieldLevelName       = 2
	fieldDifficultyNum   = 9
	fieldGameVersion     = 13
	fieldLength          = 15
	fieldDemon           = 17
	fieldStars           = 18
	fieldFeatureScore    = 19
	fieldAuto            = 25
	fieldCopiedID        = 30
	fieldRequestedStars  = 39
	fieldEpic            = 42
	fieldDemonDifficulty = 43
)

type Difficulty int

const (
	DifficultyUnrated Difficulty = iota
	DifficultyAuto
	DifficultyEasy
	DifficultyNormal
	DifficultyHard
	DifficultyHarder
	DifficultyInsane
	DifficultyEasyDemon
	DifficultyMediumDemon
	DifficultyHardDemon
	DifficultyInsaneDemon
	DifficultyExtremeDemon
)

func (d Difficulty) String() string {
	switch d {
	case DifficultyAuto:
		return "Auto"
	case DifficultyEasy:
		return "Easy"
	case DifficultyNormal:
		return "Normal"
	case DifficultyHard:
		return "Hard"
	case DifficultyHarder:
		return "Harder"
	case DifficultyInsane:
		return "Insane"
	case DifficultyEasyDemon:
		return "Easy Demon"
	case DifficultyMediumDemon:
		return "Medium Demon"
	case DifficultyHardDemon:
		return "Hard Demon"
	case DifficultyInsaneDemon:
		return "Insane Demon"
	case DifficultyExtremeDemon:
		return "Extreme Demon"
	default:
		return "Unrated"
	}
}

type Length int

const (
	LengthTiny Length = iota
	LengthShort
	LengthMedium
	LengthLong
	LengthXL
	LengthPlatformer
)

func (l Length) String() string {
	switch l {
	case LengthShort:
		return "Short"
	case LengthMedium:
		return "Medium"
	case LengthLong:
		return "Long"
	case LengthXL:
		return "XL"
	case LengthPlatformer:
		return "Platformer"
	default:
		return "Tiny"
	}
}

type Grade int

const (
	GradeUnrated Grade = iota
	GradeRated
	GradeFeatured
	GradeEpic
	GradeLegendary
	GradeMythic
)

func (g Grade) String() string {
	switch g {
	case GradeRated:
		return "rated"
	case GradeFeatured:
		return "featured"
	case GradeEpic:
		return "epic"
	case GradeLegendary:
		return "legendary"
	case GradeMythic:
		return "mythic"
	default:
		return "unrated"
	}
}

// Level is the metadata snapshot for a submitted level.
type Level struct {
	Name           string
	AuthorName     string
	Difficulty     Difficulty
	Stars          int
	StarsRequested int
	GameVersion    string
	Length         Length
	Grade          Grade
	CopiedLevelID  uint64
}
