package params

// Parameter ids
const (
	QueueBlocked        = "queue.blocked"
	QueueBlockEnabled   = "queue.block_enabled"
	QueueBlockAt        = "queue.block_at"
	QueueUnblockEnabled = "queue.unblock_enabled"
	QueueUnblockAt      = "queue.unblock_at"
	QueueNotifyRole     = "queue.notify_role"

	PostRequestUserCooldown  = "cooldown.post_request_user"
	PostRequestLevelCooldown = "cooldown.post_request_level"

	AppendConclusionToReview      = "request.append_conclusion_to_review"
	AppendConclusionToFinalReview = "request.append_conclusion_to_final_review"
)

type ValueType string

const (
	TypeBool     ValueType = "bool"
	TypeUint     ValueType = "uint"
	TypeNatural  ValueType = "natural"
	TypeString   ValueType = "str"
	TypeDuration ValueType = "duration"
)

type Definition struct {
	ID          string
	Type        ValueType
	Default     string
	Description string
}

var definitions = map[string]Definition{
	QueueBlocked: {
		ID: QueueBlocked, Type: TypeBool, Default: "false",
		Description: "Whether new submissions are currently blocked",
	},
	QueueBlockEnabled: {
		ID: QueueBlockEnabled, Type: TypeBool, Default: "false",
		Description: "Whether the queue closes automatically when too many requests are pending",
	},
	QueueBlockAt: {
		ID: QueueBlockAt, Type: TypeNatural, Default: "100",
		Description: "Pending request count at which the queue closes",
	},
	QueueUnblockEnabled: {
		ID: QueueUnblockEnabled, Type: TypeBool, Default: "false",
		Description: "Whether the queue reopens automatically once enough requests are resolved",
	},
	QueueUnblockAt: {
		ID: QueueUnblockAt, Type: TypeUint, Default: "50",
		Description: "Pending request count at which the queue reopens",
	},
	QueueNotifyRole: {
		ID: QueueNotifyRole, Type: TypeString, Default: "",
		Description: "Role id pinged by queue closed/reopened notifications (empty disables the ping)",
	},
	PostRequestUserCooldown: {
		ID: PostRequestUserCooldown, Type: TypeDuration, Default: "2w",
		Description: "Cooldown cast on a user after a completed submission (0 disables)",
	},
	PostRequestLevelCooldown: {
		ID: PostRequestLevelCooldown, Type: TypeDuration, Default: "0",
		Description: "Cooldown cast on a level after a completed submission (0 disables)",
	},
	AppendConclusionToReview: {
		ID: AppendConclusionToReview, Type: TypeBool, Default: "true",
		Description: "Whether posted reviews end with a good/bad summary line",
	},
	AppendConclusionToFinalReview: {
		ID: AppendConclusionToFinalReview, Type: TypeBool, Default: "true",
		Description: "Whether resolution reviews end with a good/bad summary line",
	},
}

// Known lists every parameter id, for command autocompletion.
func Known() []string {
	ids := make([]string, 0, len(definitions))
	for id := range definitions {
		ids = append(ids, id)
	}
	return ids
}
