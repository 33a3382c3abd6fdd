// Package actions routes message-component interactions. A component's
// custom id encodes a structured (verb, request id) action; handlers are
// registered per verb and dispatched after decoding, so no handler ever
// pattern-matches raw id strings.
package actions

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

type Verb string

const (
	// Pending-request card affordances.
	VerbApproveWithReview Verb = "aar"
	VerbApprove           Verb = "ja"
	VerbRejectWithReview  Verb = "rar"
	VerbReject            Verb = "jr"

	// Resolution card affordances.
	VerbSendStarrate  Verb = "rs"
	VerbSendFeature   Verb = "rf"
	VerbSendEpic      Verb = "re"
	VerbSendMythic    Verb = "rm"
	VerbSendLegendary Verb = "rl"
	VerbResolveReject Verb = "rr"
)

const prefix = "req"

// Action is a decoded component interaction target.
type Action struct {
	Verb      Verb
	RequestID uint64
}

// CustomID encodes the action for embedding into a component.
func (a Action) CustomID() string {
	return fmt.Sprintf("%s:%s:%d", prefix, a.Verb, a.RequestID)
}

var ErrNotAnAction = errors.New("actions: custom id is not an action")

// Decode parses a component custom id back into an Action. Ids produced
// by other parts of the bot yield ErrNotAnAction.
func Decode(customID string) (Action, error) {
	parts := strings.Split(customID, ":")
	if len(parts) != 3 || parts[0] != prefix {
		return Action{}, ErrNotAnAction
	}

	requestID, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return Action{}, fmt.Errorf("%w: bad request id %q", ErrNotAnAction, parts[2])
	}
	return Action{Verb: Verb(parts[1]), RequestID: requestID}, nil
}

// Handler reacts to one decoded action.
type Handler func(s *discordgo.Session, i *discordgo.InteractionCreate, action Action) error

// Registry maps verbs to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Verb]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Verb]Handler)}
}

func (r *Registry) Register(verb Verb, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[verb] = handler
}

// Dispatch decodes a component interaction and invokes the matching
// handler. Unrecognized custom ids are ignored so other component
// sources can coexist on the same session.
func (r *Registry) Dispatch(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	action, err := Decode(i.MessageComponentData().CustomID)
	if errors.Is(err, ErrNotAnAction) {
		return nil
	}
	if err != nil {
		return err
	}

	r.mu.RLock()
	handler, ok := r.handlers[action.Verb]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("actions: no handler for verb %q", action.Verb)
	}
	return handler(s, i, action)
}
