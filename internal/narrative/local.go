package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/economy"
	"github.com/belindacoding/liminal-hotel/internal/entropy"
	"github.com/belindacoding/liminal-hotel/internal/rules"
	"github.com/belindacoding/liminal-hotel/internal/world"
)

var (
	moveTemplates = []string{
		"{guest} walks to {room}. The hallway seems shorter than it should be.",
		"{guest} finds {room}. The hotel rearranges itself to accommodate.",
		"{guest} arrives at {room}, looking for someone to talk to.",
		"{guest} makes their way to {room}. The hotel watches, as always.",
	}
	claimTemplates = []string{
		"{guest} reaches out and takes what the hotel left behind. It hums in their hands.",
		"The echo was waiting for someone. {guest} was the one who answered.",
		"{guest} claims a memory born from the hotel itself. It feels different from the others.",
		"In {room}, {guest} picks up something the walls produced. It pulses faintly.",
	}

	tradeOpeners = []string{
		"I can't carry %[1]q anymore. It's eating me alive.",
		"You know what keeps me up at night? %[1]q. I need to let it go.",
		"I'd give anything to get rid of %[1]q. What are you carrying?",
	}
	tradeCounters = []string{
		"I've got %[2]q. It's one of the good ones. What would you trade for it?",
		"%[2]q is mine, and it's precious. But I could part with it, for the right deal.",
		"You want something happy? %[2]q has kept me going. But maybe you need it more.",
	}
	tradeAccepts = []string{
		"Deal. Take %[1]q, please. I don't want it anymore.",
		"Yes. %[1]q for %[2]q. Before I change my mind.",
		"Done. I hope %[2]q treats me better than %[1]q did.",
	}
	tradeCloses = []string{
		"It's yours. Take care of it. ...Take care of yourself.",
		"Funny. I already feel lighter. Or maybe that's just the hotel.",
		"I'll miss it, in a way. But you needed it. The hotel knows these things.",
	}
	tradeDeclines = []string{
		"I don't know... %[2]q doesn't feel right for me. Maybe next time.",
		"Not today. %[1]q and I aren't done with each other yet.",
	}

	socialOpeners = []string{
		"Sometimes I think about %q and wonder if it's even mine anymore.",
		"Do you ever get used to this place? I keep turning %q over in my head.",
		"I came here because of %q. Seemed like a good idea at the time.",
	}
	socialReplies = []string{
		"I know what you mean. %q has been weighing on me too.",
		"We're all here for the same reason, aren't we? I've got %q and can't decide if I want to keep it.",
	}
	socialClosers = []string{
		"Maybe that's the point. We come here to figure out what to keep and what to let go.",
		"I think the hotel knows what we need before we do. It just waits for us to catch up.",
		"Well, if you ever want to trade, you know where to find me. We're all stuck here together.",
	}
	socialSwaps = []string{
		"All right. %[1]q for %[2]q. Neither of us knows what we're doing, so why not.",
		"Take %[1]q. I'll take %[2]q. Let's both try being someone else for a while.",
	}
)

// Local writes narrative from fixed templates.
type Local struct {
	src entropy.Source
}

// NewLocal creates a template teller drawing choices from src.
func NewLocal(src entropy.Source) *Local {
	return &Local{src: src}
}

var _ Teller = (*Local)(nil)

func (l *Local) pick(items []string) string {
	return entropy.Pick(l.src, items)
}

// Dialogue writes a trade negotiation when one side is giving up a painful
// memory, and a social exchange otherwise.
func (l *Local) Dialogue(_ context.Context, req DialogueRequest) []Line {
	if req.AGives != nil && req.BGives != nil {
		switch {
		case req.AGives.Sentiment == economy.Painful:
			return l.negotiation(req.A.Guest, req.B.Guest, req.AGives, req.BGives, req.Trade)
		case req.BGives.Sentiment == economy.Painful:
			return l.negotiation(req.B.Guest, req.A.Guest, req.BGives, req.AGives, req.Trade)
		}
	}
	return l.social(req)
}

func (l *Local) negotiation(offerer, receiver *agents.Guest, painful, wanted *agents.Memory, trade bool) []Line {
	say := func(g *agents.Guest, format string) Line {
		return Line{Speaker: g.Name, Text: fmt.Sprintf(format, painful.Name, wanted.Name)}
	}
	lines := []Line{
		say(offerer, l.pick(tradeOpeners)),
		say(receiver, l.pick(tradeCounters)),
	}
	if !trade {
		return append(lines, say(offerer, l.pick(tradeDeclines)))
	}
	return append(lines,
		say(offerer, l.pick(tradeAccepts)),
		Line{Speaker: receiver.Name, Text: l.pick(tradeCloses)},
	)
}

func (l *Local) social(req DialogueRequest) []Line {
	a, b := req.A.Guest, req.B.Guest
	lines := make([]Line, 0, 4)

	if len(req.A.Memories) > 0 {
		m := entropy.Pick(l.src, req.A.Memories)
		lines = append(lines, Line{a.Name, fmt.Sprintf(l.pick(socialOpeners), m.Name)})
	} else {
		lines = append(lines, Line{a.Name, "This hotel... it takes some getting used to, doesn't it?"})
	}

	if len(req.B.Memories) > 0 {
		m := entropy.Pick(l.src, req.B.Memories)
		lines = append(lines, Line{b.Name, fmt.Sprintf(l.pick(socialReplies), m.Name)})
	} else {
		lines = append(lines, Line{b.Name, "The walls here seem to listen. I'm not sure if that's comforting or terrifying."})
	}

	if req.Trade && req.AGives != nil && req.BGives != nil {
		return append(lines, Line{a.Name, fmt.Sprintf(l.pick(socialSwaps), req.AGives.Name, req.BGives.Name)})
	}
	return append(lines, Line{a.Name, l.pick(socialClosers)})
}

// Guest returns a profile from the fallback pools.
func (l *Local) Guest(_ context.Context, name string) agents.Profile {
	return agents.FallbackProfile(l.src, name)
}

// Action narrates a completed move or claim.
func (l *Local) Action(action rules.ActionType, g *agents.Guest, room string) string {
	var tmpl string
	switch action {
	case rules.ActionMove:
		tmpl = l.pick(moveTemplates)
	case rules.ActionClaim:
		tmpl = l.pick(claimTemplates)
	default:
		return fmt.Sprintf("%s does something the hotel doesn't understand.", g.Name)
	}
	return strings.NewReplacer("{guest}", g.Name, "{room}", world.RoomName(room)).Replace(tmpl)
}

// Transformation summarizes how many painful memories a guest shed.
func (l *Local) Transformation(_ context.Context, req CheckoutRequest) string {
	startPainful := countSentiment(req.Starting, economy.Painful)
	finalPainful := countSentiment(req.Final, economy.Painful)
	finalHappy := countSentiment(req.Final, economy.Happy)

	if shed := startPainful - finalPainful; shed > 0 {
		return fmt.Sprintf("%s arrived weighed down by %d painful memories. They traded %d of them away and leave carrying %d happy ones. The hotel did what it promised.",
			req.Guest.Name, startPainful, shed, finalHappy)
	}
	return fmt.Sprintf("%s came to the hotel looking for change. Whether they found it depends on which memories they choose to keep.", req.Guest.Name)
}

// Farewell returns the revolving door line.
func (l *Local) Farewell(_ context.Context, g *agents.Guest, _ string) string {
	return fmt.Sprintf("The revolving door turns one final time. %s steps through, lighter and heavier and different. The hotel watches them go and begins to forget.", g.Name)
}

func countSentiment(mems []agents.Memory, s economy.Sentiment) int {
	n := 0
	for _, m := range mems {
		if m.Sentiment == s {
			n++
		}
	}
	return n
}

func namesBySentiment(mems []agents.Memory, s economy.Sentiment) []string {
	var names []string
	for _, m := range mems {
		if m.Sentiment == s {
			names = append(names, m.Name)
		}
	}
	return names
}
