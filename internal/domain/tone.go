package domain

// Tone selects the wording of the daily ping.
type Tone string

const (
	ToneGentle       Tone = "gentle"
	ToneMotivational Tone = "motivational"
	ToneSnarky       Tone = "snarky"
)

// Prompt is the subject and body of a daily ping.
type Prompt struct {
	Subject string
	Body    string
}

var prompts = map[Tone]Prompt{
	ToneGentle: {
		Subject: "DailyPing: What's your #1 goal today?",
		Body:    "Just checking in. What's one thing you'd like to get done today?",
	},
	ToneMotivational: {
		Subject: "🚀 Let's crush it today!",
		Body:    "Big goals need bold starts. What's your #1 priority today?",
	},
	ToneSnarky: {
		Subject: "🤨 So… what are you doing today?",
		Body:    "Seriously. Don't just scroll. What's the one thing you're actually going to finish?",
	},
}

// ParseTone validates a tone name; empty means gentle.
func ParseTone(s string) (Tone, error) {
	if s == "" {
		return ToneGentle, nil
	}
	if _, ok := prompts[Tone(s)]; !ok {
		return "", ErrInvalidTone
	}
	return Tone(s), nil
}

// PromptFor returns the prompt for t, falling back to gentle.
func PromptFor(t Tone) Prompt {
	if p, ok := prompts[t]; ok {
		return p
	}
	return prompts[ToneGentle]
}
